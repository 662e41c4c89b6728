// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package numbering keeps the persistent mapping from catalog channel
// identifiers to bouquet channel numbers.
//
// A number, once assigned, never changes, and the high-water mark only
// grows. Numbers are rendered as uppercase hexadecimal because they end up
// in the service reference of the bouquet line.
package numbering

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/ManuGH/plutosync/internal/log"
	"github.com/ManuGH/plutosync/internal/metrics"
)

// MaxNumber is the highest channel number that fits the service reference.
const MaxNumber = 0xFFFF

// ErrExhausted is returned by Assign when the number space is used up.
var ErrExhausted = errors.New("numbering: channel number space exhausted")

// Record is the persisted assignment of one channel.
type Record struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

// Table is the persisted registry state.
type Table struct {
	LastNumber int               `json:"lastNumber"`
	Records    map[string]Record `json:"channels"`
}

// NewTable returns an empty table.
func NewTable() Table {
	return Table{Records: map[string]Record{}}
}

// Clone returns a deep copy of t.
func (t Table) Clone() Table {
	out := Table{LastNumber: t.LastNumber, Records: make(map[string]Record, len(t.Records))}
	maps.Copy(out.Records, t.Records)
	return out
}

// Store loads and saves the whole table at once.
type Store interface {
	Load(ctx context.Context) (Table, error)
	Save(ctx context.Context, t Table) error
}

// Registry assigns channel numbers for one synchronization pass.
type Registry struct {
	mu       sync.Mutex
	store    Store
	table    Table
	modified bool
}

// Load reads the table from store. A read failure is logged and yields an
// empty registry so the pass can continue.
func Load(ctx context.Context, store Store) *Registry {
	t, err := store.Load(ctx)
	if err != nil {
		logger := log.WithComponentFromContext(ctx, "numbering")
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "numbering.load_failed").
			Msg("unable to load channel numbers, starting with an empty table")
		t = NewTable()
	}
	if t.Records == nil {
		t.Records = map[string]Record{}
	}
	return &Registry{store: store, table: t}
}

// Assign returns the number of identifier, allocating the next free one
// when the identifier is new. It returns ErrExhausted when the next number
// would exceed MaxNumber; the table is left unchanged in that case.
func (r *Registry) Assign(identifier, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.table.Records[identifier]; ok {
		return rec.Number, nil
	}
	next := r.table.LastNumber + 1
	if next > MaxNumber {
		return "", fmt.Errorf("%w: %d", ErrExhausted, next)
	}
	r.table.LastNumber = next
	number := FormatNumber(next)
	r.table.Records[identifier] = Record{Number: number, Name: name}
	r.modified = true
	metrics.IncNumberAssigned()
	return number, nil
}

// Lookup returns the record of identifier, if any.
func (r *Registry) Lookup(identifier string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.table.Records[identifier]
	return rec, ok
}

// Modified reports whether Assign allocated a number since the last save.
func (r *Registry) Modified() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modified
}

// Snapshot returns a copy of the current table.
func (r *Registry) Snapshot() Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.Clone()
}

// Save persists the table when it was modified.
func (r *Registry) Save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.modified {
		return nil
	}
	if err := r.store.Save(ctx, r.table.Clone()); err != nil {
		return fmt.Errorf("save channel numbers: %w", err)
	}
	r.modified = false
	return nil
}

// FormatNumber renders n as an uppercase hexadecimal channel number.
func FormatNumber(n int) string {
	return strings.ToUpper(fmt.Sprintf("%x", n))
}
