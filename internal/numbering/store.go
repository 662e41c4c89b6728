// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package numbering

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ManuGH/plutosync/internal/fsutil"
)

// MemoryStore keeps the table in memory.
type MemoryStore struct {
	mu    sync.Mutex
	table Table
	saves int
}

// NewMemoryStore returns a store seeded with t.
func NewMemoryStore(t Table) *MemoryStore {
	if t.Records == nil {
		t.Records = map[string]Record{}
	}
	return &MemoryStore{table: t.Clone()}
}

func (s *MemoryStore) Load(_ context.Context) (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, t Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t.Clone()
	s.saves++
	return nil
}

// Saves returns how often Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// JSONStore persists the table as a JSON document.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store backed by the file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads the table. A missing file yields an empty table.
func (s *JSONStore) Load(_ context.Context) (Table, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewTable(), nil
		}
		return Table{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	t := NewTable()
	if err := json.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if t.Records == nil {
		t.Records = map[string]Record{}
	}
	return t, nil
}

// Save replaces the file atomically.
func (s *JSONStore) Save(_ context.Context, t Table) error {
	return fsutil.WriteAtomic(s.path, 0o644, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	})
}
