// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package userdata keeps per-user playback state: VOD resume points and
// per-region favorites.
package userdata

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ManuGH/plutosync/internal/catalog"
)

// ErrInvalidKey is returned for empty identifiers or regions.
var ErrInvalidKey = errors.New("userdata: invalid key")

// ResumePoint is the last playback position of a stream. Position and
// Length are in 90 kHz clock ticks as reported by the player.
type ResumePoint struct {
	LastUsed time.Time `json:"lastUsed"`
	Position int64     `json:"position"`
	Length   int64     `json:"length,omitempty"`
}

// Favorite is a VOD item marked by the user.
type Favorite struct {
	Item    catalog.VODItem `json:"item"`
	AddedAt time.Time       `json:"addedAt"`
}

// Store persists user data.
type Store interface {
	// ResumePoint returns the resume point of id and refreshes its
	// last-used time.
	ResumePoint(ctx context.Context, id string) (ResumePoint, bool, error)
	SetResumePoint(ctx context.Context, id string, position, length int64) error
	// Favorites returns the favorites of region in the order they were added.
	Favorites(ctx context.Context, region string) ([]Favorite, error)
	AddFavorite(ctx context.Context, region string, item catalog.VODItem) error
	// RemoveFavorite reports whether the favorite existed.
	RemoveFavorite(ctx context.Context, region, id string) (bool, error)
	Close() error
}

// NewStore opens the store of backend. An empty dir yields a memory store.
func NewStore(backend, dir string) (Store, error) {
	switch backend {
	case "", "badger":
		if dir == "" {
			return NewMemoryStore(), nil
		}
		return OpenBadgerStore(filepath.Join(dir, "userdata"))
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown userdata backend: %s (supported: badger, memory)", backend)
	}
}

func checkKey(parts ...string) error {
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return ErrInvalidKey
		}
	}
	return nil
}

func sortFavorites(favs []Favorite) {
	sort.SliceStable(favs, func(i, j int) bool {
		if !favs[i].AddedAt.Equal(favs[j].AddedAt) {
			return favs[i].AddedAt.Before(favs[j].AddedAt)
		}
		return favs[i].Item.ID < favs[j].Item.ID
	})
}
