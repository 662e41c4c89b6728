// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package userdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/plutosync/internal/catalog"
)

type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	mem := NewMemoryStore()
	mem.now = (&stepClock{t: time.Unix(1_700_000_000, 0)}).Now

	bdg, err := OpenInMemoryBadgerStore()
	require.NoError(t, err)
	bdg.now = (&stepClock{t: time.Unix(1_700_000_000, 0)}).Now
	t.Cleanup(func() { _ = bdg.Close() })

	return map[string]Store{"memory": mem, "badger": bdg}
}

func TestResumePoints(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.ResumePoint(ctx, "movie-1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.SetResumePoint(ctx, "movie-1", 90000*60, 90000*5400))
			first, ok, err := s.ResumePoint(ctx, "movie-1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, int64(90000*60), first.Position)
			assert.Equal(t, int64(90000*5400), first.Length)

			second, _, err := s.ResumePoint(ctx, "movie-1")
			require.NoError(t, err)
			assert.True(t, second.LastUsed.After(first.LastUsed), "reading refreshes the last-used time")
			assert.Equal(t, first.Position, second.Position)

			assert.ErrorIs(t, s.SetResumePoint(ctx, " ", 1, 1), ErrInvalidKey)
		})
	}
}

func TestFavorites(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			favs, err := s.Favorites(ctx, "DE")
			require.NoError(t, err)
			assert.Empty(t, favs)

			require.NoError(t, s.AddFavorite(ctx, "de", catalog.VODItem{ID: "z", Name: "Zulu", Type: "movie"}))
			require.NoError(t, s.AddFavorite(ctx, "DE", catalog.VODItem{ID: "a", Name: "Alpha", Type: "series"}))
			require.NoError(t, s.AddFavorite(ctx, "US", catalog.VODItem{ID: "u", Name: "Other region"}))
			// re-adding keeps the original position
			require.NoError(t, s.AddFavorite(ctx, "DE", catalog.VODItem{ID: "z", Name: "Zulu (updated)", Type: "movie"}))

			favs, err = s.Favorites(ctx, "DE")
			require.NoError(t, err)
			require.Len(t, favs, 2)
			assert.Equal(t, "z", favs[0].Item.ID)
			assert.Equal(t, "Zulu (updated)", favs[0].Item.Name)
			assert.Equal(t, "a", favs[1].Item.ID)

			removed, err := s.RemoveFavorite(ctx, "DE", "z")
			require.NoError(t, err)
			assert.True(t, removed)
			removed, err = s.RemoveFavorite(ctx, "DE", "z")
			require.NoError(t, err)
			assert.False(t, removed)

			favs, err = s.Favorites(ctx, "de")
			require.NoError(t, err)
			require.Len(t, favs, 1)
			assert.Equal(t, "a", favs[0].Item.ID)

			us, err := s.Favorites(ctx, "US")
			require.NoError(t, err)
			assert.Len(t, us, 1)

			assert.ErrorIs(t, s.AddFavorite(ctx, "", catalog.VODItem{ID: "x"}), ErrInvalidKey)
		})
	}
}

func TestBadgerStore_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewStore("badger", dir)
	require.NoError(t, err)
	require.NoError(t, s.SetResumePoint(ctx, "ep-1", 42, 100))
	require.NoError(t, s.AddFavorite(ctx, "GB", catalog.VODItem{ID: "m", Name: "Movie"}))
	require.NoError(t, s.Close())

	s, err = NewStore("badger", dir)
	require.NoError(t, err)
	defer s.Close()
	rp, ok, err := s.ResumePoint(ctx, "ep-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(42), rp.Position)
	favs, err := s.Favorites(ctx, "GB")
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, "Movie", favs[0].Item.Name)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore("", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = NewStore("memory", t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	_, err = NewStore("bolt", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown userdata backend")
}
