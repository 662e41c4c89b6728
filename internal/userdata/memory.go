// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package userdata

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/plutosync/internal/catalog"
)

// MemoryStore implements Store with maps.
type MemoryStore struct {
	mu        sync.Mutex
	resume    map[string]ResumePoint
	favorites map[string]map[string]Favorite
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resume:    map[string]ResumePoint{},
		favorites: map[string]map[string]Favorite{},
		now:       time.Now,
	}
}

func (s *MemoryStore) ResumePoint(_ context.Context, id string) (ResumePoint, bool, error) {
	if err := checkKey(id); err != nil {
		return ResumePoint{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rp, ok := s.resume[id]
	if !ok {
		return ResumePoint{}, false, nil
	}
	rp.LastUsed = s.now().UTC().Truncate(time.Second)
	s.resume[id] = rp
	return rp, true, nil
}

func (s *MemoryStore) SetResumePoint(_ context.Context, id string, position, length int64) error {
	if err := checkKey(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resume[id] = ResumePoint{LastUsed: s.now().UTC().Truncate(time.Second), Position: position, Length: length}
	return nil
}

func (s *MemoryStore) Favorites(_ context.Context, region string) ([]Favorite, error) {
	if err := checkKey(region); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	favs := make([]Favorite, 0, len(s.favorites[strings.ToUpper(region)]))
	for _, f := range s.favorites[strings.ToUpper(region)] {
		favs = append(favs, f)
	}
	sortFavorites(favs)
	return favs, nil
}

func (s *MemoryStore) AddFavorite(_ context.Context, region string, item catalog.VODItem) error {
	if err := checkKey(region, item.ID); err != nil {
		return err
	}
	region = strings.ToUpper(region)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.favorites[region] == nil {
		s.favorites[region] = map[string]Favorite{}
	}
	added := s.now().UTC()
	if prev, ok := s.favorites[region][item.ID]; ok {
		added = prev.AddedAt
	}
	s.favorites[region][item.ID] = Favorite{Item: item, AddedAt: added}
	return nil
}

func (s *MemoryStore) RemoveFavorite(_ context.Context, region, id string) (bool, error) {
	if err := checkKey(region, id); err != nil {
		return false, err
	}
	region = strings.ToUpper(region)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.favorites[region][id]; !ok {
		return false, nil
	}
	delete(s.favorites[region], id)
	return true, nil
}

func (s *MemoryStore) Close() error { return nil }
