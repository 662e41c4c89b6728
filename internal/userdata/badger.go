// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package userdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ManuGH/plutosync/internal/catalog"
)

// Key layout:
//   - resume:<id>            ResumePoint (JSON)
//   - fav:<REGION>:<id>      Favorite (JSON)
const (
	resumePrefix   = "resume:"
	favoritePrefix = "fav:"
)

// BadgerStore implements Store on a badger database.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

// OpenBadgerStore opens or creates the database in path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	return openBadger(badger.DefaultOptions(path).WithLogger(nil))
}

// OpenInMemoryBadgerStore opens a database that lives only in memory.
func OpenInMemoryBadgerStore() (*BadgerStore, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open userdata db: %w", err)
	}
	return &BadgerStore{db: db, now: time.Now}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func favoriteKey(region, id string) []byte {
	return []byte(favoritePrefix + strings.ToUpper(region) + ":" + id)
}

func (s *BadgerStore) ResumePoint(ctx context.Context, id string) (ResumePoint, bool, error) {
	if err := checkKey(id); err != nil {
		return ResumePoint{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return ResumePoint{}, false, err
	}
	key := []byte(resumePrefix + id)
	var rp ResumePoint
	found := true
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rp)
		}); err != nil {
			return err
		}
		rp.LastUsed = s.now().UTC().Truncate(time.Second)
		buf, err := json.Marshal(rp)
		if err != nil {
			return err
		}
		return txn.Set(key, buf)
	})
	if err != nil {
		return ResumePoint{}, false, fmt.Errorf("resume point %s: %w", id, err)
	}
	return rp, found, nil
}

func (s *BadgerStore) SetResumePoint(ctx context.Context, id string, position, length int64) error {
	if err := checkKey(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	buf, err := json.Marshal(ResumePoint{LastUsed: s.now().UTC().Truncate(time.Second), Position: position, Length: length})
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(resumePrefix+id), buf)
	})
}

func (s *BadgerStore) Favorites(ctx context.Context, region string) ([]Favorite, error) {
	if err := checkKey(region); err != nil {
		return nil, err
	}
	prefix := []byte(favoritePrefix + strings.ToUpper(region) + ":")
	favs := []Favorite{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var f Favorite
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &f)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			favs = append(favs, f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortFavorites(favs)
	return favs, nil
}

func (s *BadgerStore) AddFavorite(ctx context.Context, region string, item catalog.VODItem) error {
	if err := checkKey(region, item.ID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	key := favoriteKey(region, item.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		fav := Favorite{Item: item, AddedAt: s.now().UTC()}
		existing, err := txn.Get(key)
		switch {
		case err == nil:
			var prev Favorite
			if err := existing.Value(func(val []byte) error {
				return json.Unmarshal(val, &prev)
			}); err == nil {
				fav.AddedAt = prev.AddedAt
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		buf, err := json.Marshal(fav)
		if err != nil {
			return err
		}
		return txn.Set(key, buf)
	})
}

func (s *BadgerStore) RemoveFavorite(ctx context.Context, region, id string) (bool, error) {
	if err := checkKey(region, id); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key := favoriteKey(region, id)
	removed := false
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		removed = true
		return txn.Delete(key)
	})
	return removed, err
}
