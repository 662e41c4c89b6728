// SPDX-License-Identifier: MIT

// Package cache stores catalog responses with a TTL in memory or Redis.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ManuGH/plutosync/internal/log"
	"github.com/ManuGH/plutosync/internal/metrics"
)

// Cache provides thread-safe caching with expiration support.
type Cache interface {
	// Get retrieves a value. The bool is false when the key is missing or expired.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores a value with the specified TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Delete removes a value.
	Delete(ctx context.Context, key string)
	// Stats returns cache statistics.
	Stats() Stats
}

// Stats holds cache performance metrics.
type Stats struct {
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Sets        int64 `json:"sets"`
	Evictions   int64 `json:"evictions"`
	CurrentSize int   `json:"size"`
}

// Fetch returns the cached JSON value of key or calls load and caches its
// result. Results for which load reports false are not cached.
func Fetch[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(context.Context) (T, bool)) T {
	if data, ok := c.Get(ctx, key); ok {
		var v T
		err := json.Unmarshal(data, &v)
		if err == nil {
			return v
		}
		logger := log.WithComponentFromContext(ctx, "cache")
		logger.Warn().
			Err(err).
			Str("key", key).
			Msg("discarding undecodable cache entry")
		c.Delete(ctx, key)
	}
	v, ok := load(ctx)
	if !ok {
		return v
	}
	if data, err := json.Marshal(v); err == nil {
		c.Set(ctx, key, data, ttl)
	}
	return v
}

type entry struct {
	value      []byte
	expiration time.Time
}

func (e *entry) isExpired(now time.Time) bool {
	return now.After(e.expiration)
}

// MemoryCache is an in-memory Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	stats   Stats
	janitor *janitor
	now     func() time.Time
}

// NewMemoryCache creates an in-memory cache. A positive cleanupInterval
// starts a goroutine removing expired entries until Stop is called.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	if cleanupInterval > 0 {
		c.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
			done:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}
	return c
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found || e.isExpired(c.now()) {
		c.stats.Misses++
		metrics.RecordCacheLookup("memory", "miss")
		return nil, false
	}
	c.stats.Hits++
	metrics.RecordCacheLookup("memory", "hit")
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &entry{value: value, expiration: c.now().Add(ttl)}
	c.stats.Sets++
}

func (c *MemoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

// deleteExpired removes expired entries and returns how many were removed.
func (c *MemoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	count := 0
	for key, e := range c.entries {
		if e.isExpired(now) {
			delete(c.entries, key)
			count++
		}
	}
	c.stats.Evictions += int64(count)
	return count
}

// Stop ends the cleanup goroutine and waits for it.
func (c *MemoryCache) Stop() {
	if c.janitor != nil {
		c.janitor.once.Do(func() { close(c.janitor.stop) })
		<-c.janitor.done
	}
}

type janitor struct {
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

func (j *janitor) run(c *MemoryCache) {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}

type noOpCache struct{}

// NewNoOpCache returns a cache that stores nothing.
func NewNoOpCache() Cache {
	return noOpCache{}
}

func (noOpCache) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (noOpCache) Set(context.Context, string, []byte, time.Duration) {}
func (noOpCache) Delete(context.Context, string)                     {}
func (noOpCache) Stats() Stats                                       { return Stats{} }
