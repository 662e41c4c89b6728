// SPDX-License-Identifier: MIT

package guide

import (
	"context"
	"slices"
	"sync"
)

// MemoryCache collects imported events in memory. Imported events stay
// pending until Commit; Discard drops them.
type MemoryCache struct {
	mu        sync.Mutex
	committed map[string][]Event
	pending   map[string][]Event
	calls     int
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{committed: map[string][]Event{}, pending: map[string][]Event{}}
}

func (c *MemoryCache) ImportEvents(_ context.Context, serviceRef string, events []Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[serviceRef] = append(c.pending[serviceRef], events...)
	c.calls++
	return nil
}

// Events returns the committed events of serviceRef followed by the
// pending ones.
func (c *MemoryCache) Events(serviceRef string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Concat(c.committed[serviceRef], c.pending[serviceRef])
}

// Imports returns the number of ImportEvents calls.
func (c *MemoryCache) Imports() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Commit makes the pending events permanent.
func (c *MemoryCache) Commit(context.Context, string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ref, events := range c.pending {
		c.committed[ref] = append(c.committed[ref], events...)
	}
	c.pending = map[string][]Event{}
	return nil
}

// Discard drops the pending events.
func (c *MemoryCache) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = map[string][]Event{}
}
