// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (m *manualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func newTestMemoryCache() (*MemoryCache, *manualClock) {
	clock := &manualClock{now: time.Unix(1_700_000_000, 0)}
	c := NewMemoryCache(0)
	c.now = clock.Now
	return c, clock
}

func TestMemoryCache_GetSetExpire(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestMemoryCache()

	_, ok := c.Get(ctx, "vod:DE")
	assert.False(t, ok)

	c.Set(ctx, "vod:DE", []byte(`[1]`), time.Minute)
	v, ok := c.Get(ctx, "vod:DE")
	require.True(t, ok)
	assert.Equal(t, []byte(`[1]`), v)

	clock.Advance(2 * time.Minute)
	_, ok = c.Get(ctx, "vod:DE")
	assert.False(t, ok)

	assert.Equal(t, 1, c.deleteExpired())
	st := c.Stats()
	assert.Equal(t, Stats{Hits: 1, Misses: 2, Sets: 1, Evictions: 1, CurrentSize: 0}, st)
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryCache()
	c.Set(ctx, "k", []byte("v"), time.Hour)
	c.Delete(ctx, "k")
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_JanitorStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewMemoryCache(5 * time.Millisecond)
	c.Set(context.Background(), "k", []byte("v"), time.Nanosecond)
	require.Eventually(t, func() bool { return c.Stats().CurrentSize == 0 }, time.Second, 5*time.Millisecond)
	c.Stop()
	c.Stop()
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryCache()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 100 {
				key := fmt.Sprintf("k%d-%d", i, j%10)
				c.Set(ctx, key, []byte("v"), time.Minute)
				c.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 80, c.Stats().CurrentSize)
}

type seasons struct {
	Name     string `json:"name"`
	Episodes int    `json:"episodes"`
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryCache()
	calls := 0
	load := func(context.Context) (seasons, bool) {
		calls++
		return seasons{Name: "Show", Episodes: 3}, true
	}

	first := Fetch(ctx, c, "series:1", time.Hour, load)
	second := Fetch(ctx, c, "series:1", time.Hour, load)
	assert.Equal(t, seasons{Name: "Show", Episodes: 3}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestFetch_FailedLoadNotCached(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryCache()
	calls := 0
	load := func(context.Context) ([]string, bool) {
		calls++
		return nil, false
	}
	Fetch(ctx, c, "vod:US", time.Hour, load)
	Fetch(ctx, c, "vod:US", time.Hour, load)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, c.Stats().CurrentSize)
}

func TestFetch_CorruptEntryReloaded(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestMemoryCache()
	c.Set(ctx, "k", []byte("{not json"), time.Hour)

	got := Fetch(ctx, c, "k", time.Hour, func(context.Context) (int, bool) { return 7, true })
	assert.Equal(t, 7, got)
	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "7", string(v))
}

func TestNoOpCache(t *testing.T) {
	ctx := context.Background()
	c := NewNoOpCache()
	c.Set(ctx, "k", []byte("v"), time.Hour)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, Stats{}, c.Stats())
}

func BenchmarkMemoryCache_Get(b *testing.B) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	c.Set(ctx, "k", []byte("v"), time.Hour)
	b.ResetTimer()
	for b.Loop() {
		c.Get(ctx, "k")
	}
}
