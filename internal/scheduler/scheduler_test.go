// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/plutosync/internal/jobs"
)

func TestDelay(t *testing.T) {
	now := time.Unix(1_000_000, 0)
	hour := time.Hour
	tests := []struct {
		name     string
		interval time.Duration
		last     time.Time
		want     time.Duration
	}{
		{"disabled", 0, now, 0},
		{"never ran", 5 * hour, time.Unix(0, 0), MinDelay},
		{"overdue", 5 * hour, now.Add(-6 * hour), MinDelay},
		{"exactly due", 5 * hour, now.Add(-5 * hour), MinDelay},
		{"partially elapsed", 5 * hour, now.Add(-2 * hour), 3 * hour},
		{"just ran", 5 * hour, now, 5 * hour},
		{"clock went back", 5 * hour, now.Add(time.Minute), MinDelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Delay(tt.interval, tt.last, now))
		})
	}
}

type fakeTimer struct {
	c chan time.Time
	d time.Duration
}

func (f *fakeTimer) C() <-chan time.Time { return f.c }
func (f *fakeTimer) Stop() bool          { return true }

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers chan *fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, timers: make(chan *fakeTimer, 8)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	t := &fakeTimer{c: make(chan time.Time, 1), d: d}
	c.timers <- t
	return t
}

type fakeRunner struct {
	mu         sync.Mutex
	last       time.Time
	finishAt   time.Time
	state      jobs.State // result of Run; Done when zero
	regions    [][]string
	background [][]string
	done       chan struct{}
}

func (r *fakeRunner) Run(_ context.Context, regions []string) jobs.Result {
	r.mu.Lock()
	r.regions = append(r.regions, regions)
	state := r.state
	if state == jobs.StateIdle {
		state = jobs.StateDone
	}
	if !r.finishAt.IsZero() && state != jobs.StateAlreadyRunning {
		r.last = r.finishAt
	}
	r.mu.Unlock()
	r.done <- struct{}{}
	return jobs.Result{State: state}
}

func (r *fakeRunner) RunBackground(regions []string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == jobs.StateAlreadyRunning {
		return false
	}
	r.background = append(r.background, regions)
	return true
}

func (r *fakeRunner) LastRun() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func nextTimer(t *testing.T, c *fakeClock) *fakeTimer {
	t.Helper()
	select {
	case tm := <-c.timers:
		return tm
	case <-time.After(2 * time.Second):
		t.Fatal("timer was not armed")
		return nil
	}
}

func waitRun(t *testing.T, r *fakeRunner) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("pass did not run")
	}
}

func TestScheduler_FiresAndRearms(t *testing.T) {
	defer goleak.VerifyNone(t)

	now := time.Unix(1_000_000, 0)
	clock := newFakeClock(now)
	runner := &fakeRunner{last: now.Add(-time.Hour), finishAt: now, done: make(chan struct{}, 4)}
	s := New(runner, func() []string { return []string{"DE"} }, 5*time.Hour)
	s.clock = clock

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	tm := nextTimer(t, clock)
	assert.Equal(t, 4*time.Hour, tm.d)
	assert.Equal(t, now.Add(4*time.Hour), s.Next())

	tm.c <- now
	waitRun(t, runner)
	assert.Equal(t, [][]string{{"DE"}}, runner.regions)

	// re-armed from the new last-run time
	tm = nextTimer(t, clock)
	assert.Equal(t, 5*time.Hour, tm.d)

	cancel()
	require.NoError(t, <-errc)
}

func TestScheduler_RunBackground(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, func() []string { return []string{"US"} }, time.Hour)

	require.True(t, s.RunBackground([]string{"GB"}))
	assert.Equal(t, [][]string{{"GB"}}, runner.background)
	assert.Empty(t, runner.regions, "on-demand passes do not block the scheduler loop")

	runner.state = jobs.StateAlreadyRunning
	assert.False(t, s.RunBackground([]string{"GB"}))
	assert.Len(t, runner.background, 1)
}

func TestScheduler_DisableAndEnable(t *testing.T) {
	defer goleak.VerifyNone(t)

	now := time.Unix(1_000_000, 0)
	clock := newFakeClock(now)
	runner := &fakeRunner{last: now, done: make(chan struct{}, 4)}
	s := New(runner, func() []string { return []string{"US"} }, 0)
	s.clock = clock

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	assert.True(t, s.Next().IsZero(), "disabled scheduler has no next pass")

	s.SetInterval(2 * time.Hour)
	tm := nextTimer(t, clock)
	assert.Equal(t, 2*time.Hour, tm.d)

	cancel()
	require.NoError(t, <-errc)
}

func TestScheduler_SkipsWhenAnotherPassEnded(t *testing.T) {
	defer goleak.VerifyNone(t)

	now := time.Unix(1_000_000, 0)
	clock := newFakeClock(now)
	runner := &fakeRunner{last: now.Add(-time.Hour), done: make(chan struct{}, 4)}
	s := New(runner, func() []string { return []string{"DE"} }, 5*time.Hour)
	s.clock = clock

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	tm := nextTimer(t, clock)
	runner.mu.Lock()
	runner.last = now
	runner.mu.Unlock()
	tm.c <- now

	tm = nextTimer(t, clock)
	assert.Equal(t, 5*time.Hour, tm.d)
	assert.Empty(t, runner.regions)

	cancel()
	require.NoError(t, <-errc)
}

func TestScheduler_BusyRunnerWaitsOneInterval(t *testing.T) {
	defer goleak.VerifyNone(t)

	now := time.Unix(1_000_000, 0)
	clock := newFakeClock(now)
	runner := &fakeRunner{
		last:  now.Add(-6 * time.Hour),
		state: jobs.StateAlreadyRunning,
		done:  make(chan struct{}, 4),
	}
	s := New(runner, func() []string { return []string{"DE"} }, 5*time.Hour)
	s.clock = clock

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	tm := nextTimer(t, clock)
	assert.Equal(t, MinDelay, tm.d, "overdue")
	tm.c <- now
	waitRun(t, runner)

	tm = nextTimer(t, clock)
	assert.Equal(t, 5*time.Hour, tm.d, "no retry while the other pass runs")

	// The other pass ends ten minutes later; the interval follows it.
	clock.mu.Lock()
	clock.now = now.Add(5 * time.Hour)
	clock.mu.Unlock()
	runner.mu.Lock()
	runner.last = now.Add(10 * time.Minute)
	runner.state = jobs.StateDone
	runner.mu.Unlock()
	tm.c <- now

	tm = nextTimer(t, clock)
	assert.Equal(t, 10*time.Minute, tm.d)
	runner.mu.Lock()
	assert.Len(t, runner.regions, 1)
	runner.mu.Unlock()

	cancel()
	require.NoError(t, <-errc)
}
