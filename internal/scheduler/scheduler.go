// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scheduler triggers synchronization passes on an hourly interval
// measured from the end of the previous pass.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/plutosync/internal/jobs"
	"github.com/ManuGH/plutosync/internal/log"
)

// MinDelay is the delay used when a pass is overdue.
const MinDelay = time.Second

// Runner performs passes.
type Runner interface {
	Run(ctx context.Context, regions []string) jobs.Result
	RunBackground(regions []string) bool
	LastRun() time.Time
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) Timer
}

// Timer is the subset of time.Timer the scheduler uses.
type Timer interface {
	C() <-chan time.Time
	Stop() bool
}

// RealClock implements Clock with the time package.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
func (RealClock) NewTimer(d time.Duration) Timer {
	return &realTimer{t: time.NewTimer(d)}
}

type realTimer struct {
	t *time.Timer
}

func (r *realTimer) C() <-chan time.Time { return r.t.C }
func (r *realTimer) Stop() bool          { return r.t.Stop() }

// Delay returns the time until the next pass for an interval and the end
// of the previous pass. Overdue passes and last-run times in the future
// yield MinDelay. A zero interval disables scheduling and returns zero.
func Delay(interval time.Duration, last, now time.Time) time.Duration {
	if interval <= 0 {
		return 0
	}
	delay := interval - now.Sub(last)
	if delay <= 0 || delay > interval {
		return MinDelay
	}
	return delay
}

// Scheduler runs passes when the interval elapses or on demand.
type Scheduler struct {
	runner  Runner
	regions func() []string
	logger  zerolog.Logger
	clock   Clock

	reset chan struct{}

	mu       sync.Mutex
	interval time.Duration
	next     time.Time
	// busyAt is when a fire found another pass running. The interval is
	// measured from it until that pass ends.
	busyAt time.Time
}

// New returns a scheduler. regions is consulted at the start of every
// pass so configuration reloads take effect.
func New(runner Runner, regions func() []string, interval time.Duration) *Scheduler {
	return &Scheduler{
		runner:   runner,
		regions:  regions,
		logger:   log.WithComponent("scheduler"),
		clock:    RealClock{},
		reset:    make(chan struct{}, 1),
		interval: interval,
	}
}

// SetInterval changes the interval and re-arms the timer.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()
	select {
	case s.reset <- struct{}{}:
	default:
	}
}

// RunBackground starts an on-demand pass for regions. It reports false
// when a pass is already running. The next interval is measured from the
// end of the on-demand pass.
func (s *Scheduler) RunBackground(regions []string) bool {
	if !s.runner.RunBackground(regions) {
		return false
	}
	s.logger.Info().
		Str(log.FieldEvent, "scheduler.fire").
		Str("reason", "request").
		Strs("regions", regions).
		Msg("update process starting")
	return true
}

// Next returns when the next scheduled pass starts; zero when scheduling
// is disabled.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Run blocks until ctx is cancelled. A pass in progress receives ctx and
// is aborted with it.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().Str(log.FieldEvent, "scheduler.start").Msg("scheduler started")
	for {
		timer, fire, last := s.arm()
		select {
		case <-ctx.Done():
			stop(timer)
			s.logger.Info().Str(log.FieldEvent, "scheduler.stop").Msg("update process stopped")
			return nil
		case <-s.reset:
			stop(timer)
		case <-fire:
			if s.runner.LastRun().After(last) {
				// A pass started elsewhere ended meanwhile; measure from it.
				continue
			}
			s.pass(ctx, "interval")
		}
	}
}

func stop(t Timer) {
	if t != nil {
		t.Stop()
	}
}

// arm computes the next delay from the last-run time it returns. The
// channel is nil when scheduling is disabled.
func (s *Scheduler) arm() (Timer, <-chan time.Time, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	last := s.runner.LastRun()
	base := last
	if s.busyAt.After(base) {
		base = s.busyAt
	}
	delay := Delay(s.interval, base, now)
	if delay == 0 {
		s.next = time.Time{}
		s.logger.Info().
			Str(log.FieldEvent, "scheduler.disabled").
			Msg("automatic updates disabled")
		return nil, nil, last
	}
	s.next = now.Add(delay)
	s.logger.Info().
		Str(log.FieldEvent, "scheduler.armed").
		Dur("delay", delay).
		Time("next", s.next).
		Dur("interval", s.interval).
		Msg("next update scheduled")
	t := s.clock.NewTimer(delay)
	return t, t.C(), last
}

func (s *Scheduler) pass(ctx context.Context, reason string) {
	s.logger.Info().
		Str(log.FieldEvent, "scheduler.fire").
		Str("reason", reason).
		Msg("update process starting")
	res := s.runner.Run(ctx, s.regions())
	if res.State == jobs.StateAlreadyRunning {
		s.mu.Lock()
		s.busyAt = s.clock.Now()
		s.mu.Unlock()
		s.logger.Info().
			Str(log.FieldEvent, "scheduler.deferred").
			Msg("update in progress, waiting one interval")
		return
	}
	msg, _ := res.State.Message()
	s.logger.Info().
		Str(log.FieldEvent, "scheduler.pass_done").
		Str(log.FieldNewState, res.State.String()).
		Msg(msg)
}
