// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package openwebif

import (
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/plutosync/internal/metrics"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal operation, requests allowed
	StateOpen                  // Circuit open, requests blocked
	StateHalfOpen              // Testing if service recovered
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

const breakerComponent = "openwebif"

// CircuitBreaker stops calling an unreachable receiver for a while.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            State
	failures         int
	failureThreshold int
	resetTimeout     time.Duration
	lastFailure      time.Time
	now              func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	cb := &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: threshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
	metrics.SetCircuitBreakerState(breakerComponent, cb.state.String())
	return cb
}

// Execute runs fn if the circuit is closed or half-open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowRequest() {
		return ErrCircuitOpen
	}
	if err := fn(); err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state != StateOpen {
		return true
	}
	if cb.now().Sub(cb.lastFailure) > cb.resetTimeout {
		cb.setState(StateHalfOpen)
		return true
	}
	return false
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailure = cb.now()
	if cb.state == StateHalfOpen {
		cb.setState(StateOpen)
		metrics.RecordCircuitBreakerTrip(breakerComponent, "half_open_failure")
		return
	}
	if cb.state == StateClosed && cb.failures >= cb.failureThreshold {
		cb.setState(StateOpen)
		metrics.RecordCircuitBreakerTrip(breakerComponent, "threshold")
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.setState(StateClosed)
}

// setState must be called with mu held.
func (cb *CircuitBreaker) setState(s State) {
	if cb.state == s {
		return
	}
	cb.state = s
	metrics.SetCircuitBreakerState(breakerComponent, s.String())
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}
