// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package mediacms

import (
	"sync"
	"time"

	"github.com/ManuGH/mediablock/internal/metrics"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal operation, requests allowed
	StateOpen                  // Circuit open, requests blocked
	StateHalfOpen              // Probing whether the origin recovered
)

// CircuitBreaker stops calling an origin after repeated failures.
// A zero threshold disables it.
type CircuitBreaker struct {
	origin string

	mu               sync.Mutex
	state            State
	failures         int
	failureThreshold int
	resetTimeout     time.Duration
	lastFailure      time.Time

	// counts decides whether err is an origin health failure.
	counts func(error) bool
	now    func() time.Time
}

// NewCircuitBreaker creates a breaker for origin, reported under that label.
func NewCircuitBreaker(origin string, threshold int, resetTimeout time.Duration, counts func(error) bool) *CircuitBreaker {
	if counts == nil {
		counts = func(err error) bool { return err != nil }
	}
	return &CircuitBreaker{
		origin:           origin,
		state:            StateClosed,
		failureThreshold: threshold,
		resetTimeout:     resetTimeout,
		counts:           counts,
		now:              time.Now,
	}
}

// Execute runs fn if the circuit allows it and records the outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb == nil || cb.failureThreshold <= 0 {
		return fn()
	}
	if !cb.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil && cb.counts(err) {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return err
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed, StateHalfOpen:
		return true
	default:
		if cb.now().Sub(cb.lastFailure) > cb.resetTimeout {
			cb.transition(StateHalfOpen)
			return true
		}
		return false
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()
	if cb.state == StateHalfOpen || cb.failures >= cb.failureThreshold {
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.transition(StateClosed)
}

// transition must be called with mu held.
func (cb *CircuitBreaker) transition(next State) {
	if cb.state == next {
		return
	}
	cb.state = next
	metrics.SetBreakerState(cb.origin, stateGauge(next))
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func stateGauge(state State) int {
	switch state {
	case StateOpen:
		return metrics.BreakerOpen
	case StateHalfOpen:
		return metrics.BreakerHalfOpen
	default:
		return metrics.BreakerClosed
	}
}
