// Package resilience provides failure-handling primitives for external
// dependencies: a circuit breaker for hard-down services and a fallback chain
// that walks an ordered list of alternatives until one succeeds.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the breaker is
// open and calls are being short-circuited.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// BreakerState is the current state of a [CircuitBreaker].
type BreakerState int

const (
	// StateClosed allows all calls through. Failures are counted.
	StateClosed BreakerState = iota
	// StateOpen rejects all calls until the cooldown elapses.
	StateOpen
	// StateHalfOpen allows a single probe call through; its outcome decides
	// whether the breaker closes again or re-opens.
	StateHalfOpen
)

// String returns a human-readable state name for logging.
func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreaker protects a downstream dependency from sustained failure.
// After maxFailures consecutive failures it opens and rejects calls for the
// cooldown period; the first call after the cooldown is a probe whose outcome
// closes or re-opens the breaker. Safe for concurrent use.
type CircuitBreaker struct {
	mu          sync.Mutex
	state       BreakerState
	failures    int
	maxFailures int
	cooldown    time.Duration
	openedAt    time.Time
	probing     bool
}

// NewCircuitBreaker returns a closed [CircuitBreaker] that opens after
// maxFailures consecutive failures and stays open for cooldown. Values below
// the minimum are clamped (maxFailures >= 1, cooldown >= 1s).
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	if cooldown < time.Second {
		cooldown = time.Second
	}
	return &CircuitBreaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
	}
}

// Execute runs fn under the breaker's protection. When the breaker is open
// (or a half-open probe is already in flight) it returns [ErrCircuitOpen]
// without invoking fn; otherwise fn's error is recorded and returned.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// State returns the breaker's current state, transitioning open -> half-open
// when the cooldown has elapsed.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpen()
	return cb.state
}

// Reset forces the breaker back to closed with a clean failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probing = false
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.maybeHalfOpen()
	switch cb.state {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probing {
			return ErrCircuitOpen
		}
		cb.probing = true
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.state = StateClosed
		cb.failures = 0
		cb.probing = false
		return
	}

	cb.probing = false
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = StateOpen
		cb.openedAt = time.Now()
	}
}

// maybeHalfOpen transitions open -> half-open once the cooldown has elapsed.
// Caller must hold cb.mu.
func (cb *CircuitBreaker) maybeHalfOpen() {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.cooldown {
		cb.state = StateHalfOpen
		cb.probing = false
	}
}
