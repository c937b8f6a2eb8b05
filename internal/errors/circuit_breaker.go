package errors

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	ErrorThreshold      = 0.5
	MinRequests         = 10
	TimeoutDuration     = 30 * time.Second
	HalfOpenMaxRequests = 3
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

var (
	errHalfOpenTooManyRequests = errors.New("too many requests in half-open")
)

var breakerStateRecorder = func(name, state string) {}

// RegisterBreakerStateRecorder allows external packages to observe breaker
// state changes, e.g. for metrics.
func RegisterBreakerStateRecorder(recorder func(name, state string)) {
	if recorder == nil {
		breakerStateRecorder = func(string, string) {}
		return
	}

	breakerStateRecorder = recorder
}

// CircuitBreaker guards calls against a remote dependency. It trips open once
// the error rate over a minimum number of requests crosses ErrorThreshold and
// probes with a limited number of half-open requests after TimeoutDuration.
type CircuitBreaker struct {
	name string

	mu              sync.Mutex
	state           State
	failures        int
	successes       int
	requests        int
	lastFailureTime time.Time
}

// NewCircuitBreaker constructs a closed breaker named after the dependency it
// protects (the name shows up in errors and metrics).
func NewCircuitBreaker(name string) *CircuitBreaker {
	return &CircuitBreaker{
		name:  name,
		state: StateClosed,
	}
}

func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	cb.mu.Lock()
	if cb.state == StateOpen {
		if time.Since(cb.lastFailureTime) >= TimeoutDuration {
			cb.transitionToLocked(StateHalfOpen)
		} else {
			cb.mu.Unlock()
			return fmt.Errorf("circuit breaker %s is open", cb.name)
		}
	}

	if cb.state == StateHalfOpen && cb.requests >= HalfOpenMaxRequests {
		cb.mu.Unlock()
		return errHalfOpenTooManyRequests
	}
	cb.mu.Unlock()

	callErr := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if callErr != nil {
		cb.failures++
		cb.requests++

		if cb.state == StateHalfOpen {
			cb.tripToOpenLocked()
		} else {
			cb.evaluateStateLocked()
		}

		return callErr
	}

	cb.successes++
	cb.requests++

	if cb.state == StateHalfOpen && cb.successes >= HalfOpenMaxRequests {
		cb.transitionToLocked(StateClosed)
	}

	return nil
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) evaluateStateLocked() {
	if cb.requests < MinRequests {
		return
	}

	errorRate := float64(cb.failures) / float64(cb.requests)
	if errorRate >= ErrorThreshold {
		cb.tripToOpenLocked()
	}
}

func (cb *CircuitBreaker) resetCountersLocked() {
	cb.failures = 0
	cb.successes = 0
	cb.requests = 0
}

func (cb *CircuitBreaker) transitionToLocked(state State) {
	cb.state = state
	cb.resetCountersLocked()
	breakerStateRecorder(cb.name, state.String())
}

func (cb *CircuitBreaker) tripToOpenLocked() {
	cb.state = StateOpen
	cb.lastFailureTime = time.Now()
	cb.resetCountersLocked()
	breakerStateRecorder(cb.name, StateOpen.String())
}
