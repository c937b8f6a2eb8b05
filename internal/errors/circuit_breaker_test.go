package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerStaysClosedBelowMinRequests(t *testing.T) {
	cb := NewCircuitBreaker("dep")
	boom := errors.New("boom")

	for i := 0; i < MinRequests-1; i++ {
		_ = cb.Call(func() error { return boom })
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerTripsOpenOnErrorRate(t *testing.T) {
	cb := NewCircuitBreaker("dep")
	boom := errors.New("boom")

	for i := 0; i < MinRequests; i++ {
		_ = cb.Call(func() error { return boom })
	}

	require.Equal(t, StateOpen, cb.State())

	err := cb.Call(func() error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dep")
}

func TestBreakerStaysClosedOnHealthyTraffic(t *testing.T) {
	cb := NewCircuitBreaker("dep")

	for i := 0; i < MinRequests*2; i++ {
		require.NoError(t, cb.Call(func() error { return nil }))
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerMixedTrafficBelowThresholdStaysClosed(t *testing.T) {
	cb := NewCircuitBreaker("dep")
	boom := errors.New("boom")

	// 4 failures out of 10 stays under the 50% threshold.
	for i := 0; i < MinRequests; i++ {
		if i < 4 {
			_ = cb.Call(func() error { return boom })
			continue
		}
		_ = cb.Call(func() error { return nil })
	}

	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerStateRecorderObservesTrip(t *testing.T) {
	var states []string
	RegisterBreakerStateRecorder(func(name, state string) {
		if name == "recorded-dep" {
			states = append(states, state)
		}
	})
	t.Cleanup(func() { RegisterBreakerStateRecorder(nil) })

	cb := NewCircuitBreaker("recorded-dep")
	boom := errors.New("boom")
	for i := 0; i < MinRequests; i++ {
		_ = cb.Call(func() error { return boom })
	}

	assert.Equal(t, []string{"open"}, states)
}

func TestBreakerNilCall(t *testing.T) {
	cb := NewCircuitBreaker("dep")
	assert.NoError(t, cb.Call(nil))
}
