package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	breaker := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute, HalfOpenMaxReq: 1})
	boom := errors.New("boom")

	for i := 0; i < 2; i++ {
		err := breaker.Do(func() error { return boom })
		require.ErrorIs(t, err, boom)
	}

	err := breaker.Do(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, CircuitStateOpen, breaker.State())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	breaker := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Minute, HalfOpenMaxReq: 1})
	boom := errors.New("boom")

	require.Error(t, breaker.Do(func() error { return boom }))
	require.NoError(t, breaker.Do(func() error { return nil }))
	require.Error(t, breaker.Do(func() error { return boom }))

	assert.Equal(t, CircuitStateClosed, breaker.State())
}

func TestCircuitBreaker_RecoversThroughHalfOpen(t *testing.T) {
	t.Parallel()

	breaker := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute, HalfOpenMaxReq: 1})
	current := time.Unix(0, 0)
	breaker.now = func() time.Time { return current }

	require.Error(t, breaker.Do(func() error { return errors.New("boom") }))
	require.Equal(t, CircuitStateOpen, breaker.State())

	current = current.Add(2 * time.Minute)
	require.NoError(t, breaker.Do(func() error { return nil }))
	assert.Equal(t, CircuitStateClosed, breaker.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	breaker := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute, HalfOpenMaxReq: 1})
	current := time.Unix(0, 0)
	breaker.now = func() time.Time { return current }

	require.Error(t, breaker.Do(func() error { return errors.New("boom") }))

	current = current.Add(2 * time.Minute)
	require.Error(t, breaker.Do(func() error { return errors.New("still down") }))
	assert.Equal(t, CircuitStateOpen, breaker.State())
}
