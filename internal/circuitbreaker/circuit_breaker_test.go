package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("smtp down")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func newTestBreaker(now *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(&Config{
		Name:                "mailer",
		MinCalls:            4,
		FailureThreshold:    0.5,
		ConsecutiveFailures: 3,
		Timeout:             time.Minute,
		HalfOpenMaxCalls:    1,
	})
	cb.now = func() time.Time { return *now }
	return cb
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_OpensOnFailureRate(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)
	ctx := context.Background()

	require.NoError(t, cb.Execute(ctx, ok))
	_ = cb.Execute(ctx, fail)
	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateOpen, cb.State(), "2 of 4 calls failed")
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	now := time.Now()
	var states []State
	cb := newTestBreaker(&now)
	cb.cfg.OnStateChange = func(_ string, s State) { states = append(states, s) }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	now = now.Add(2 * time.Minute)

	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, states)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	cb := newTestBreaker(&now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, fail)
	}
	now = now.Add(2 * time.Minute)

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
}
