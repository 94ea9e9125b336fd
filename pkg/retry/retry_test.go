package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinear_Waits(t *testing.T) {
	l := &Linear{Base: 2 * time.Second}
	assert.Equal(t, 2*time.Second, l.NextBackOff())
	assert.Equal(t, 4*time.Second, l.NextBackOff())
	assert.Equal(t, 6*time.Second, l.NextBackOff())
	l.Reset()
	assert.Equal(t, 2*time.Second, l.NextBackOff())
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	var waits []time.Duration
	err := Do(context.Background(), Policy{
		Attempts: 3,
		Base:     time.Millisecond,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			waits = append(waits, wait)
		},
	}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond}, waits)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Do(context.Background(), Policy{Attempts: 4, Base: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	bad := errors.New("bad input")
	err := Do(context.Background(), Policy{Attempts: 5, Base: time.Millisecond}, func(ctx context.Context) error {
		calls++
		return Permanent(bad)
	})

	assert.ErrorIs(t, err, bad)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{Attempts: 5, Base: time.Hour}, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("retry me")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), Policy{}, func(ctx context.Context) error {
		calls++
		return errors.New("x")
	})
	assert.Equal(t, 1, calls)
}
