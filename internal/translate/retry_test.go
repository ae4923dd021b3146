package translate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	p := Policy{MaxAttempts: 3, Sleep: noSleep}

	calls := 0
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		if calls < 3 {
			return &ServiceError{Backend: "stub", Err: errors.New("transient")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, Sleep: noSleep}

	calls := 0
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return &ServiceError{Backend: "stub", Err: errors.New("always")}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "failed after 3 attempts")

	var svcErr *ServiceError
	assert.ErrorAs(t, err, &svcErr)
}

func TestDoNonTransientNotRetried(t *testing.T) {
	p := Policy{MaxAttempts: 5, Sleep: noSleep}

	calls := 0
	fatal := errors.New("parse failure")
	err := Do(context.Background(), p, func(context.Context) error {
		calls++
		return fatal
	})
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(ctx, Policy{MaxAttempts: 3, Sleep: noSleep}, func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDoCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	p := Policy{
		MaxAttempts: 3,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}
	err := Do(ctx, p, func(context.Context) error {
		calls++
		return &ServiceError{Backend: "stub", Err: errors.New("transient")}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffWithinBounds(t *testing.T) {
	p := Policy{MinDelay: time.Second, MaxDelay: 3 * time.Second}
	for i := 0; i < 100; i++ {
		d := p.backoff()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 3*time.Second)
	}
}

func TestBackoffDegenerateRange(t *testing.T) {
	p := Policy{MinDelay: 2 * time.Second, MaxDelay: 2 * time.Second}
	assert.Equal(t, 2*time.Second, p.backoff())
}
