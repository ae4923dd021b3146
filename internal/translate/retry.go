package translate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultMinDelay    = 1 * time.Second
	defaultMaxDelay    = 3 * time.Second
)

// Policy bounds retries of a fallible operation. Between attempts it
// sleeps a uniformly random duration in [MinDelay, MaxDelay] so that
// concurrent workers do not hammer the external service in lockstep.
type Policy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration

	// Sleep overrides how backoff waits are performed. Tests inject a
	// recorder here; nil means a context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy returns the standard policy: 3 attempts, 1–3s backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: defaultMaxAttempts,
		MinDelay:    defaultMinDelay,
		MaxDelay:    defaultMaxDelay,
	}
}

// Do runs op up to p.MaxAttempts times. Only *ServiceError is retried;
// context cancellation and any other error return immediately. The
// final failure is wrapped with the attempt count.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		var svcErr *ServiceError
		if !errors.As(err, &svcErr) {
			return err
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if attempt == attempts {
			break
		}
		if err := p.sleep(ctx, p.backoff()); err != nil {
			return err
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

func (p Policy) backoff() time.Duration {
	minD, maxD := p.MinDelay, p.MaxDelay
	if minD <= 0 {
		minD = defaultMinDelay
	}
	if maxD < minD {
		maxD = minD
	}
	if maxD == minD {
		return minD
	}
	return minD + time.Duration(rand.Int63n(int64(maxD-minD)))
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
