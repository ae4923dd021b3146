package engine

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"subtrans/internal/translate"
)

// identityBackend returns input unchanged and counts calls.
type identityBackend struct {
	calls atomic.Int64
}

func (b *identityBackend) Name() string { return "identity" }

func (b *identityBackend) Translate(_ context.Context, text string) (string, error) {
	b.calls.Add(1)
	return text, nil
}

// flakyBackend fails with a transient error a fixed number of times
// before behaving like the identity backend.
type flakyBackend struct {
	failures int32
	calls    atomic.Int32
}

func (b *flakyBackend) Name() string { return "flaky" }

func (b *flakyBackend) Translate(_ context.Context, text string) (string, error) {
	n := b.calls.Add(1)
	if n <= b.failures {
		return "", &translate.ServiceError{Backend: b.Name(), Err: errors.New("transient")}
	}
	return text, nil
}

// failFileBackend fails every request whose text carries a marker
// substring; everything else passes through unchanged.
type failFileBackend struct {
	marker string
	calls  atomic.Int64
}

func (b *failFileBackend) Name() string { return "failfile" }

func (b *failFileBackend) Translate(_ context.Context, text string) (string, error) {
	b.calls.Add(1)
	if strings.Contains(text, b.marker) {
		return "", &translate.ServiceError{Backend: b.Name(), Err: errors.New("refused")}
	}
	return text, nil
}

// cancellingBackend triggers cancellation once a given number of calls
// has completed. Every call still succeeds.
type cancellingBackend struct {
	cancel context.CancelFunc
	after  int64
	calls  atomic.Int64
}

func (b *cancellingBackend) Name() string { return "cancelling" }

func (b *cancellingBackend) Translate(_ context.Context, text string) (string, error) {
	if b.calls.Add(1) == b.after {
		b.cancel()
	}
	return text, nil
}

// upperBackend upper-cases input so tests can observe a real change.
type upperBackend struct{}

func (upperBackend) Name() string { return "upper" }

func (upperBackend) Translate(_ context.Context, text string) (string, error) {
	return strings.ToUpper(text), nil
}

// fastRetry is a policy that never sleeps, for tests.
func fastRetry(attempts int) translate.Policy {
	return translate.Policy{
		MaxAttempts: attempts,
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
}

const srtOneCue = "1\n00:00:01,000 --> 00:00:02,000\nhello API world\n"

const srtTwoCues = "1\n00:00:01,000 --> 00:00:02,000\nfirst cue\n\n" +
	"2\n00:00:03,000 --> 00:00:04,000\nsecond cue\n"
