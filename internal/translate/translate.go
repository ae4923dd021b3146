// Package translate defines the pluggable translation capability and
// the shared bounded-retry policy applied to every backend.
package translate

import (
	"context"
	"fmt"
)

// Translator is the single capability the pipeline needs from a
// translation backend. Implementations may fail transiently; callers
// apply the retry policy and never branch on the concrete backend.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
	Name() string
}

// ServiceError marks a transient failure from the external service.
// It is the only error class the retry policy retries.
type ServiceError struct {
	Backend string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }
