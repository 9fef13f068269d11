package utils

import (
	"context"
	"strings"
	"time"
)

// TimedFunc is an operation bounded by its own deadline.
type TimedFunc[T any] func(ctx context.Context) (T, error)

// ContainsAny reports whether the error message contains one of patterns,
// compared case-insensitively.
func ContainsAny(err error, patterns []string) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	for _, pattern := range patterns {
		if strings.Contains(errMsg, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// WithTimeout runs operation under a child context that expires after timeout.
// A non-positive timeout runs it under ctx unchanged.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, operation TimedFunc[T]) (T, error) {
	if timeout <= 0 {
		return operation(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return operation(attemptCtx)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
