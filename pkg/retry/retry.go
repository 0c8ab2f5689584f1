// Package retry runs operations again after transient failures.
//
// Only errors marked with [Retryable] are retried; anything else is returned
// at once. The delay doubles after each failed attempt.
//
//	err := retry.Do(ctx, 3, time.Second, func() error {
//	    if err := conv.Start(ctx); err != nil {
//	        return retry.Retryable(err)
//	    }
//	    return nil
//	})
package retry

import (
	"context"
	"errors"
	"time"
)

// Defaults used by WithBackoff.
const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// RetryableError marks an error as transient.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as transient. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err was marked with Retryable.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Do executes fn up to attempts times with exponential backoff starting at
// delay. It returns nil on the first success, the first non-retryable
// error, the last error once attempts are exhausted, or ctx.Err() if ctx is
// done while waiting. Errors are returned unwrapped from RetryableError.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := 0; i < attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = unwrap(err)
		if !IsRetryable(err) {
			return lastErr
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// WithBackoff is Do with DefaultAttempts and DefaultDelay.
func WithBackoff(ctx context.Context, fn func() error) error {
	return Do(ctx, DefaultAttempts, DefaultDelay, fn)
}

func unwrap(err error) error {
	var re *RetryableError
	if errors.As(err, &re) {
		return re.Err
	}
	return err
}
