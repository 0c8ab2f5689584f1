package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errTransient = errors.New("transient")

func TestRetryable(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	err := Retryable(errTransient)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != errTransient.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if !errors.Is(err, errTransient) {
		t.Error("wrapped error should be reachable with errors.Is")
	}
	if IsRetryable(errTransient) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestDo(t *testing.T) {
	ctx := context.Background()
	permanent := errors.New("permanent")

	tests := []struct {
		name      string
		attempts  int
		failures  int   // retryable failures before success
		fail      error // returned instead of success when set
		wantCalls int
		wantErr   error
	}{
		{name: "first try", attempts: 3, wantCalls: 1},
		{name: "retry once", attempts: 3, failures: 1, wantCalls: 2},
		{name: "exhausted", attempts: 3, failures: 5, wantCalls: 3, wantErr: errTransient},
		{name: "permanent", attempts: 3, fail: permanent, wantCalls: 1, wantErr: permanent},
		{name: "zero attempts runs once", attempts: 0, failures: 5, wantCalls: 1, wantErr: errTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(ctx, tt.attempts, time.Millisecond, func() error {
				calls++
				if tt.fail != nil {
					return tt.fail
				}
				if calls <= tt.failures {
					return Retryable(errTransient)
				}
				return nil
			})
			if err != tt.wantErr {
				t.Errorf("Do() error = %v, want %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
		})
	}
}

func TestDoContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, 3, time.Hour, func() error {
		return Retryable(errTransient)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
