package pipeline

import (
	"context"
	"time"

	"github.com/matzehuels/svg2avd/pkg/converter"
	"github.com/matzehuels/svg2avd/pkg/retry"

	errs "github.com/matzehuels/svg2avd/pkg/errors"
)

// Factory creates an unstarted converter.
type Factory func() *converter.Converter

// Open starts a session from factory, retrying failed starts with the
// default backoff. Each attempt uses a fresh converter.
func Open(ctx context.Context, factory Factory) (*converter.Converter, error) {
	return OpenWith(ctx, retry.DefaultAttempts, retry.DefaultDelay, factory)
}

// OpenWith is Open with explicit attempts and initial delay.
func OpenWith(ctx context.Context, attempts int, delay time.Duration, factory Factory) (*converter.Converter, error) {
	var conv *converter.Converter
	err := retry.Do(ctx, attempts, delay, func() error {
		c := factory()
		if err := c.Start(ctx); err != nil {
			if errs.Is(err, errs.ErrCodeSessionStart) {
				return retry.Retryable(err)
			}
			return err
		}
		conv = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}
