package faults

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryWithBackoff runs op with exponential backoff, starting at initialDelay
// and doubling per attempt, for at most maxAttempts attempts.
//
// The payment flow never retries automatically - callers opt in per operation.
// Validation errors are terminal and are returned without further attempts.
func RetryWithBackoff(ctx context.Context, maxAttempts uint64, initialDelay time.Duration, op func(ctx context.Context) error) error {
	if maxAttempts == 0 {
		maxAttempts = 1
	}

	backoff := retry.WithMaxRetries(maxAttempts-1, retry.NewExponential(initialDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if Classify(err) == KindValidation {
			return err
		}
		return retry.RetryableError(err)
	})
}
