package model

import (
	"context"
	"math"
	"time"

	"github.com/loomrt/loom/pkg/loomerr"
)

// RetryPolicy configures the exponential backoff applied to retryable
// provider errors (Network, RateLimit) per §7.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is the smart-default backoff: 3 attempts, 200ms
// base delay doubling up to 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// WithRetry calls fn, retrying with exponential backoff while the
// returned error is retryable per loomerr.Kind.Retryable, up to
// policy.MaxAttempts. Non-retryable errors and context cancellation
// return immediately.
func WithRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return loomerr.New(loomerr.Cancelled, "model.retry", ctx.Err())
		}
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !loomerr.KindOf(err).Retryable() {
			return err
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}
		delay := time.Duration(math.Min(
			float64(policy.MaxDelay),
			float64(policy.BaseDelay)*math.Pow(2, float64(attempt)),
		))
		select {
		case <-ctx.Done():
			return loomerr.New(loomerr.Cancelled, "model.retry", ctx.Err())
		case <-time.After(delay):
		}
	}
	return lastErr
}
