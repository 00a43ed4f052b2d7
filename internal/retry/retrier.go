package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retrier runs an operation until it succeeds, fails permanently, runs out of
// retries or its context ends. A Retrier is immutable and safe to share.
type Retrier struct {
	policy    Policy
	transient Classifier
	onRetry   func(attempt int, err error, wait time.Duration)
}

// New panics on a nil classifier.
func New(policy Policy, transient Classifier) *Retrier {
	if transient == nil {
		panic("retry: classifier cannot be nil")
	}
	return &Retrier{policy: policy, transient: transient}
}

// OnRetry returns a copy that calls fn before every wait.
// attempt counts from 1 and names the attempt that just failed.
func (r *Retrier) OnRetry(fn func(attempt int, err error, wait time.Duration)) *Retrier {
	clone := *r
	clone.onRetry = fn
	return &clone
}

// Do runs op. The last operation error is returned once retries are
// exhausted; when ctx ends first, the error wraps both ctx.Err() and it.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var (
		attempt int
		lastErr error
	)
	err := backoff.RetryNotify(func() error {
		attempt++
		lastErr = op(ctx)
		if lastErr != nil && !r.transient(lastErr) {
			return backoff.Permanent(lastErr)
		}
		return lastErr
	}, r.policy.backOff(ctx), func(err error, wait time.Duration) {
		if r.onRetry != nil {
			r.onRetry(attempt, err, wait)
		}
	})

	if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) && lastErr != nil && !errors.Is(lastErr, cerr) {
		return fmt.Errorf("%w after %d attempt(s): %w", err, attempt, lastErr)
	}
	return err
}
