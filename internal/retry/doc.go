// Package retry re-runs connection attempts against the frePPLe and ERP
// databases while their failures look temporary.
//
// A Retrier pairs a Policy (how long to wait, how many times) with a
// Classifier (which errors are worth waiting for). Target and Source are the
// classifiers for the two sides of a sync pass:
//
//	r := retry.New(retry.DefaultPolicy(), retry.Target).
//		OnRetry(func(n int, err error, wait time.Duration) {
//			logger.Verbose("attempt %d failed, retrying in %v: %v", n, wait, err)
//		})
//	err := r.Do(ctx, connect)
//
// Scheduling is delegated to github.com/cenkalti/backoff.
package retry
