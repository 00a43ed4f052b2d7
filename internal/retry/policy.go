package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/vvka-141/erpsync/pkg/erpsync"
)

// Policy is an exponential retry schedule.
type Policy struct {
	// Retries after the first attempt. Negative retries until the context ends.
	Retries      int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter randomizes each delay by up to this fraction in either direction.
	Jitter float64
}

// DefaultPolicy is used for both database connections.
func DefaultPolicy() Policy {
	return Policy{
		Retries:      erpsync.DefaultRetryMaxAttempts,
		InitialDelay: erpsync.DefaultRetryInitialDelay,
		MaxDelay:     erpsync.DefaultRetryMaxDelay,
		Multiplier:   2,
		Jitter:       0.1,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialDelay
	exp.MaxInterval = p.MaxDelay
	exp.Multiplier = p.Multiplier
	exp.RandomizationFactor = p.Jitter
	exp.MaxElapsedTime = 0
	if exp.Multiplier < 1 {
		exp.Multiplier = 1
	}
	exp.Reset()

	var b backoff.BackOff = exp
	if p.Retries >= 0 {
		b = backoff.WithMaxRetries(b, uint64(p.Retries))
	}
	return backoff.WithContext(b, ctx)
}

// Delays lists the waits the policy produces, at most n of them.
// With jitter the values are only approximate.
func (p Policy) Delays(n int) []time.Duration {
	b := p.backOff(context.Background())
	var out []time.Duration
	for range n {
		d := b.NextBackOff()
		if d == backoff.Stop {
			break
		}
		out = append(out, d)
	}
	return out
}
