package retry

import (
	"context"

	"github.com/cenkalti/backoff/v4"
)

// BackOff is the schedule for p: exponential and capped at MaxInterval, with
// at most MaxAttempts calls in total. It stops early when ctx is done or
// MaxElapsedTime has passed; a zero MaxElapsedTime never stops on time.
func (p Policy) BackOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultPolicy().MaxAttempts
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.Multiplier = p.Multiplier
	exp.MaxElapsedTime = p.MaxElapsedTime
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}
