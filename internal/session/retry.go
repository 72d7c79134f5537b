package session

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
)

// RetryPolicy bounds the automatic retries around store writes. The
// base delay doubles per attempt with a little jitter so two clients
// recovering together do not hammer the store in lockstep.
type RetryPolicy struct {
	MaxAttempts uint
	BaseDelay   time.Duration
	Jitter      float64
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Jitter:      0.2,
	}
}

func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.BaseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = p.Jitter

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, op()
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(p.MaxAttempts))

	return err
}

// Permanent marks err as non-retryable for Do.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
