// Package retry runs operations under exponential backoff with additive jitter.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy bounds a retry loop. The wait before retry n (0-based) is
// BaseDelay * 2^n + uniform(0, Jitter).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}

// DefaultPolicy returns 5 attempts, 2s base delay and up to 1s of jitter.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 5, BaseDelay: 2 * time.Second, Jitter: time.Second}
}

// Normalize fills unset fields from DefaultPolicy. Negative values are clamped to zero.
func (p Policy) Normalize() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// Delay returns the wait before retry number attempt, without jitter.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	return p.BaseDelay << attempt
}

// exponential implements backoff.BackOff with the policy's formula.
type exponential struct {
	policy  Policy
	attempt int
}

func (e *exponential) NextBackOff() time.Duration {
	d := e.policy.Delay(e.attempt)
	if e.policy.Jitter > 0 {
		d += rand.N(e.policy.Jitter)
	}
	e.attempt++
	return d
}

func (e *exponential) Reset() { e.attempt = 0 }

// Notify is called before each wait with the failed attempt number (1-based),
// the error and the upcoming delay.
type Notify func(attempt int, err error, wait time.Duration)

// Do runs op until it succeeds, returns an error retryable rejects, the policy's
// attempt budget is spent, or ctx is done. The last error is returned unwrapped.
func Do[T any](ctx context.Context, p Policy, retryable func(error) bool, op func(context.Context) (T, error), notify Notify) (T, error) {
	p = p.Normalize()
	attempt := 0

	res, err := backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(&exponential{policy: p}),
		backoff.WithMaxTries(uint(p.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if notify != nil {
				notify(attempt, err, wait)
			}
		}),
	)

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		err = perm.Unwrap()
	}
	return res, err
}
