// Package retry runs an operation a bounded number of times with linearly
// increasing waits between attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retried operation. The wait after the n-th failed attempt
// is n*Base.
type Policy struct {
	Attempts int
	Base     time.Duration
	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Linear is a backoff.BackOff returning attempt*Base.
type Linear struct {
	Base    time.Duration
	attempt int
}

func (l *Linear) NextBackOff() time.Duration {
	l.attempt++
	return time.Duration(l.attempt) * l.Base
}

func (l *Linear) Reset() {
	l.attempt = 0
}

// Permanent marks an error that must not be retried.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op until it succeeds, returns a permanent error, the attempts are
// exhausted or ctx is done. The last operation error is returned.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var b backoff.BackOff = &Linear{Base: p.Base}
	b = backoff.WithMaxRetries(b, uint64(attempts-1))
	b = backoff.WithContext(b, ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return op(ctx)
	}, b, func(err error, wait time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
	})
}
