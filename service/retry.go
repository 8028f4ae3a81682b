package service

import (
	"context"
	"math/rand/v2"
	"time"
)

// Retrier retries an operation with exponential backoff.
// The zero value performs a single attempt.
type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}

// Do calls fn until it succeeds, the error is fatal, the context is done or
// MaxAttempts is reached. It returns the last error.
// The backoff before attempt i is BaseDelay*(2^i-1) plus a random part of Jitter.
func (r Retrier) Do(ctx context.Context, fn func() error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if delay := r.delay(i); delay > 0 {
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return MergeErrors(true, err, ctx.Err())
			case <-t.C:
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if Fatal(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (r Retrier) delay(attempt int) time.Duration {
	if attempt == 0 {
		return 0
	}
	delay := time.Duration((1<<attempt)-1) * r.BaseDelay
	if r.Jitter > 0 {
		delay += rand.N(r.Jitter)
	}
	return delay
}

// Retriable retries fn up to nbTries times, waiting delay*(2^i-1) between attempts
func Retriable(ctx context.Context, fn func() error, delay time.Duration, nbTries int) error {
	return Retrier{MaxAttempts: nbTries, BaseDelay: delay}.Do(ctx, fn)
}
