package ingest

import (
	"context"
	"time"
)

// RetryPolicy controls retries of a live fetch within its deadline.
type RetryPolicy struct {
	MaxRetries  int           // retry attempts after the first call
	BaseBackoff time.Duration // initial backoff duration
	MaxBackoff  time.Duration // upper bound on backoff
	JitterFn    func(time.Duration) time.Duration
	Retryable   func(error) bool // nil treats every error as retryable
}

// DefaultRetryPolicy keeps retries short; the whole fetch is bounded by
// half a sampling interval anyway.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  2,
		BaseBackoff: 50 * time.Millisecond,
		MaxBackoff:  250 * time.Millisecond,
		JitterFn:    func(d time.Duration) time.Duration { return d / 2 },
	}
}

// Retry executes fn with retries, backoff, and cancellation support.
//
// fn must return nil on success.
func Retry(
	ctx context.Context,
	policy RetryPolicy,
	fn func() error,
) error {

	var attempt int
	var backoff = policy.BaseBackoff

	for {
		err := fn()
		if err == nil {
			return nil
		}
		if policy.Retryable != nil && !policy.Retryable(err) {
			return err
		}

		attempt++
		if attempt > policy.MaxRetries {
			return err
		}

		delay := backoff
		if policy.JitterFn != nil {
			delay += policy.JitterFn(backoff)
		}
		if delay > policy.MaxBackoff {
			delay = policy.MaxBackoff
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
			backoff *= 2
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
