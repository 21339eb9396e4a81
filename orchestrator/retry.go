package orchestrator

import (
	"context"
	"time"
)

// RetryPolicy defines retry behavior for tool execution.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	// Backoff multiplies Delay after each failed attempt. Values below 1
	// keep the delay fixed.
	Backoff float64

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetryPolicy(maxAttempts int, delay time.Duration, backoff float64) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if delay < 0 {
		delay = 0
	}
	if backoff < 1 {
		backoff = 1
	}
	return RetryPolicy{MaxAttempts: maxAttempts, Delay: delay, Backoff: backoff}
}

// Do runs fn until it succeeds or MaxAttempts is reached and returns the
// last error. Waiting between attempts stops early when ctx is done.
func (r RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	delay := r.Delay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if attempt == attempts {
			return err
		}
		if serr := sleep(ctx, delay); serr != nil {
			return err
		}
		if r.Backoff > 1 {
			delay = time.Duration(float64(delay) * r.Backoff)
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
