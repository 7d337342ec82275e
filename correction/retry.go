package correction

import (
	"context"
	"time"
)

// RetryObserver is invoked before each retry wait so callers can log
// or trace. attempt is 1-based, delay is the upcoming wait.
type RetryObserver func(attempt int, delay time.Duration, err error)

// WithRetry runs op, then up to retries more times after a failure,
// waiting baseDelay between attempts (doubled each time when
// exponential). The observer, if any, runs before each wait. The last
// error is surfaced when every attempt fails; context cancellation
// during a wait aborts with the context's error.
func WithRetry(ctx context.Context, retries int, baseDelay time.Duration, exponential bool, observer RetryObserver, op func(context.Context) error) error {
	var lastErr error
	delay := baseDelay

	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			if observer != nil {
				observer(attempt, delay, lastErr)
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			if exponential {
				delay *= 2
			}
		}

		if lastErr = op(ctx); lastErr == nil {
			return nil
		}
	}
	return lastErr
}
