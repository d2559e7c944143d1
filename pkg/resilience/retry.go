package resilience

import (
	"context"
	"time"
)

// RetryPolicy defines retry behavior for transient failures.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

// Do retries fn up to MaxRetries times with a fixed backoff. Rate-limit
// errors are returned immediately; retrying into a 429 only extends the
// provider's penalty window. Context cancellation cuts the backoff short.
func (r RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i <= r.MaxRetries; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if IsRateLimit(err) || i == r.MaxRetries {
			return err
		}
		select {
		case <-time.After(r.Backoff):
		case <-ctx.Done():
			return err
		}
	}
	return err
}
