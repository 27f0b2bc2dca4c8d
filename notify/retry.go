package notify

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds the attempts made for one side effect
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	// Multiplier grows the delay after each failed attempt. Values below 1
	// keep the delay fixed.
	Multiplier float64
}

// DefaultRetryPolicy makes three attempts two seconds apart, doubling the delay
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Delay: 2 * time.Second, Multiplier: 2}

// Retry calls fn until it succeeds, the attempts run out or ctx is done.
// The last error is returned.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := policy.Delay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (after %d attempts: %v)", ctx.Err(), attempt, err)
		case <-timer.C:
		}
		if policy.Multiplier > 1 {
			delay = time.Duration(float64(delay) * policy.Multiplier)
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}
