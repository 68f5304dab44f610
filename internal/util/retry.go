package util

import (
	"context"
	"time"
)

// Retry invokes fn until it succeeds, giving up after maxAttempts calls.
// The delay between calls starts at baseDelay and doubles each time. On
// exhaustion the error from the final call is returned; a cancelled context
// cuts the wait short.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		// No delay is owed after the final attempt.
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return err
}
