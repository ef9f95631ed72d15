package utils

import (
	"context"
	"fmt"
	"time"
)

// Retry runs fn up to maxRetries times, doubling the wait after each failure
// (1s, 2s, 4s...). It gives up early if ctx is cancelled.
//
//	err := utils.Retry(ctx, 3, func() error {
//	    return fetcher.Fetch(ctx, url)
//	})
func Retry(ctx context.Context, maxRetries int, fn func() error) error {
	return retry(ctx, maxRetries, time.Second, fn)
}

func retry(ctx context.Context, maxRetries int, base time.Duration, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}

		wait := base << uint(attempt-1)
		Warn("Attempt %d/%d failed: %v, retrying in %v", attempt, maxRetries, lastErr, wait)
		if err := Sleep(ctx, wait); err != nil {
			return err
		}
	}

	if maxRetries == 1 {
		return lastErr
	}
	return fmt.Errorf("all %d attempts failed: %w", maxRetries, lastErr)
}
