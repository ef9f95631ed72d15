package utils

import (
	"context"
	"math/rand"
	"time"
)

// RandomDelay sleeps for a random duration in [min, max). A zero range is a no-op.
func RandomDelay(ctx context.Context, min, max time.Duration) error {
	if max <= min {
		return Sleep(ctx, min)
	}
	diff := max - min
	return Sleep(ctx, min+time.Duration(rand.Int63n(int64(diff))))
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
