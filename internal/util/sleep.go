package util

import (
	"context"
	"time"
)

// Sleep blocks for d or until the context is cancelled, whichever comes
// first. It returns the context error on cancellation, nil otherwise.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
