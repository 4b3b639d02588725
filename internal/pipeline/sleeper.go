package pipeline

import (
	"context"
	"time"
)

// Sleeper waits out a propagation delay. Tests inject a no-op; production
// uses the context-aware default so a canceled pipeline stops waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

func defaultSleeper(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
