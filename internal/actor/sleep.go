package actor

import (
	"context"
	"time"
)

// Sleep pauses the calling actor for d, returning early with ctx's error.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SleepAfter runs fn on the calling goroutine, then sleeps for d and returns
// fn's value. A failing fn returns at once without sleeping.
func SleepAfter[V any](ctx context.Context, d time.Duration, fn func() (V, error)) (V, error) {
	v, err := fn()
	if err != nil {
		return v, err
	}
	if err := Sleep(ctx, d); err != nil {
		return v, err
	}
	return v, nil
}
