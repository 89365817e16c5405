package actor

import (
	"context"
	"fmt"
)

type laneKey struct{}

// CurrentActor returns the name of the lane running ctx's work unit.
// It reports false on the caller's own goroutine.
func CurrentActor(ctx context.Context) (string, bool) {
	l, ok := ctx.Value(laneKey{}).(*Lane)
	if !ok {
		return "", false
	}
	return l.name, true
}

func laneFrom(ctx context.Context) *Lane {
	l, _ := ctx.Value(laneKey{}).(*Lane)
	return l
}

func formatPanic(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(v)
}

// protect runs fn and converts a panic into a *PanicError.
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return fn()
}
