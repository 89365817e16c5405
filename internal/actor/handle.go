package actor

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Work is a unit of work run on a lane.
type Work func(ctx context.Context) error

const (
	statePending int32 = iota
	stateRunning
	stateFinished
	stateCanceled
)

// Handle tracks one submitted work unit.
type Handle struct {
	id        uuid.UUID
	work      Work
	submitted time.Time
	state     atomic.Int32
	done      chan struct{}
	err       error
}

func newHandle(work Work) *Handle {
	return &Handle{
		id:        uuid.New(),
		work:      work,
		submitted: time.Now(),
		done:      make(chan struct{}),
	}
}

// ID identifies the unit in logs.
func (h *Handle) ID() uuid.UUID {
	return h.id
}

// Done is closed once the unit has finished or was canceled.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Finished reports whether the unit has completed.
func (h *Handle) Finished() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Err returns the unit's failure. It is nil until Done is closed.
func (h *Handle) Err() error {
	if !h.Finished() {
		return nil
	}
	return h.err
}

// Wait blocks until the unit completes or ctx ends. Ending ctx does not
// stop the unit.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel withdraws a unit that has not started yet. It reports false once
// the unit is running or finished; started units always run to completion.
func (h *Handle) Cancel() bool {
	if !h.state.CompareAndSwap(statePending, stateCanceled) {
		return false
	}
	h.err = ErrCanceled
	close(h.done)
	return true
}

// start claims the unit for execution.
func (h *Handle) start() bool {
	return h.state.CompareAndSwap(statePending, stateRunning)
}

func (h *Handle) finish(err error) {
	h.err = err
	h.state.Store(stateFinished)
	close(h.done)
}
