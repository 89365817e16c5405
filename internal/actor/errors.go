package actor

import "errors"

// Common errors returned by Lane
var (
	ErrQueueFull      = errors.New("lane queue is full")
	ErrLaneClosed     = errors.New("lane is closed")
	ErrLaneNotStarted = errors.New("lane is not started")
	ErrLaneFailed     = errors.New("lane failed")
	ErrCanceled       = errors.New("work unit canceled before it started")
	ErrNilWork        = errors.New("work unit is nil")
	ErrReentrant      = errors.New("lane cannot wait on itself")
)

// PanicError is the failure recorded for a work unit that panicked.
type PanicError struct {
	Value any
}

// Error implements the error interface for PanicError.
func (e *PanicError) Error() string {
	return "work unit panicked: " + formatPanic(e.Value)
}
