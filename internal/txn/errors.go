package txn

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the executor.
var (
	// ErrAcquireFailed is returned when no connection could be obtained.
	ErrAcquireFailed = errors.New("failed to acquire connection")

	// ErrBeginFailed is returned when the transaction could not be started.
	ErrBeginFailed = errors.New("failed to begin transaction")

	// ErrCommitFailed is returned when the backend refused the commit.
	ErrCommitFailed = errors.New("failed to commit transaction")

	// ErrRollbackFailed only ever appears as a secondary error.
	ErrRollbackFailed = errors.New("failed to roll back transaction")

	// ErrReleaseFailed is returned when releasing the connection failed and
	// nothing failed before it.
	ErrReleaseFailed = errors.New("failed to release connection")

	// ErrDataAccess matches every *DataAccessError.
	ErrDataAccess = errors.New("data access failure")

	// ErrNoRows is returned by the select helpers when the query yields no row.
	ErrNoRows = errors.New("there was no row to be selected")

	// ErrNilWork is returned when a work unit has no body.
	ErrNilWork = errors.New("work unit has no body")

	// ErrExecutorClosed is returned after Close.
	ErrExecutorClosed = errors.New("executor is closed")
)

// TxError carries the primary failure of an invocation together with the
// failures that happened while cleaning up after it.
type TxError struct {
	Err       error
	Secondary []error
}

// Error implements the error interface for TxError.
func (e *TxError) Error() string {
	parts := make([]string, 0, len(e.Secondary))
	for _, s := range e.Secondary {
		parts = append(parts, s.Error())
	}
	return fmt.Sprintf("%v (cleanup: %s)", e.Err, strings.Join(parts, "; "))
}

// Unwrap returns only the primary error so errors.Is/As see the original cause.
func (e *TxError) Unwrap() error {
	return e.Err
}

// DataAccessError is the single error kind of the raw-connection variant.
// Cause follows the same priority as the session variant.
type DataAccessError struct {
	Cause error
}

// Error implements the error interface for DataAccessError.
func (e *DataAccessError) Error() string {
	return fmt.Sprintf("%s: %v", ErrDataAccess, e.Cause)
}

// Unwrap returns the wrapped cause.
func (e *DataAccessError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrDataAccess) hold for every DataAccessError.
func (e *DataAccessError) Is(target error) bool {
	return target == ErrDataAccess
}

// Secondary returns the cleanup failures attached to err, if any.
func Secondary(err error) []error {
	var txErr *TxError
	if errors.As(err, &txErr) {
		return txErr.Secondary
	}
	return nil
}

// resolve picks the error surfaced to the caller: work, else commit, else
// release. Anything else is attached as secondary context.
func resolve(work, commit, release error, secondary []error) error {
	primary := work
	if primary == nil {
		primary = commit
	}
	if primary == nil {
		return release
	}
	if release != nil {
		secondary = append(secondary, release)
	}
	if len(secondary) == 0 {
		return primary
	}
	return &TxError{Err: primary, Secondary: secondary}
}
