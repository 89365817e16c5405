package provider

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// PostgreSQL error codes that signal a competing lock holder
const (
	// lockNotAvailableCode is raised by NOWAIT and lock_timeout
	lockNotAvailableCode = "55P03"

	// serializationFailureCode is raised when MVCC detects a write conflict
	serializationFailureCode = "40001"

	// deadlockDetectedCode is raised when the backend breaks a lock cycle
	deadlockDetectedCode = "40P01"
)

// IsLockContention reports whether err means the statement lost a race for a
// lock: the backend refused it, detected a conflict or deadlock, or the
// statement timed out while waiting.
func IsLockContention(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case lockNotAvailableCode, serializationFailureCode, deadlockDetectedCode:
			return true
		}
		return false
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}
