// Package txn runs units of work inside managed transactions.
//
// Every invocation acquires one dedicated connection from the provider's pool,
// runs the optional before hook outside the transaction, begins the
// transaction, runs the body, commits on success or rolls back on failure,
// runs the after hook, and releases the connection exactly once, on every
// path including panics.
//
// # Error policy
//
// The body's error is returned unchanged. Commit failures carry
// ErrCommitFailed and a release failure with nothing else wrong carries
// ErrReleaseFailed. Failures that happen while cleaning up after another
// failure never replace it: they are logged and attached to a *TxError whose
// Unwrap yields the original error. The raw-connection variant applies the
// same priority and additionally wraps the result in a *DataAccessError.
package txn
