package txn

import (
	"context"
	"database/sql"
)

// DBTX is an interface that abstracts the database access layer.
// It is implemented by *sql.DB, *sql.Conn, *sql.Tx and *Session, allowing
// statement helpers to work with any of them.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// resource is the unit-of-work handle acquired per invocation.
// *sql.Conn satisfies it.
type resource interface {
	DBTX
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
	Close() error
}

func acquireConn(ctx context.Context, db *sql.DB) (resource, error) {
	return db.Conn(ctx)
}
