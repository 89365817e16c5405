package txn

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/phrazzld/txlab/internal/provider"
)

// Session is the handle a work body uses to talk to the database. It is bound
// to the invocation's transaction and must not escape the body.
type Session struct {
	inv     *invocation
	timeout time.Duration
	logSQL  bool
}

var _ DBTX = (*Session)(nil)

func newSession(e *Executor, inv *invocation) *Session {
	return &Session{
		inv:     inv,
		timeout: e.opts.StatementTimeout,
		logSQL:  e.opts.LogStatements,
	}
}

// Tx returns the underlying transaction.
func (s *Session) Tx() *sql.Tx {
	return s.inv.tx
}

// Provider returns the backend the session runs against.
func (s *Session) Provider() provider.Provider {
	return s.inv.provider
}

// Dialect returns the backend dialect id.
func (s *Session) Dialect() string {
	return s.inv.provider.Dialect()
}

// Statements returns statement helpers bound to this session's transaction.
func (s *Session) Statements() Statements {
	return Statements{Q: s, Timeout: s.timeout}
}

// ExecContext executes a statement in the session's transaction.
func (s *Session) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	defer s.trace(query, len(args), time.Now())
	return s.inv.tx.ExecContext(ctx, query, args...)
}

// PrepareContext prepares a statement in the session's transaction.
func (s *Session) PrepareContext(ctx context.Context, query string) (*sql.Stmt, error) {
	defer s.trace(query, 0, time.Now())
	return s.inv.tx.PrepareContext(ctx, query)
}

// QueryContext runs a query in the session's transaction.
func (s *Session) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	defer s.trace(query, len(args), time.Now())
	return s.inv.tx.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query in the session's transaction.
func (s *Session) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	defer s.trace(query, len(args), time.Now())
	return s.inv.tx.QueryRowContext(ctx, query, args...)
}

func (s *Session) trace(query string, args int, start time.Time) {
	if !s.logSQL {
		return
	}
	s.inv.log.Debug("statement",
		slog.String("sql", query),
		slog.Int("args", args),
		slog.Duration("elapsed", time.Since(start)),
	)
}
