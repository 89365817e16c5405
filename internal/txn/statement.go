package txn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Statements runs single statements against Q, each bounded by Timeout.
// A statement exceeding the bound fails with an error wrapping
// context.DeadlineExceeded.
type Statements struct {
	Q       DBTX
	Timeout time.Duration
}

func (s Statements) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// SelectString returns the first column of the first row as a string.
func (s Statements) SelectString(ctx context.Context, query string, args ...any) (string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var v sql.NullString
	if err := s.Q.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoRows
		}
		return "", fmt.Errorf("select string: %w", err)
	}
	return v.String, nil
}

// SelectStrings returns the first column of every row.
func (s Statements) SelectStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.Q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select strings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("select strings: %w", err)
		}
		out = append(out, v.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("select strings: %w", err)
	}
	return out, nil
}

// Count runs a single-value numeric query, typically SELECT COUNT(*).
func (s Statements) Count(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	var n int64
	if err := s.Q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNoRows
		}
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

// Update executes a modifying statement and returns the affected row count.
func (s Statements) Update(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	res, err := s.Q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update: rows affected: %w", err)
	}
	return n, nil
}
