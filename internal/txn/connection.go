package txn

import (
	"context"
	"database/sql"

	"github.com/phrazzld/txlab/internal/provider"
)

// RunInConnection is the raw-connection variant: before receives the bare
// connection prior to the transaction, work receives the transaction itself.
// Every failure, including acquire failures, is returned as a *DataAccessError.
// There are no after hooks.
func RunInConnection[T any](
	ctx context.Context,
	e *Executor,
	p provider.Provider,
	before func(ctx context.Context, conn DBTX) error,
	work func(ctx context.Context, tx *sql.Tx) (T, error),
) (T, error) {
	var result T
	if work == nil {
		return result, &DataAccessError{Cause: ErrNilWork}
	}

	inv, err := e.begin(ctx, p)
	if err != nil {
		return result, &DataAccessError{Cause: err}
	}

	var pre func(context.Context) error
	if before != nil {
		pre = func(ctx context.Context) error {
			return before(ctx, inv.res)
		}
	}

	var out T
	err = inv.drive(ctx, lifecycle{
		pre: pre,
		body: func(ctx context.Context) error {
			v, err := work(ctx, inv.tx)
			if err != nil {
				return err
			}
			out = v
			return nil
		},
	})
	if err != nil {
		return result, &DataAccessError{Cause: err}
	}
	return out, nil
}

// Transact runs a value-less raw-connection work unit.
func (e *Executor) Transact(
	ctx context.Context,
	p provider.Provider,
	before func(ctx context.Context, conn DBTX) error,
	work func(ctx context.Context, tx *sql.Tx) error,
) error {
	var fn func(context.Context, *sql.Tx) (struct{}, error)
	if work != nil {
		fn = func(ctx context.Context, tx *sql.Tx) (struct{}, error) {
			return struct{}{}, work(ctx, tx)
		}
	}
	_, err := RunInConnection(ctx, e, p, before, fn)
	return err
}
