package txn

import (
	"context"

	"github.com/phrazzld/txlab/internal/provider"
)

// Work is a unit of work run inside one transaction.
// Before runs outside the transaction on the freshly opened connection;
// After runs once the transaction has been committed or rolled back,
// whatever the outcome. Both hooks are optional.
type Work[T any] struct {
	Body   func(ctx context.Context, s *Session) (T, error)
	Before func()
	After  func()
}

// Run executes w against p and returns the body's result on commit.
// On failure the zero value of T is returned along with the error chosen by
// the error policy described in the package documentation.
func Run[T any](ctx context.Context, e *Executor, p provider.Provider, w Work[T]) (T, error) {
	var result T
	if w.Body == nil {
		return result, ErrNilWork
	}

	inv, err := e.begin(ctx, p)
	if err != nil {
		return result, err
	}

	var pre func(context.Context) error
	if w.Before != nil {
		pre = func(context.Context) error {
			w.Before()
			return nil
		}
	}

	var out T
	err = inv.drive(ctx, lifecycle{
		pre: pre,
		body: func(ctx context.Context) error {
			v, err := w.Body(ctx, newSession(e, inv))
			if err != nil {
				return err
			}
			out = v
			return nil
		},
		post: w.After,
	})
	if err != nil {
		return result, err
	}
	return out, nil
}

// Do runs a body that produces no value.
func (e *Executor) Do(ctx context.Context, p provider.Provider, body func(ctx context.Context, s *Session) error) error {
	return e.DoWithHooks(ctx, p, nil, body, nil)
}

// DoWithHooks is Do with before and after hooks.
func (e *Executor) DoWithHooks(
	ctx context.Context,
	p provider.Provider,
	before func(),
	body func(ctx context.Context, s *Session) error,
	after func(),
) error {
	var fn func(context.Context, *Session) (struct{}, error)
	if body != nil {
		fn = func(ctx context.Context, s *Session) (struct{}, error) {
			return struct{}{}, body(ctx, s)
		}
	}
	_, err := Run(ctx, e, p, Work[struct{}]{Body: fn, Before: before, After: after})
	return err
}
