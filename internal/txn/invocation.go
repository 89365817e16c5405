package txn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/txlab/internal/provider"
)

// invocation is the transaction context of a single run. It is owned by
// exactly one goroutine and never shared.
type invocation struct {
	id       uuid.UUID
	provider provider.Provider
	res      resource
	tx       *sql.Tx
	state    State
	observer StateObserver
	log      *slog.Logger
}

func newInvocation(e *Executor, p provider.Provider) *invocation {
	id := uuid.New()
	inv := &invocation{
		id:       id,
		provider: p,
		observer: e.opts.Observer,
		log: e.logger.With(
			slog.String("invocation_id", id.String()),
			slog.String("dialect", p.Dialect()),
		),
	}
	inv.enter(Init)
	return inv
}

func (inv *invocation) enter(s State) {
	inv.state = s
	inv.log.Debug("transaction state", slog.String("state", s.String()))
	if inv.observer != nil {
		inv.observer(inv.id, s)
	}
}

// lifecycle is the variant-specific part of a run.
type lifecycle struct {
	// pre runs on the open connection before the transaction begins.
	pre func(ctx context.Context) error
	// body runs inside the transaction.
	body func(ctx context.Context) error
	// post runs after commit or rollback, whatever the outcome.
	post func()
}

// drive runs the lifecycle through the state machine and releases the
// connection exactly once. A panic in pre, body or post is re-raised after
// cleanup.
func (inv *invocation) drive(ctx context.Context, lc lifecycle) error {
	var (
		workErr   error
		commitErr error
		secondary []error
		panicked  any
	)

	if lc.pre != nil {
		workErr, panicked = protect(func() error { return lc.pre(ctx) })
	}

	if workErr == nil && panicked == nil {
		tx, err := inv.res.BeginTx(ctx, nil)
		if err != nil {
			workErr = fmt.Errorf("%w: %w", ErrBeginFailed, err)
		} else {
			inv.tx = tx
			inv.enter(Active)
		}
	}

	if inv.state == Active {
		workErr, panicked = protect(func() error { return lc.body(ctx) })
		if workErr == nil && panicked == nil {
			inv.enter(Committing)
			if err := inv.tx.Commit(); err != nil {
				commitErr = fmt.Errorf("%w: %w", ErrCommitFailed, err)
				inv.log.Error("commit failed", slog.String("error", err.Error()))
				inv.enter(RolledBack)
			} else {
				inv.enter(Committed)
			}
		}
	}

	if inv.state == Active {
		inv.enter(RollingBack)
		if err := inv.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			inv.log.Error("rollback failed after work failure",
				slog.String("error", err.Error()),
				slog.Bool("panicked", panicked != nil),
			)
			secondary = append(secondary, fmt.Errorf("%w: %w", ErrRollbackFailed, err))
		}
		inv.enter(RolledBack)
	}

	if lc.post != nil {
		_, postPanic := protect(func() error { lc.post(); return nil })
		if postPanic != nil {
			inv.log.Error("after hook panicked", slog.Any("panic", postPanic))
			if panicked == nil {
				panicked = postPanic
			} else {
				secondary = append(secondary, fmt.Errorf("after hook panicked: %v", postPanic))
			}
		}
	}

	var releaseErr error
	if err := inv.res.Close(); err != nil {
		releaseErr = fmt.Errorf("%w: %w", ErrReleaseFailed, err)
		if workErr != nil || commitErr != nil || panicked != nil {
			inv.log.Error("release failed after earlier failure", slog.String("error", err.Error()))
		}
	}
	inv.enter(Closed)

	if panicked != nil {
		if releaseErr != nil {
			secondary = append(secondary, releaseErr)
		}
		for _, s := range secondary {
			inv.log.Error("cleanup failure during panic", slog.String("error", s.Error()))
		}
		// ALLOW-PANIC: re-raise the work unit's panic after cleanup
		panic(panicked)
	}

	return resolve(workErr, commitErr, releaseErr, secondary)
}

// protect runs fn and converts a panic into a returned value.
func protect(fn func() error) (err error, panicked any) {
	defer func() {
		if r := recover(); r != nil {
			panicked = r
		}
	}()
	return fn(), nil
}
