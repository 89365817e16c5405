package txn

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/phrazzld/txlab/internal/config"
	"github.com/phrazzld/txlab/internal/provider"
)

// Options tune an Executor.
type Options struct {
	// StatementTimeout bounds each statement run through the statement helpers.
	// Zero means config.DefaultStatementTimeout.
	StatementTimeout time.Duration

	// LogStatements logs every statement issued through a Session.
	LogStatements bool

	// Observer, if set, sees every state transition.
	Observer StateObserver
}

// OptionsFromConfig maps harness configuration onto executor options.
func OptionsFromConfig(cfg config.HarnessConfig) Options {
	return Options{
		StatementTimeout: cfg.StatementTimeout,
		LogStatements:    cfg.LogStatements,
	}
}

// Executor runs work units against backends, keeping one connection pool per provider.
// It is safe for concurrent use.
type Executor struct {
	logger *slog.Logger
	opts   Options

	mu     sync.Mutex
	pools  map[provider.Provider]*sql.DB
	closed bool
	group  singleflight.Group

	acquire func(ctx context.Context, db *sql.DB) (resource, error)
}

// NewExecutor creates an executor. A nil logger uses slog.Default().
func NewExecutor(logger *slog.Logger, opts Options) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.StatementTimeout <= 0 {
		opts.StatementTimeout = config.DefaultStatementTimeout
	}
	return &Executor{
		logger:  logger.With(slog.String("component", "txn_executor")),
		opts:    opts,
		pools:   make(map[provider.Provider]*sql.DB),
		acquire: acquireConn,
	}
}

// StatementTimeout returns the per-statement bound used by the helpers.
func (e *Executor) StatementTimeout() time.Duration {
	return e.opts.StatementTimeout
}

// Statements returns statement helpers bound to q and this executor's timeout.
func (e *Executor) Statements(q DBTX) Statements {
	return Statements{Q: q, Timeout: e.opts.StatementTimeout}
}

// poolOpenTimeout bounds a shared pool open, which outlives any one caller's ctx.
const poolOpenTimeout = 30 * time.Second

// DB returns the pool for p, opening it on first use. Concurrent first calls
// for the same provider share one Open. The shared Open does not inherit the
// caller's cancellation; a caller whose ctx ends stops waiting without
// failing the others.
func (e *Executor) DB(ctx context.Context, p provider.Provider) (*sql.DB, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrExecutorClosed
	}
	if db, ok := e.pools[p]; ok {
		e.mu.Unlock()
		return db, nil
	}
	e.mu.Unlock()

	openCtx := context.WithoutCancel(ctx)
	key := fmt.Sprintf("%s/%p", p.Dialect(), p)
	ch := e.group.DoChan(key, func() (any, error) {
		return e.openPool(openCtx, p)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*sql.DB), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Executor) openPool(ctx context.Context, p provider.Provider) (*sql.DB, error) {
	e.mu.Lock()
	if db, ok := e.pools[p]; ok {
		e.mu.Unlock()
		return db, nil
	}
	e.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, poolOpenTimeout)
	defer cancel()
	db, err := p.Open(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		_ = db.Close()
		return nil, ErrExecutorClosed
	}
	e.pools[p] = db
	e.logger.Debug("opened connection pool", slog.String("dialect", p.Dialect()))
	return db, nil
}

// PoolStats reports the pool statistics for p, if its pool is open.
func (e *Executor) PoolStats(p provider.Provider) (sql.DBStats, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	db, ok := e.pools[p]
	if !ok {
		return sql.DBStats{}, false
	}
	return db.Stats(), true
}

// Close closes every pool the executor opened. Further runs fail with ErrExecutorClosed.
func (e *Executor) Close() error {
	e.mu.Lock()
	pools := e.pools
	e.pools = make(map[provider.Provider]*sql.DB)
	e.closed = true
	e.mu.Unlock()

	var errs []error
	for p, db := range pools {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pool: %w", p.Dialect(), err))
		}
	}
	return errors.Join(errs...)
}

// begin opens a connection for one invocation.
func (e *Executor) begin(ctx context.Context, p provider.Provider) (*invocation, error) {
	db, err := e.DB(ctx, p)
	if err != nil {
		if errors.Is(err, ErrExecutorClosed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrAcquireFailed, err)
	}
	inv := newInvocation(e, p)
	res, err := e.acquire(ctx, db)
	if err != nil {
		inv.log.Error("failed to acquire connection", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrAcquireFailed, err)
	}
	inv.res = res
	inv.enter(Opened)
	return inv, nil
}
