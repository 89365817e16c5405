package testdb

import (
	"context"
	"embed"
	"io/fs"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/txlab/internal/actor"
	"github.com/phrazzld/txlab/internal/platform/logger"
	"github.com/phrazzld/txlab/internal/provider"
	"github.com/phrazzld/txlab/internal/schema"
	"github.com/phrazzld/txlab/internal/stats"
	"github.com/phrazzld/txlab/internal/txn"
)

// TestTimeout bounds fixture setup and teardown.
const TestTimeout = 5 * time.Second

// BusyTimeout is how long an SQLite fixture connection waits on a lock.
const BusyTimeout = 5 * time.Second

//go:embed migrations/*.sql
var migrations embed.FS

// Migrations returns the fixture schema: person(id, name, version) and
// phone(id, person_id, number).
func Migrations() fs.FS {
	sub, err := fs.Sub(migrations, "migrations")
	if err != nil {
		// ALLOW-PANIC: the embedded directory is fixed at build time
		panic(err)
	}
	return sub
}

// Fixture is a complete harness for one test.
type Fixture struct {
	Executor *txn.Executor
	Provider provider.Provider
	Lane     *actor.Lane
	Stats    *stats.Collector
	Logs     *logger.TestLogBuffer
}

type options struct {
	execOpts    txn.Options
	laneCfg     actor.LaneConfig
	busyTimeout time.Duration
	schema      fs.FS
}

// Option customizes New.
type Option func(*options)

// WithExecutorOptions replaces the executor options.
func WithExecutorOptions(o txn.Options) Option {
	return func(opts *options) { opts.execOpts = o }
}

// WithLaneConfig replaces the lane configuration. A nil FatalHandler fails the test.
func WithLaneConfig(cfg actor.LaneConfig) Option {
	return func(opts *options) { opts.laneCfg = cfg }
}

// WithBusyTimeout sets how long SQLite connections wait on locks; zero fails at once.
func WithBusyTimeout(d time.Duration) Option {
	return func(opts *options) { opts.busyTimeout = d }
}

// WithSchema applies the migrations in fsys instead of the default schema.
// A nil fsys leaves the database empty.
func WithSchema(fsys fs.FS) Option {
	return func(opts *options) { opts.schema = fsys }
}

// SQLiteDSN returns a DSN for a file-backed SQLite database whose
// transactions take the write lock at BEGIN.
func SQLiteDSN(path string, busy time.Duration) string {
	return "file:" + path + "?_txlock=immediate&_pragma=busy_timeout(" +
		strconv.FormatInt(busy.Milliseconds(), 10) + ")&_pragma=foreign_keys(1)"
}

// New builds a fixture on a fresh temp-file SQLite database.
func New(t *testing.T, opts ...Option) *Fixture {
	t.Helper()

	o := options{
		laneCfg:     actor.DefaultLaneConfig(),
		busyTimeout: BusyTimeout,
		schema:      Migrations(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.laneCfg.FatalHandler == nil {
		o.laneCfg.FatalHandler = func(err error) {
			t.Errorf("actor lane failed: %v", err)
		}
	}

	log, buf := logger.GetTestLogger(t)
	p := provider.NewSQLite(SQLiteDSN(filepath.Join(t.TempDir(), "txlab.db"), o.busyTimeout))

	e := txn.NewExecutor(log, o.execOpts)
	t.Cleanup(func() {
		if err := e.Close(); err != nil {
			t.Errorf("close executor: %v", err)
		}
	})

	if o.schema != nil {
		ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
		defer cancel()
		db, err := e.DB(ctx, p)
		require.NoError(t, err, "open fixture database")
		drop, err := schema.CreateDrop(ctx, db, p.Dialect(), o.schema, log)
		require.NoError(t, err, "create fixture schema")
		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
			defer cancel()
			if err := drop(ctx); err != nil {
				t.Errorf("drop fixture schema: %v", err)
			}
		})
	}

	lane := actor.NewLane("actor-b", o.laneCfg, log)
	lane.Start()
	t.Cleanup(lane.Stop)

	return &Fixture{
		Executor: e,
		Provider: p,
		Lane:     lane,
		Stats:    stats.NewCollector(log),
		Logs:     buf,
	}
}

// CountRows counts the rows of table through the fixture's executor.
func (fx *Fixture) CountRows(t *testing.T, table string) int64 {
	t.Helper()
	n, err := txn.Run(context.Background(), fx.Executor, fx.Provider, txn.Work[int64]{
		Body: func(ctx context.Context, s *txn.Session) (int64, error) {
			return s.Statements().Count(ctx, "SELECT COUNT(*) FROM "+table)
		},
	})
	require.NoError(t, err)
	return n
}
