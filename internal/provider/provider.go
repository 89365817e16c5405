package provider

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/phrazzld/txlab/internal/redact"
)

// Provider describes one backend: how to reach it and what it supports.
// Implementations are immutable and safe for concurrent use.
type Provider interface {
	Kind() Kind
	// Dialect is the stable dialect id, e.g. "postgresql".
	Dialect() string
	DriverName() string
	DSN() string
	// IdentifierStrategies is never empty.
	IdentifierStrategies() []IdentifierStrategy
	Supports(s IdentifierStrategy) bool
	// Open returns a connection pool for the backend, contacting it for the first time.
	Open(ctx context.Context) (*sql.DB, error)
}

// Spec is the descriptor a provider is built from.
type Spec struct {
	Kind       Kind
	Dialect    string
	DriverName string
	DSN        string
	Strategies []IdentifierStrategy
}

// Ping retry policy applied by Open.
const (
	openRetries    = 3
	openRetryDelay = 100 * time.Millisecond
)

// SQLProvider is the database/sql backed Provider every constructor returns.
type SQLProvider struct {
	spec Spec
	// db is set for providers wrapping an already opened pool.
	db *sql.DB
}

var _ Provider = (*SQLProvider)(nil)

// New validates spec and returns a provider for it.
func New(spec Spec) (*SQLProvider, error) {
	if len(spec.Strategies) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoIdentifierStrategy, spec.Dialect)
	}
	if spec.Dialect == "" {
		spec.Dialect = spec.Kind.String()
	}
	spec.Strategies = slices.Clone(spec.Strategies)
	return &SQLProvider{spec: spec}, nil
}

// WithDB returns a provider whose Open hands out db instead of opening a new pool.
func WithDB(spec Spec, db *sql.DB) (*SQLProvider, error) {
	p, err := New(spec)
	if err != nil {
		return nil, err
	}
	p.db = db
	return p, nil
}

func mustNew(spec Spec) *SQLProvider {
	p, err := New(spec)
	if err != nil {
		// ALLOW-PANIC: built-in specs are static
		panic(err)
	}
	return p
}

// NewSQLite returns the embedded backend provider.
func NewSQLite(dsn string) *SQLProvider {
	return mustNew(Spec{
		Kind:       SQLite,
		Dialect:    "sqlite",
		DriverName: "sqlite",
		DSN:        dsn,
		Strategies: []IdentifierStrategy{Identity},
	})
}

// NewHSQLDB returns an HSQLDB provider reached through a caller-registered driver.
func NewHSQLDB(driverName, dsn string) *SQLProvider {
	return mustNew(Spec{
		Kind:       HSQLDB,
		Dialect:    "hsqldb",
		DriverName: driverName,
		DSN:        dsn,
		Strategies: []IdentifierStrategy{Identity, Sequence},
	})
}

// NewPostgres returns a PostgreSQL provider using the pgx stdlib driver.
func NewPostgres(url string) *SQLProvider {
	return mustNew(Spec{
		Kind:       PostgreSQL,
		Dialect:    "postgresql",
		DriverName: "pgx",
		DSN:        url,
		Strategies: []IdentifierStrategy{Sequence},
	})
}

// NewOracle returns an Oracle provider; the "oracle" driver must be registered by the caller.
func NewOracle(dsn string) *SQLProvider {
	return mustNew(Spec{
		Kind:       Oracle,
		Dialect:    "oracle",
		DriverName: "oracle",
		DSN:        dsn,
		Strategies: []IdentifierStrategy{Sequence},
	})
}

// NewSQLServer returns a SQL Server provider; the "sqlserver" driver must be registered by the caller.
func NewSQLServer(dsn string) *SQLProvider {
	return mustNew(Spec{
		Kind:       SQLServer,
		Dialect:    "sqlserver",
		DriverName: "sqlserver",
		DSN:        dsn,
		Strategies: []IdentifierStrategy{Identity, Sequence},
	})
}

func (p *SQLProvider) Kind() Kind         { return p.spec.Kind }
func (p *SQLProvider) Dialect() string    { return p.spec.Dialect }
func (p *SQLProvider) DriverName() string { return p.spec.DriverName }
func (p *SQLProvider) DSN() string        { return p.spec.DSN }

// IdentifierStrategies returns a copy of the supported strategies.
func (p *SQLProvider) IdentifierStrategies() []IdentifierStrategy {
	return slices.Clone(p.spec.Strategies)
}

func (p *SQLProvider) Supports(s IdentifierStrategy) bool {
	return slices.Contains(p.spec.Strategies, s)
}

// String identifies the provider with its credentials masked.
func (p *SQLProvider) String() string {
	return fmt.Sprintf("%s provider (%s)", p.spec.Dialect, redact.DSN(p.spec.DSN))
}

// Open opens the backend pool and pings it, retrying transient failures.
func (p *SQLProvider) Open(ctx context.Context) (*sql.DB, error) {
	if p.db != nil {
		return p.db, nil
	}

	db, err := sql.Open(p.spec.DriverName, p.spec.DSN)
	if err != nil {
		return nil, fmt.Errorf("%w %s (%s): %s", ErrOpenFailed, p.spec.Dialect, redact.DSN(p.spec.DSN), redact.Error(err))
	}

	b := retry.WithMaxRetries(openRetries, retry.NewConstant(openRetryDelay))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		closeErr := db.Close()
		if closeErr != nil {
			return nil, fmt.Errorf("%w %s: ping: %s (close error: %s)",
				ErrOpenFailed, p.spec.Dialect, redact.Error(err), redact.Error(closeErr))
		}
		return nil, fmt.Errorf("%w %s: ping: %s", ErrOpenFailed, p.spec.Dialect, redact.Error(err))
	}

	return db, nil
}
