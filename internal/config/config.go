package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all harness configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Harness  HarnessConfig  `mapstructure:"harness" validate:"required"`
	Backends BackendsConfig `mapstructure:"backends"`
}

// HarnessConfig contains the settings that shape how work units are executed.
type HarnessConfig struct {
	LogLevel       string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	DefaultBackend string `mapstructure:"default_backend" validate:"required,oneof=sqlite hsqldb postgresql oracle mysql sqlserver"`
	LockPolicy     string `mapstructure:"lock_policy" validate:"required,oneof=locks mvlocks mvcc"`

	// StatementTimeout bounds every statement issued through the statement helpers.
	StatementTimeout time.Duration `mapstructure:"statement_timeout" validate:"gt=0"`

	// PollInterval is how often the async monitor re-checks a submitted unit.
	PollInterval  time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	LaneQueueSize int           `mapstructure:"lane_queue_size" validate:"gt=0"`

	// LogStatements logs every statement run through a Session at debug level.
	LogStatements bool `mapstructure:"log_statements"`
}

// BackendsConfig groups the connection settings of each backend kind.
// A backend with an empty DSN/URL is not registered.
type BackendsConfig struct {
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	HSQLDB    HSQLDBConfig    `mapstructure:"hsqldb"`
	Postgres  PostgresConfig  `mapstructure:"postgresql"`
	Oracle    OracleConfig    `mapstructure:"oracle"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	SQLServer SQLServerConfig `mapstructure:"sqlserver"`
}

// SQLiteConfig configures the embedded backend.
type SQLiteConfig struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

// HSQLDBConfig configures an HSQLDB backend reached through a caller-registered driver.
type HSQLDBConfig struct {
	Driver string `mapstructure:"driver" validate:"required_with=DSN"`
	DSN    string `mapstructure:"dsn"`
}

// PostgresConfig configures the PostgreSQL backend.
type PostgresConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// OracleConfig configures the Oracle backend.
type OracleConfig struct {
	DSN string `mapstructure:"dsn"`
}

// MySQLConfig configures the MySQL backend and its statement batching flags.
type MySQLConfig struct {
	DSN                      string `mapstructure:"dsn"`
	RewriteBatchedStatements bool   `mapstructure:"rewrite_batched_statements"`
	UseServerPrepStmts       bool   `mapstructure:"use_server_prep_stmts"`
}

// SQLServerConfig configures the SQL Server backend.
type SQLServerConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LockPolicy selects the locking behaviour a test expects from its backend.
// It carries no runtime logic; tests branch on it.
type LockPolicy int

const (
	PessimisticLocks LockPolicy = iota
	MultiVersionLocks
	MultiVersionConcurrency
)

var lockPolicyNames = map[LockPolicy]string{
	PessimisticLocks:        "locks",
	MultiVersionLocks:       "mvlocks",
	MultiVersionConcurrency: "mvcc",
}

func (p LockPolicy) String() string {
	if name, ok := lockPolicyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("LockPolicy(%d)", int(p))
}

// ParseLockPolicy accepts the short names used in configuration as well as
// the long PESSIMISTIC_LOCKS style names.
func ParseLockPolicy(s string) (LockPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "locks", "pessimistic_locks":
		return PessimisticLocks, nil
	case "mvlocks", "multi_version_locks":
		return MultiVersionLocks, nil
	case "mvcc", "multi_version_concurrency":
		return MultiVersionConcurrency, nil
	}
	return 0, fmt.Errorf("unknown lock policy %q", s)
}

// Policy returns the parsed lock policy. Load has already validated the value.
func (h HarnessConfig) Policy() LockPolicy {
	p, err := ParseLockPolicy(h.LockPolicy)
	if err != nil {
		return PessimisticLocks
	}
	return p
}
