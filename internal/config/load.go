package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable Load consults,
// e.g. TXLAB_HARNESS_LOG_LEVEL or TXLAB_BACKENDS_POSTGRESQL_URL.
const EnvPrefix = "TXLAB"

// Default values applied before files and environment are read.
const (
	DefaultLogLevel         = "info"
	DefaultBackend          = "sqlite"
	DefaultLockPolicy       = "locks"
	DefaultStatementTimeout = time.Second
	DefaultPollInterval     = 100 * time.Millisecond
	DefaultLaneQueueSize    = 64
	DefaultSQLiteDSN        = "file:txlab?mode=memory&cache=shared"
)

// Load configuration from environment variables and optionally a txlab.yaml
// file in the working directory. Environment variables take precedence over
// values from the config file.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom behaves like Load but searches for txlab.yaml in dir.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("txlab")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("harness.log_level", DefaultLogLevel)
	v.SetDefault("harness.default_backend", DefaultBackend)
	v.SetDefault("harness.lock_policy", DefaultLockPolicy)
	v.SetDefault("harness.statement_timeout", DefaultStatementTimeout)
	v.SetDefault("harness.poll_interval", DefaultPollInterval)
	v.SetDefault("harness.lane_queue_size", DefaultLaneQueueSize)
	v.SetDefault("harness.log_statements", false)

	v.SetDefault("backends.sqlite.dsn", DefaultSQLiteDSN)
	v.SetDefault("backends.hsqldb.driver", "")
	v.SetDefault("backends.hsqldb.dsn", "")
	v.SetDefault("backends.postgresql.url", "")
	v.SetDefault("backends.oracle.dsn", "")
	v.SetDefault("backends.mysql.dsn", "")
	v.SetDefault("backends.mysql.rewrite_batched_statements", true)
	v.SetDefault("backends.mysql.use_server_prep_stmts", false)
	v.SetDefault("backends.sqlserver.dsn", "")
}
