// Package schema creates a test schema from goose migrations and drops it
// again when the test is done.
package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/pressly/goose/v3"
)

// TableName is the goose version table used for harness schemas.
const TableName = "txlab_schema_migrations"

// ErrUnsupportedDialect is returned for dialects goose cannot migrate.
var ErrUnsupportedDialect = errors.New("unsupported schema dialect")

// goose keeps its settings in package globals.
var gooseMu sync.Mutex

var gooseDialects = map[string]string{
	"sqlite":     "sqlite3",
	"postgresql": "postgres",
	"mysql":      "mysql",
	"sqlserver":  "mssql",
}

// GooseDialect maps a provider dialect id to the goose dialect name.
func GooseDialect(dialect string) (string, error) {
	d, ok := gooseDialects[dialect]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDialect, dialect)
	}
	return d, nil
}

// DropFunc migrates the schema back down to nothing.
type DropFunc func(ctx context.Context) error

// CreateDrop applies every migration found at the root of fsys and returns
// the function that drops them again.
func CreateDrop(ctx context.Context, db *sql.DB, dialect string, fsys fs.FS, logger *slog.Logger) (DropFunc, error) {
	gd, err := GooseDialect(dialect)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "schema", "dialect", dialect)

	if err := migrate(gd, fsys, log, func() error {
		return goose.UpContext(ctx, db, ".")
	}); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	log.Debug("schema created")

	return func(ctx context.Context) error {
		if err := migrate(gd, fsys, log, func() error {
			return goose.DownToContext(ctx, db, ".", 0)
		}); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
		log.Debug("schema dropped")
		return nil
	}, nil
}

func migrate(dialect string, fsys fs.FS, log *slog.Logger, run func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	goose.SetLogger(&gooseLogger{log: log})
	goose.SetTableName(TableName)
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)

	return run()
}

// gooseLogger routes goose output to slog at debug level.
type gooseLogger struct {
	log *slog.Logger
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...))
}

// Fatalf does not exit; goose also returns the error to the caller.
func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...))
}
