package testdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phrazzld/txlab/internal/platform/logger"
	"github.com/phrazzld/txlab/internal/provider"
	"github.com/phrazzld/txlab/internal/schema"
)

// PostgresOrSkip returns a PostgreSQL provider for the external test
// database, skipping the test when none is configured.
func PostgresOrSkip(t *testing.T) *provider.SQLProvider {
	t.Helper()
	if ShouldSkipDatabaseTest() {
		t.Skip("DATABASE_URL or TXLAB_TEST_DB_URL not set - skipping integration test")
	}
	return provider.NewPostgres(DatabaseURL())
}

// NewPostgres builds a fixture on the external PostgreSQL database with the
// default schema applied, or skips the test.
func NewPostgres(t *testing.T) *Fixture {
	t.Helper()
	p := PostgresOrSkip(t)

	fx := New(t, WithSchema(nil))
	fx.Provider = p

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	db, err := fx.Executor.DB(ctx, p)
	require.NoError(t, err, "open postgres test database")

	drop, err := schema.CreateDrop(ctx, db, p.Dialect(), Migrations(), logger.Discard())
	require.NoError(t, err, "create postgres schema")
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
		defer cancel()
		if err := drop(ctx); err != nil {
			t.Errorf("drop postgres schema: %v", err)
		}
	})
	return fx
}
