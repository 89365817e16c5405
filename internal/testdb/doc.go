// Package testdb builds ready-to-use harness fixtures for tests.
//
// A Fixture bundles an executor, an embedded SQLite provider with the
// person/phone schema applied, a started actor lane and a statistics
// collector, all torn down through t.Cleanup:
//
//	func TestLostUpdate(t *testing.T) {
//	    fx := testdb.New(t)
//
//	    err := fx.Executor.Do(ctx, fx.Provider, func(ctx context.Context, s *txn.Session) error {
//	        ...
//	        return fx.Lane.RunSync(ctx, func(ctx context.Context) error { ... })
//	    })
//	}
//
// Tests that need a real server use PostgresOrSkip, which reads
// DATABASE_URL or TXLAB_TEST_DB_URL and skips when neither is set.
package testdb
