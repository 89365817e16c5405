// Package provider describes the transactional backends the harness can run
// work against.
//
// A Provider is a capability descriptor: the backend kind, its dialect id, the
// database/sql driver and DSN used to reach it, and the identifier generation
// strategies it supports. Providers are constructed once, registered in a
// Registry under their Kind, and looked up by tests. Registration never
// contacts the backend; the first connection attempt happens in Open.
//
// The embedded SQLite provider (modernc.org/sqlite) and the PostgreSQL
// provider (pgx stdlib) register their drivers through this package. The
// remaining kinds expect the caller to blank-import a driver under the
// conventional name ("mysql", "oracle", "sqlserver", or the configured
// HSQLDB driver).
package provider
