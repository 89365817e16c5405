package provider

import (
	"github.com/phrazzld/txlab/internal/config"
)

// FromConfig builds a registry holding a provider for every configured backend.
// The embedded SQLite backend is always registered.
func FromConfig(cfg config.BackendsConfig) *Registry {
	r := NewRegistry()
	r.Register(SQLite, NewSQLite(cfg.SQLite.DSN))

	if cfg.HSQLDB.DSN != "" {
		r.Register(HSQLDB, NewHSQLDB(cfg.HSQLDB.Driver, cfg.HSQLDB.DSN))
	}
	if cfg.Postgres.URL != "" {
		r.Register(PostgreSQL, NewPostgres(cfg.Postgres.URL))
	}
	if cfg.Oracle.DSN != "" {
		r.Register(Oracle, NewOracle(cfg.Oracle.DSN))
	}
	if cfg.MySQL.DSN != "" {
		r.Register(MySQL, NewMySQL(cfg.MySQL.DSN, MySQLOptions{
			RewriteBatchedStatements: cfg.MySQL.RewriteBatchedStatements,
			UseServerPrepStmts:       cfg.MySQL.UseServerPrepStmts,
		}))
	}
	if cfg.SQLServer.DSN != "" {
		r.Register(SQLServer, NewSQLServer(cfg.SQLServer.DSN))
	}
	return r
}
