package provider

import (
	"net/url"
	"strings"
)

// MySQLOptions mirrors the statement batching flags tests toggle on MySQL.
type MySQLOptions struct {
	// RewriteBatchedStatements lets a single Exec carry several statements.
	RewriteBatchedStatements bool
	// UseServerPrepStmts keeps server-side prepared statements; when false the
	// driver interpolates parameters client-side.
	UseServerPrepStmts bool
}

// DefaultMySQLOptions returns the options MySQL providers use unless told otherwise.
func DefaultMySQLOptions() MySQLOptions {
	return MySQLOptions{RewriteBatchedStatements: true}
}

// NewMySQL returns a MySQL provider; the "mysql" driver must be registered by the caller.
// The options are appended to dsn as go-sql-driver/mysql parameters.
func NewMySQL(dsn string, opts MySQLOptions) *SQLProvider {
	return mustNew(Spec{
		Kind:       MySQL,
		Dialect:    "mysql",
		DriverName: "mysql",
		DSN:        mysqlDSN(dsn, opts),
		Strategies: []IdentifierStrategy{Identity},
	})
}

func mysqlDSN(dsn string, opts MySQLOptions) string {
	params := url.Values{}
	if opts.RewriteBatchedStatements {
		params.Set("multiStatements", "true")
	}
	if !opts.UseServerPrepStmts {
		params.Set("interpolateParams", "true")
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + params.Encode()
}
