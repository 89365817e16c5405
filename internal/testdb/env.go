package testdb

import "os"

// Environment variables consulted for an external test database, in order.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvTestDBURL   = "TXLAB_TEST_DB_URL"
)

// DatabaseURL returns the first non-empty external database URL.
func DatabaseURL() string {
	for _, name := range []string{EnvDatabaseURL, EnvTestDBURL} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// IsIntegrationTestEnvironment returns true if an external database URL is set.
func IsIntegrationTestEnvironment() bool {
	return DatabaseURL() != ""
}

// ShouldSkipDatabaseTest returns true if no external database is available.
func ShouldSkipDatabaseTest() bool {
	return !IsIntegrationTestEnvironment()
}
