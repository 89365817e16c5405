// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional txlab.yaml file. It provides
// type-safe access to harness settings (log level, statement timeout, lane
// sizing) and to the connection settings of every supported backend.
package config
