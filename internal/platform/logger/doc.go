// Package logger provides structured logging functionality for the harness.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels, a CI-aware handler, and helpers for capturing log
// output in tests.
package logger
