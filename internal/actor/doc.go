// Package actor provides a second logical actor for concurrency tests.
//
// The calling goroutine is actor A. A Lane is actor B: a single goroutine
// that runs submitted work units strictly one at a time in submission order.
// Tests script interleavings between the two with RunSync, RunAsync, Latch
// and Sleep.
package actor
