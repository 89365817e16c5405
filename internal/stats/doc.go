// Package stats keeps second-level cache regions and reports their
// hit, miss and put counters so tests can assert on cache behaviour.
package stats
