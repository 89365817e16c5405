package stats

import (
	"maps"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Region is a named second-level cache whose operations feed the
// collector's counters. It is safe for concurrent use.
type Region struct {
	name string

	mu      sync.RWMutex
	entries map[string]string

	hits   prometheus.Counter
	misses prometheus.Counter
	puts   prometheus.Counter
}

// Name returns the region name.
func (r *Region) Name() string {
	return r.name
}

// Get looks up key, counting a hit or a miss.
func (r *Region) Get(key string) (string, bool) {
	r.mu.RLock()
	v, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		r.hits.Inc()
	} else {
		r.misses.Inc()
	}
	return v, ok
}

// Put stores value under key.
func (r *Region) Put(key, value string) {
	r.mu.Lock()
	r.entries[key] = value
	r.mu.Unlock()
	r.puts.Inc()
}

// Evict removes key. Counters are left untouched.
func (r *Region) Evict(key string) {
	r.mu.Lock()
	delete(r.entries, key)
	r.mu.Unlock()
}

// Clear removes every entry.
func (r *Region) Clear() {
	r.mu.Lock()
	clear(r.entries)
	r.mu.Unlock()
}

// Len returns the number of cached entries.
func (r *Region) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Region) entriesCopy() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.entries)
}
