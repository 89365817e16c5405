package stats

import (
	"iter"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

const (
	hitsMetric   = "txlab_cache_hits_total"
	missesMetric = "txlab_cache_misses_total"
	putsMetric   = "txlab_cache_puts_total"
	regionLabel  = "region"
)

// Snapshot is a point-in-time copy of one region's statistics.
type Snapshot struct {
	Region    string
	HitCount  uint64
	MissCount uint64
	PutCount  uint64
	Entries   map[string]string
}

// Collector owns the cache regions and their counters. Counters live in a
// private registry so collectors never collide across tests.
type Collector struct {
	registry *prometheus.Registry
	hits     *prometheus.CounterVec
	misses   *prometheus.CounterVec
	puts     *prometheus.CounterVec
	logger   *slog.Logger

	mu      sync.RWMutex
	regions map[string]*Region
}

// NewCollector creates a collector with an empty region set.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Collector{
		registry: prometheus.NewRegistry(),
		hits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: hitsMetric,
				Help: "Number of cache lookups that found an entry",
			},
			[]string{regionLabel},
		),
		misses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: missesMetric,
				Help: "Number of cache lookups that found nothing",
			},
			[]string{regionLabel},
		),
		puts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: putsMetric,
				Help: "Number of entries stored in the cache",
			},
			[]string{regionLabel},
		),
		logger:  logger.With("component", "stats"),
		regions: make(map[string]*Region),
	}
	c.registry.MustRegister(c.hits, c.misses, c.puts)
	return c
}

// Gatherer exposes the collector's counters.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// Region returns the named region, creating it on first use.
func (c *Collector) Region(name string) *Region {
	c.mu.RLock()
	r, ok := c.regions[name]
	c.mu.RUnlock()
	if ok {
		return r
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.regions[name]; ok {
		return r
	}
	r = &Region{
		name:    name,
		entries: make(map[string]string),
		hits:    c.hits.WithLabelValues(name),
		misses:  c.misses.WithLabelValues(name),
		puts:    c.puts.WithLabelValues(name),
	}
	c.regions[name] = r
	return r
}

// Snapshot reports the statistics of the named region. An unknown region
// yields false and a warning, never an error.
func (c *Collector) Snapshot(name string) (Snapshot, bool) {
	c.mu.RLock()
	r, ok := c.regions[name]
	c.mu.RUnlock()
	if !ok {
		c.logger.Warn("statistics requested for unknown cache region", "region", name)
		return Snapshot{}, false
	}

	s := Snapshot{Region: name, Entries: r.entriesCopy()}

	families, err := c.registry.Gather()
	if err != nil {
		c.logger.Warn("failed to gather cache counters", "region", name, "error", err)
		return s, true
	}
	for _, mf := range families {
		v := counterFor(mf, name)
		switch mf.GetName() {
		case hitsMetric:
			s.HitCount = v
		case missesMetric:
			s.MissCount = v
		case putsMetric:
			s.PutCount = v
		}
	}
	return s, true
}

// Regions returns the names of the regions that exist now, sorted. The
// sequence can be ranged over once; later ranges yield nothing.
func (c *Collector) Regions() iter.Seq[string] {
	c.mu.RLock()
	names := slices.Sorted(maps.Keys(c.regions))
	c.mu.RUnlock()

	var used atomic.Bool
	return func(yield func(string) bool) {
		if !used.CompareAndSwap(false, true) {
			return
		}
		for _, n := range names {
			if !yield(n) {
				return
			}
		}
	}
}

func counterFor(mf *dto.MetricFamily, region string) uint64 {
	for _, m := range mf.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == regionLabel && lp.GetValue() == region {
				return uint64(m.GetCounter().GetValue())
			}
		}
	}
	return 0
}
