// Package metrics defines the Prometheus metrics exported by the reader.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "knossos"

// Metrics holds the reader's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	BlocksLoaded   prometheus.Counter
	BlockErrors    prometheus.Counter
	BytesDecoded   prometheus.Counter
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions prometheus.Counter
	Reads          *prometheus.CounterVec
	ReadDuration   prometheus.Histogram
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BlocksLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_loaded_total",
			Help:      "Number of block files decoded",
		}),
		BlockErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_errors_total",
			Help:      "Number of block loads that failed",
		}),
		BytesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_decoded_total",
			Help:      "Voxel bytes produced by block decoding",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "block_cache",
			Name:      "hits_total",
			Help:      "Number of block loads served from cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "block_cache",
			Name:      "misses_total",
			Help:      "Number of block loads not served from cache",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "block_cache",
			Name:      "evictions_total",
			Help:      "Number of blocks evicted from the LRU cache",
		}),
		Reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reads_total",
			Help:      "Number of region reads by result",
		}, []string{"result"}),
		ReadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "read_duration_seconds",
			Help:      "Time spent assembling a region",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}

	reg.MustRegister(
		m.BlocksLoaded,
		m.BlockErrors,
		m.BytesDecoded,
		m.CacheHits,
		m.CacheMisses,
		m.CacheEvictions,
		m.Reads,
		m.ReadDuration,
	)
	return m
}

// BlockLoaded records a successfully decoded block of n bytes.
func (m *Metrics) BlockLoaded(n int) {
	if m == nil {
		return
	}
	m.BlocksLoaded.Inc()
	m.BytesDecoded.Add(float64(n))
}

// BlockFailed records a failed block load.
func (m *Metrics) BlockFailed() {
	if m == nil {
		return
	}
	m.BlockErrors.Inc()
}

// CacheHit records a block served from cache.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// CacheMiss records a block that had to be loaded from disk.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.CacheMisses.Inc()
}

// CacheEvicted records a block dropped from the cache.
func (m *Metrics) CacheEvicted() {
	if m == nil {
		return
	}
	m.CacheEvictions.Inc()
}

// ReadDone records a finished region read.
func (m *Metrics) ReadDone(start time.Time, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Reads.WithLabelValues(result).Inc()
	m.ReadDuration.Observe(time.Since(start).Seconds())
}
