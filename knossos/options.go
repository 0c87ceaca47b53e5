package knossos

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-knossos/internal/codec"
	"github.com/robert-malhotra/go-knossos/internal/layout"
	"github.com/robert-malhotra/go-knossos/internal/metrics"
)

// Codec selects the image format of block files.
type Codec = codec.Codec

// Supported block codecs.
const (
	PNG  = codec.PNG
	JPEG = codec.JPEG
)

// ParseCodec returns the codec named by s ("png", "jpg" or "jpeg").
func ParseCodec(s string) (Codec, error) {
	return codec.Parse(s)
}

// DefaultBlockSize is the block edge length of a standard Knossos store.
const DefaultBlockSize = layout.DefaultBlockSize

// Metrics holds the Prometheus collectors updated by datasets.
type Metrics = metrics.Metrics

// NewMetrics creates the reader metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return metrics.New(reg)
}

// Option configures how a store is opened.
type Option func(*options)

type options struct {
	codec       Codec
	blockSize   int
	workers     int
	cacheBlocks int
	logger      *zap.Logger
	metrics     *Metrics
}

func defaultOptions() *options {
	return &options{
		codec:     PNG,
		blockSize: DefaultBlockSize,
		workers:   1,
		logger:    zap.NewNop(),
	}
}

// WithCodec sets the block image format. The default is PNG.
func WithCodec(c Codec) Option {
	return func(o *options) {
		if c.Ext() != "" {
			o.codec = c
		}
	}
}

// WithBlockSize sets the block edge length (default 128).
func WithBlockSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.blockSize = n
		}
	}
}

// WithWorkers sets how many blocks a single read loads concurrently.
// The default of 1 reads blocks sequentially.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithBlockCache keeps up to n decoded blocks per dataset in an LRU cache.
// Zero disables caching.
func WithBlockCache(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.cacheBlocks = n
		}
	}
}

// WithLogger sets the logger used for read diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics updated by reads.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}
