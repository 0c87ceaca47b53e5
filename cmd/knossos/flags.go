package main

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-knossos/knossos"
)

// codecValue adapts knossos.Codec to pflag.Value.
type codecValue struct {
	codec knossos.Codec
	set   bool
}

func (v *codecValue) String() string { return v.codec.String() }

func (v *codecValue) Set(s string) error {
	c, err := knossos.ParseCodec(s)
	if err != nil {
		return err
	}
	v.codec = c
	v.set = true
	return nil
}

func (v *codecValue) Type() string { return "codec" }

// globalFlags are shared by every subcommand. Flags given on the command
// line override values from --config.
type globalFlags struct {
	config      string
	codec       codecValue
	blockSize   int
	workers     int
	cacheBlocks int
	verbose     bool
	metricsFile string

	flags    *pflag.FlagSet
	registry *prometheus.Registry
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	g.flags = fs
	fs.StringVar(&g.config, "config", "", "YAML file with reader options")
	fs.Var(&g.codec, "codec", "block image format: png or jpg")
	fs.IntVar(&g.blockSize, "block-size", knossos.DefaultBlockSize, "block edge length in voxels")
	fs.IntVar(&g.workers, "workers", 1, "blocks loaded concurrently per read")
	fs.IntVar(&g.cacheBlocks, "cache-blocks", 0, "decoded blocks kept in memory (0 disables the cache)")
	fs.BoolVarP(&g.verbose, "verbose", "v", false, "log debug output")
	fs.StringVar(&g.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file on exit")
}

// writeMetrics dumps the collected metrics for the node exporter textfile
// collector.
func (g *globalFlags) writeMetrics() error {
	if g.metricsFile == "" || g.registry == nil {
		return nil
	}
	return errors.Wrap(prometheus.WriteToTextfile(g.metricsFile, g.registry), "writing metrics")
}

func (g *globalFlags) logger() (*zap.Logger, error) {
	if g.verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

// options resolves the config file and command line into open options.
func (g *globalFlags) options(logger *zap.Logger) ([]knossos.Option, error) {
	var opts []knossos.Option
	if g.config != "" {
		cfg, err := knossos.LoadConfig(g.config)
		if err != nil {
			return nil, err
		}
		fileOpts, err := cfg.Options()
		if err != nil {
			return nil, errors.Wrapf(err, "config %s", g.config)
		}
		opts = append(opts, fileOpts...)
	}

	if g.codec.set {
		opts = append(opts, knossos.WithCodec(g.codec.codec))
	}
	if g.config == "" || g.flags.Changed("block-size") {
		opts = append(opts, knossos.WithBlockSize(g.blockSize))
	}
	if g.config == "" || g.flags.Changed("workers") {
		opts = append(opts, knossos.WithWorkers(g.workers))
	}
	if g.config == "" || g.flags.Changed("cache-blocks") {
		opts = append(opts, knossos.WithBlockCache(g.cacheBlocks))
	}

	if g.registry == nil {
		g.registry = prometheus.NewRegistry()
	}
	opts = append(opts,
		knossos.WithLogger(logger),
		knossos.WithMetrics(knossos.NewMetrics(g.registry)),
	)
	return opts, nil
}
