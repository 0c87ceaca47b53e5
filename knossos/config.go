package knossos

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the file form of the open options.
//
//	codec: jpg
//	block_size: 128
//	workers: 8
//	cache_blocks: 64
type Config struct {
	Codec       string `yaml:"codec"`
	BlockSize   int    `yaml:"block_size"`
	Workers     int    `yaml:"workers"`
	CacheBlocks int    `yaml:"cache_blocks"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML config. Unknown fields are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parsing config")
	}
	return &cfg, nil
}

// Options converts the set fields of c to open options.
func (c *Config) Options() ([]Option, error) {
	var opts []Option
	if c.Codec != "" {
		cd, err := ParseCodec(c.Codec)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithCodec(cd))
	}
	if c.BlockSize < 0 || c.Workers < 0 || c.CacheBlocks < 0 {
		return nil, errors.Errorf("negative value in config %+v", *c)
	}
	if c.BlockSize > 0 {
		opts = append(opts, WithBlockSize(c.BlockSize))
	}
	if c.Workers > 0 {
		opts = append(opts, WithWorkers(c.Workers))
	}
	if c.CacheBlocks > 0 {
		opts = append(opts, WithBlockCache(c.CacheBlocks))
	}
	return opts, nil
}
