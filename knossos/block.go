package knossos

import (
	"os"

	"github.com/pkg/errors"

	"github.com/robert-malhotra/go-knossos/internal/blockcache"
	"github.com/robert-malhotra/go-knossos/internal/codec"
	"github.com/robert-malhotra/go-knossos/internal/grid"
	"github.com/robert-malhotra/go-knossos/internal/layout"
)

// blockLoader reads and decodes single blocks.
type blockLoader struct {
	desc    *layout.Descriptor
	decoder codec.Decoder
	cache   *blockcache.Cache
	metrics *Metrics
}

// load returns the voxels of block c in (z, y, x) row-major order. The
// returned slice may be shared with the cache and must not be modified.
func (l *blockLoader) load(c grid.Coord) ([]byte, error) {
	if data, ok := l.cache.Get(c); ok {
		return data, nil
	}

	path := l.desc.BlockFile(c)
	data, err := l.decode(path)
	if err != nil {
		l.metrics.BlockFailed()
		return nil, &BlockReadError{Coord: c, Path: path, Err: err}
	}
	l.metrics.BlockLoaded(len(data))
	l.cache.Add(c, data)
	return data, nil
}

func (l *blockLoader) decode(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening block")
	}
	defer f.Close()

	data, err := l.decoder.Decode(f)
	if err != nil {
		return nil, err
	}
	if want := l.desc.BlockVoxels(); len(data) != want {
		return nil, errors.Errorf("decoded %d voxels, want %d for block shape %v",
			len(data), want, l.desc.BlockShape())
	}
	return data, nil
}
