package knossos

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-knossos/internal/blockcache"
	"github.com/robert-malhotra/go-knossos/internal/codec"
	"github.com/robert-malhotra/go-knossos/internal/layout"
)

// File is an opened Knossos store. It holds no open file descriptors and is
// safe for concurrent use.
type File struct {
	path    string
	name    string
	opts    *options
	decoder codec.Decoder
}

// Open validates the store at path. The codec and other options apply to
// every dataset obtained from the returned File.
func Open(path string, opts ...Option) (*File, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolving store path")
	}

	if err := layout.HasSentinel(abs); err != nil {
		return nil, &FormatError{Path: abs, Err: err}
	}

	dec, err := codec.New(o.codec)
	if err != nil {
		return nil, err
	}

	o.logger.Debug("opened knossos store",
		zap.String("path", abs),
		zap.Stringer("codec", o.codec))

	return &File{
		path:    abs,
		name:    filepath.Base(abs),
		opts:    o,
		decoder: dec,
	}, nil
}

// Path returns the absolute store path.
func (f *File) Path() string {
	return f.path
}

// Name returns the store directory name, the first half of every block
// file prefix.
func (f *File) Name() string {
	return f.name
}

// Codec returns the block codec chosen at open time.
func (f *File) Codec() Codec {
	return f.opts.codec
}

// Keys returns the sorted names of the datasets in the store.
func (f *File) Keys() ([]string, error) {
	entries, err := os.ReadDir(f.path)
	if err != nil {
		return nil, errors.Wrap(err, "listing store")
	}
	var keys []string
	for _, e := range entries {
		if isDirEntry(f.path, e) {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Get opens the dataset stored in subdirectory key, usually a
// magnification such as "mag1".
func (f *File) Get(key string) (*Dataset, error) {
	if key == "" || key == "." || key == ".." || key != filepath.Base(key) {
		return nil, &KeyError{Key: key, Path: f.path}
	}
	dsPath := filepath.Join(f.path, key)
	info, err := os.Stat(dsPath)
	if err != nil || !info.IsDir() {
		return nil, &KeyError{Key: key, Path: f.path}
	}

	prefix := f.name + "_" + key
	desc, err := layout.Open(dsPath, prefix, f.opts.blockSize, f.opts.codec.Ext())
	if err != nil {
		return nil, &FormatError{Path: dsPath, Err: err}
	}

	f.opts.logger.Debug("opened knossos dataset",
		zap.String("key", key),
		zap.Ints("grid", desc.Grid[:]),
		zap.Ints("shape", shapeSlice(desc.Shape())))

	ds := &Dataset{
		key:     key,
		desc:    desc,
		workers: f.opts.workers,
		logger:  f.opts.logger.With(zap.String("dataset", prefix)),
		metrics: f.opts.metrics,
	}
	ds.loader = &blockLoader{
		desc:    desc,
		decoder: f.decoder,
		cache:   blockcache.New(f.opts.cacheBlocks, f.opts.metrics),
		metrics: f.opts.metrics,
	}
	return ds, nil
}

// OpenDataset is an alias for Get.
func (f *File) OpenDataset(key string) (*Dataset, error) {
	return f.Get(key)
}

func isDirEntry(dir string, e os.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.IsDir()
}

func shapeSlice(s [3]int) []int {
	return s[:]
}
