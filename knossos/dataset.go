package knossos

import (
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-knossos/internal/grid"
	"github.com/robert-malhotra/go-knossos/internal/layout"
)

// Dtype is the element type of a dataset.
type Dtype int

// Uint8 is the only element type stored in Knossos blocks.
const Uint8 Dtype = iota

func (t Dtype) String() string {
	if t == Uint8 {
		return "uint8"
	}
	return "unknown"
}

// Size returns the element size in bytes.
func (t Dtype) Size() int {
	return 1
}

// Dataset is one magnification of a Knossos store. Its geometry is fixed
// when it is opened; any number of reads may run on it concurrently.
type Dataset struct {
	key     string
	desc    *layout.Descriptor
	loader  *blockLoader
	workers int
	logger  *zap.Logger
	metrics *Metrics
}

// Key returns the dataset key within its store.
func (d *Dataset) Key() string {
	return d.key
}

// Path returns the dataset directory.
func (d *Dataset) Path() string {
	return d.desc.Root
}

// Prefix returns the prefix shared by all block file names.
func (d *Dataset) Prefix() string {
	return d.desc.Prefix
}

// Shape returns the dataset dimensions, (z, y, x).
func (d *Dataset) Shape() [3]int {
	return d.desc.Shape()
}

// BlockShape returns the dimensions of one block.
func (d *Dataset) BlockShape() [3]int {
	return d.desc.BlockShape()
}

// Grid returns the number of blocks per axis, (z, y, x).
func (d *Dataset) Grid() [3]int {
	return d.desc.Grid
}

// Rank returns the number of dimensions, always 3.
func (d *Dataset) Rank() int {
	return grid.NDims
}

// Dtype returns the element type, always Uint8.
func (d *Dataset) Dtype() Dtype {
	return Uint8
}

// NumElements returns the total number of elements.
func (d *Dataset) NumElements() int {
	s := d.Shape()
	return s[0] * s[1] * s[2]
}

// Workers returns the number of blocks a read loads concurrently.
func (d *Dataset) Workers() int {
	return d.workers
}

// WithWorkers returns a copy of d that loads up to n blocks concurrently.
// The copy shares the geometry and block cache of d.
func (d *Dataset) WithWorkers(n int) *Dataset {
	if n < 1 {
		n = 1
	}
	cp := *d
	cp.workers = n
	return &cp
}
