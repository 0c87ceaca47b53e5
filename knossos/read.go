package knossos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-knossos/internal/grid"
	"github.com/robert-malhotra/go-knossos/internal/pool"
)

// Read returns the voxels of roi in (z, y, x) row-major order. The buffer
// is newly allocated and owned by the caller.
func (d *Dataset) Read(roi ROI) ([]byte, error) {
	return d.ReadContext(context.Background(), roi)
}

// ReadContext is Read with a context. Canceling ctx stops blocks that have
// not started loading; the read then fails with the context error.
func (d *Dataset) ReadContext(ctx context.Context, roi ROI) (out []byte, err error) {
	shape := d.Shape()
	if err := checkROI(roi, shape); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { d.metrics.ReadDone(start, err) }()

	edge := d.desc.BlockSize
	blocks := grid.Blocks(roi, edge)
	outShape := roi.Shape()
	out = make([]byte, roi.NumElements())
	blockShape := d.BlockShape()

	d.logger.Debug("reading region",
		zap.Stringer("roi", roi),
		zap.Int("blocks", len(blocks)),
		zap.Int("workers", d.workers))

	// destination boxes are disjoint, so tasks write to out without locking
	err = pool.New(d.workers).Run(ctx, len(blocks), func(_ context.Context, i int) error {
		c := blocks[i]
		data, err := d.loader.load(c)
		if err != nil {
			return err
		}
		ov := grid.OverlapOf(c, roi, edge)
		if err := grid.CopyBox(out, outShape, ov.Dst, data, blockShape, ov.Src); err != nil {
			return errors.Wrapf(err, "copying block %s", c)
		}
		return nil
	})
	if err != nil {
		d.logger.Warn("region read failed", zap.Stringer("roi", roi), zap.Error(err))
		return nil, err
	}
	return out, nil
}

// ReadSlice reads the hyperslab starting at start with count elements per
// axis. Both slices are in (z, y, x) order.
func (d *Dataset) ReadSlice(start, count []uint64) ([]byte, error) {
	if len(start) != grid.NDims || len(count) != grid.NDims {
		return nil, errors.Errorf("start and count must have %d dimensions, got %d and %d",
			grid.NDims, len(start), len(count))
	}
	var roi ROI
	for i := range roi {
		roi[i] = Range{Start: int(start[i]), Stop: int(start[i] + count[i])}
	}
	return d.Read(roi)
}
