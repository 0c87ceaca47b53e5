package knossos

import (
	"os"

	"github.com/robert-malhotra/go-knossos/internal/grid"
)

// WalkBlocksFunc is called for each block of a dataset.
// path is the block file the grid expects for c.
// err is the result of stat-ing that file, nil when it exists.
// Return nil to continue walking, or an error to stop.
type WalkBlocksFunc func(c Coord, path string, err error) error

// WalkBlocks visits every block of the dataset grid with x varying fastest.
// It only checks that files exist; nothing is decoded.
//
// Example:
//
//	var missing []knossos.Coord
//	ds.WalkBlocks(func(c knossos.Coord, path string, err error) error {
//	    if err != nil {
//	        missing = append(missing, c)
//	    }
//	    return nil
//	})
func (d *Dataset) WalkBlocks(fn WalkBlocksFunc) error {
	shape := d.Shape()
	all := ROI{{Start: 0, Stop: shape[0]}, {Start: 0, Stop: shape[1]}, {Start: 0, Stop: shape[2]}}
	for _, c := range grid.Blocks(all, d.desc.BlockSize) {
		path := d.desc.BlockFile(c)
		_, err := os.Stat(path)
		if err := fn(c, path, err); err != nil {
			return err
		}
	}
	return nil
}
