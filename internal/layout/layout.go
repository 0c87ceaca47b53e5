package layout

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/robert-malhotra/go-knossos/internal/grid"
)

// Sentinel is the directory every Knossos store root must contain.
const Sentinel = "mag1"

// DefaultBlockSize is the edge length of a Knossos block.
const DefaultBlockSize = 128

// Common errors
var (
	ErrNoSentinel = errors.New("missing " + Sentinel + " directory")
	ErrEmptyLevel = errors.New("no block directories")
)

// Descriptor is the immutable geometry of one dataset, built once when the
// dataset is opened.
type Descriptor struct {
	// Root is the dataset directory.
	Root string
	// Prefix starts every block file name.
	Prefix string
	// BlockSize is the edge length of the cubic blocks.
	BlockSize int
	// Grid is the number of blocks per axis, (z, y, x).
	Grid [grid.NDims]int
	// Ext is the block file extension, without the dot.
	Ext string
}

// Open discovers the grid of the dataset stored at root.
func Open(root, prefix string, blockSize int, ext string) (*Descriptor, error) {
	if blockSize < 1 {
		return nil, errors.Errorf("invalid block size %d", blockSize)
	}
	g, err := Discover(os.DirFS(root))
	if err != nil {
		return nil, err
	}
	return &Descriptor{
		Root:      root,
		Prefix:    prefix,
		BlockSize: blockSize,
		Grid:      g,
		Ext:       ext,
	}, nil
}

// Shape returns the dataset dimensions in elements, (z, y, x).
func (d *Descriptor) Shape() [grid.NDims]int {
	var shape [grid.NDims]int
	for i, n := range d.Grid {
		shape[i] = n * d.BlockSize
	}
	return shape
}

// BlockShape returns the dimensions of one block.
func (d *Descriptor) BlockShape() [grid.NDims]int {
	return [grid.NDims]int{d.BlockSize, d.BlockSize, d.BlockSize}
}

// BlockVoxels returns the number of elements in one block.
func (d *Descriptor) BlockVoxels() int {
	return d.BlockSize * d.BlockSize * d.BlockSize
}

// BlockPath returns the slash-separated path of block c relative to Root.
func (d *Descriptor) BlockPath(c grid.Coord) string {
	// on disk the order is x, y, z
	x, y, z := c[2], c[1], c[0]
	xs := fmt.Sprintf("x%04d", x)
	ys := fmt.Sprintf("y%04d", y)
	zs := fmt.Sprintf("z%04d", z)
	name := fmt.Sprintf("%s_%s_%s_%s.%s", d.Prefix, xs, ys, zs, d.Ext)
	return path.Join(xs, ys, zs, name)
}

// BlockFile returns the filesystem path of block c.
func (d *Descriptor) BlockFile(c grid.Coord) string {
	return filepath.Join(d.Root, filepath.FromSlash(d.BlockPath(c)))
}

// HasSentinel reports an error unless root contains the sentinel directory.
func HasSentinel(root string) error {
	info, err := os.Stat(filepath.Join(root, Sentinel))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNoSentinel
		}
		return errors.Wrap(err, "checking sentinel")
	}
	if !info.IsDir() {
		return ErrNoSentinel
	}
	return nil
}

// Discover returns the block grid, (z, y, x), of the dataset in fsys.
func Discover(fsys fs.FS) ([grid.NDims]int, error) {
	var g [grid.NDims]int

	nx, xdir, err := countDirs(fsys, ".")
	if err != nil {
		return g, errors.Wrap(err, "counting x blocks")
	}
	ny, ydir, err := countDirs(fsys, xdir)
	if err != nil {
		return g, errors.Wrap(err, "counting y blocks")
	}
	nz, _, err := countDirs(fsys, path.Join(xdir, ydir))
	if err != nil {
		return g, errors.Wrap(err, "counting z blocks")
	}

	g[0], g[1], g[2] = nz, ny, nx
	return g, nil
}

// countDirs returns the number of directories in dir and the name of the
// first one.
func countDirs(fsys fs.FS, dir string) (int, string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return 0, "", err
	}

	count := 0
	first := ""
	for _, e := range entries {
		if !isDir(fsys, dir, e) {
			continue
		}
		if count == 0 {
			first = e.Name()
		}
		count++
	}
	if count == 0 {
		return 0, "", errors.Wrapf(ErrEmptyLevel, "in %q", dir)
	}
	return count, first, nil
}

// isDir follows symlinks the same way os.Stat does.
func isDir(fsys fs.FS, dir string, e fs.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := fs.Stat(fsys, path.Join(dir, e.Name()))
	return err == nil && info.IsDir()
}
