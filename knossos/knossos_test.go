package knossos

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// voxel is the value stored at global position (z, y, x) in test stores.
func voxel(z, y, x int) byte {
	return byte((z*31 + y*17 + x*7) % 251)
}

type testStore struct {
	root  string
	key   string
	edge  int
	grid  [3]int // z, y, x
	codec Codec
	value func(z, y, x int) byte
}

// write lays the store out on disk with one image per block. Each image is
// edge pixels wide and edge*edge rows tall so its pixels in row-major order
// are the block voxels in (z, y, x) order.
func (s *testStore) write(t *testing.T) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(s.root, "mag1"), 0o755))

	prefix := filepath.Base(s.root) + "_" + s.key
	for bz := 0; bz < s.grid[0]; bz++ {
		for by := 0; by < s.grid[1]; by++ {
			for bx := 0; bx < s.grid[2]; bx++ {
				img := image.NewGray(image.Rect(0, 0, s.edge, s.edge*s.edge))
				for z := 0; z < s.edge; z++ {
					for y := 0; y < s.edge; y++ {
						for x := 0; x < s.edge; x++ {
							img.Pix[(z*s.edge+y)*s.edge+x] = s.value(bz*s.edge+z, by*s.edge+y, bx*s.edge+x)
						}
					}
				}

				dir := filepath.Join(s.root, s.key,
					fmt.Sprintf("x%04d", bx), fmt.Sprintf("y%04d", by), fmt.Sprintf("z%04d", bz))
				name := fmt.Sprintf("%s_x%04d_y%04d_z%04d.%s", prefix, bx, by, bz, s.codec.Ext())
				writeImage(t, filepath.Join(dir, name), img, s.codec)
			}
		}
	}
}

func writeImage(t *testing.T, path string, img image.Image, c Codec) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var buf bytes.Buffer
	switch c {
	case PNG:
		require.NoError(t, png.Encode(&buf, img))
	case JPEG:
		require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))
	}
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

// newStore writes a PNG store named "vol" with dataset "mag1".
func newStore(t *testing.T, edge int, grid [3]int) *testStore {
	t.Helper()
	s := &testStore{
		root:  filepath.Join(t.TempDir(), "vol"),
		key:   "mag1",
		edge:  edge,
		grid:  grid,
		codec: PNG,
		value: voxel,
	}
	s.write(t)
	return s
}

func expected(roi ROI, value func(z, y, x int) byte) []byte {
	out := make([]byte, 0, roi.NumElements())
	for z := roi[0].Start; z < roi[0].Stop; z++ {
		for y := roi[1].Start; y < roi[1].Stop; y++ {
			for x := roi[2].Start; x < roi[2].Stop; x++ {
				out = append(out, value(z, y, x))
			}
		}
	}
	return out
}

func openDataset(t *testing.T, s *testStore, opts ...Option) *Dataset {
	t.Helper()
	opts = append([]Option{WithBlockSize(s.edge), WithCodec(s.codec), WithLogger(zaptest.NewLogger(t))}, opts...)
	f, err := Open(s.root, opts...)
	require.NoError(t, err)
	ds, err := f.Get(s.key)
	require.NoError(t, err)
	return ds
}

func TestOpenMissingSentinel(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "mag2"), 0o755))

	_, err := Open(root)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFormat))

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, root, fe.Path)
}

func TestOpenNonexistent(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, ErrFormat)
}

func TestGetMissingKey(t *testing.T) {
	s := newStore(t, 4, [3]int{1, 1, 1})
	f, err := Open(s.root, WithBlockSize(4))
	require.NoError(t, err)

	for _, key := range []string{"mag2", "", "../vol", "mag1/x0000", "..", "."} {
		t.Run(key, func(t *testing.T) {
			_, err := f.Get(key)
			require.ErrorIs(t, err, ErrKeyNotFound)
			var ke *KeyError
			require.True(t, errors.As(err, &ke))
			require.Equal(t, key, ke.Key)
		})
	}
}

func TestGetEmptyDataset(t *testing.T) {
	s := newStore(t, 4, [3]int{1, 1, 1})
	require.NoError(t, os.Mkdir(filepath.Join(s.root, "mag2"), 0o755))

	f, err := Open(s.root, WithBlockSize(4))
	require.NoError(t, err)
	_, err = f.Get("mag2")
	require.ErrorIs(t, err, ErrFormat)
}

func TestDatasetGeometry(t *testing.T) {
	s := newStore(t, 4, [3]int{2, 3, 1})
	require.NoError(t, os.Mkdir(filepath.Join(s.root, "mag2"), 0o755))

	f, err := Open(s.root, WithBlockSize(4))
	require.NoError(t, err)
	require.Equal(t, "vol", f.Name())
	require.Equal(t, PNG, f.Codec())

	keys, err := f.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"mag1", "mag2"}, keys)

	ds, err := f.OpenDataset("mag1")
	require.NoError(t, err)
	require.Equal(t, "mag1", ds.Key())
	require.Equal(t, "vol_mag1", ds.Prefix())
	require.Equal(t, filepath.Join(s.root, "mag1"), ds.Path())
	require.Equal(t, [3]int{2, 3, 1}, ds.Grid())
	require.Equal(t, [3]int{8, 12, 4}, ds.Shape())
	require.Equal(t, [3]int{4, 4, 4}, ds.BlockShape())
	require.Equal(t, Uint8, ds.Dtype())
	require.Equal(t, "uint8", ds.Dtype().String())
	require.Equal(t, 1, ds.Dtype().Size())
	require.Equal(t, 3, ds.Rank())
	require.Equal(t, 8*12*4, ds.NumElements())
	require.Equal(t, 1, ds.Workers())
}

func TestDefaultBlockSizeShape(t *testing.T) {
	// only directories: discovery never opens block files
	root := filepath.Join(t.TempDir(), "big")
	for _, x := range []string{"x0000", "x0001"} {
		for _, y := range []string{"y0000", "y0001"} {
			for _, z := range []string{"z0000", "z0001"} {
				require.NoError(t, os.MkdirAll(filepath.Join(root, "mag1", x, y, z), 0o755))
			}
		}
	}

	f, err := Open(root)
	require.NoError(t, err)
	ds, err := f.Get("mag1")
	require.NoError(t, err)
	require.Equal(t, [3]int{256, 256, 256}, ds.Shape())
	require.Equal(t, [3]int{128, 128, 128}, ds.BlockShape())

	_, err = ds.Read(ROI{{Start: 100, Stop: 200}, {Start: 0, Stop: 128}, {Start: 0, Stop: 300}})
	require.ErrorIs(t, err, ErrOutOfRange)
	var re *RangeError
	require.True(t, errors.As(err, &re))
	require.Equal(t, 2, re.Axis)
	require.Equal(t, 256, re.Extent)
}

func TestReadMatchesVolume(t *testing.T) {
	s := newStore(t, 4, [3]int{2, 3, 2})
	ds := openDataset(t, s)

	tests := []struct {
		name string
		roi  ROI
	}{
		{"whole volume", ROI{{Start: 0, Stop: 8}, {Start: 0, Stop: 12}, {Start: 0, Stop: 8}}},
		{"single voxel", ROI{{Start: 5, Stop: 6}, {Start: 7, Stop: 8}, {Start: 3, Stop: 4}}},
		{"inside one block", ROI{{Start: 1, Stop: 3}, {Start: 1, Stop: 3}, {Start: 1, Stop: 3}}},
		{"block aligned", ROI{{Start: 4, Stop: 8}, {Start: 4, Stop: 12}, {Start: 0, Stop: 4}}},
		{"unaligned across blocks", ROI{{Start: 3, Stop: 7}, {Start: 2, Stop: 11}, {Start: 1, Stop: 8}}},
		{"thin slab", ROI{{Start: 0, Stop: 8}, {Start: 6, Stop: 7}, {Start: 0, Stop: 8}}},
		{"last voxel", ROI{{Start: 7, Stop: 8}, {Start: 11, Stop: 12}, {Start: 7, Stop: 8}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ds.Read(tt.roi)
			require.NoError(t, err)
			require.Equal(t, expected(tt.roi, voxel), got)
		})
	}
}

func TestReadWorkersIdentical(t *testing.T) {
	s := newStore(t, 4, [3]int{3, 2, 3})
	ds := openDataset(t, s)
	roi := ROI{{Start: 1, Stop: 11}, {Start: 2, Stop: 8}, {Start: 3, Stop: 12}}

	base, err := ds.Read(roi)
	require.NoError(t, err)
	for _, n := range []int{2, 4, 8} {
		got, err := ds.WithWorkers(n).Read(roi)
		require.NoError(t, err, "workers %d", n)
		require.True(t, bytes.Equal(base, got), "workers %d differ", n)
	}
	require.Equal(t, 1, ds.Workers(), "WithWorkers must not modify the original")
}

func TestReadRangeErrors(t *testing.T) {
	s := newStore(t, 4, [3]int{1, 1, 2})
	ds := openDataset(t, s)

	tests := []struct {
		name string
		roi  ROI
		axis int
	}{
		{"negative start", ROI{{Start: -1, Stop: 2}, {Start: 0, Stop: 4}, {Start: 0, Stop: 8}}, 0},
		{"empty range", ROI{{Start: 0, Stop: 4}, {Start: 2, Stop: 2}, {Start: 0, Stop: 8}}, 1},
		{"reversed range", ROI{{Start: 0, Stop: 4}, {Start: 0, Stop: 4}, {Start: 5, Stop: 3}}, 2},
		{"stop past end", ROI{{Start: 0, Stop: 4}, {Start: 0, Stop: 4}, {Start: 0, Stop: 9}}, 2},
		{"zero value", ROI{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ds.Read(tt.roi)
			require.Nil(t, out)
			require.ErrorIs(t, err, ErrOutOfRange)
			var re *RangeError
			require.True(t, errors.As(err, &re))
			require.Equal(t, tt.axis, re.Axis)
		})
	}
}

func TestReadOutOfRangeDoesNoIO(t *testing.T) {
	s := newStore(t, 4, [3]int{1, 1, 1})
	// remove the only block: any file access would fail with ErrBlockRead
	require.NoError(t, os.RemoveAll(filepath.Join(s.root, "mag1", "x0000", "y0000", "z0000")))
	require.NoError(t, os.MkdirAll(filepath.Join(s.root, "mag1", "x0000", "y0000", "z0000"), 0o755))

	m := NewMetrics(prometheus.NewRegistry())
	ds := openDataset(t, s, WithMetrics(m))

	_, err := ds.Read(ROI{{Start: 0, Stop: 4}, {Start: 0, Stop: 4}, {Start: 0, Stop: 5}})
	require.ErrorIs(t, err, ErrOutOfRange)
	require.False(t, errors.Is(err, ErrBlockRead))
	require.Equal(t, float64(0), testutil.ToFloat64(m.BlocksLoaded))
	require.Equal(t, float64(0), testutil.ToFloat64(m.BlockErrors))
}

func TestReadMissingBlock(t *testing.T) {
	s := newStore(t, 4, [3]int{2, 2, 2})
	missing := filepath.Join(s.root, "mag1", "x0001", "y0000", "z0001", "vol_mag1_x0001_y0000_z0001.png")
	require.NoError(t, os.Remove(missing))

	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			ds := openDataset(t, s, WithWorkers(workers))
			out, err := ds.Read(ROI{{Start: 0, Stop: 8}, {Start: 0, Stop: 8}, {Start: 0, Stop: 8}})
			require.Nil(t, out)
			require.ErrorIs(t, err, ErrBlockRead)
			require.ErrorIs(t, err, os.ErrNotExist)

			var be *BlockReadError
			require.True(t, errors.As(err, &be))
			require.Equal(t, Coord{1, 0, 1}, be.Coord)
			require.Equal(t, missing, be.Path)

			// regions that avoid the missing block still read
			roi := ROI{{Start: 0, Stop: 4}, {Start: 0, Stop: 8}, {Start: 0, Stop: 8}}
			got, err := ds.Read(roi)
			require.NoError(t, err)
			require.Equal(t, expected(roi, voxel), got)
		})
	}
}

func TestReadWrongBlockShape(t *testing.T) {
	s := newStore(t, 4, [3]int{1, 1, 1})
	path := filepath.Join(s.root, "mag1", "x0000", "y0000", "z0000", "vol_mag1_x0000_y0000_z0000.png")
	writeImage(t, path, image.NewGray(image.Rect(0, 0, 4, 4)), PNG)

	ds := openDataset(t, s)
	_, err := ds.Read(ROI{{Start: 0, Stop: 1}, {Start: 0, Stop: 1}, {Start: 0, Stop: 1}})
	require.ErrorIs(t, err, ErrBlockRead)
}

func TestReadCorruptBlock(t *testing.T) {
	s := newStore(t, 4, [3]int{1, 1, 1})
	path := filepath.Join(s.root, "mag1", "x0000", "y0000", "z0000", "vol_mag1_x0000_y0000_z0000.png")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	ds := openDataset(t, s)
	_, err := ds.Read(ROI{{Start: 0, Stop: 4}, {Start: 0, Stop: 4}, {Start: 0, Stop: 4}})
	require.ErrorIs(t, err, ErrBlockRead)
}

// TestAxisOrder uses a grid with a different block count on every axis and
// fills each block with a value derived from its coordinate, so any mix-up
// between the (z, y, x) grid order and the (x, y, z) file naming shows.
func TestAxisOrder(t *testing.T) {
	blockValue := func(z, y, x int) byte {
		return byte(100*(z/2) + 10*(y/2) + x/2)
	}
	s := &testStore{
		root:  filepath.Join(t.TempDir(), "vol"),
		key:   "mag1",
		edge:  2,
		grid:  [3]int{2, 3, 4},
		codec: PNG,
		value: blockValue,
	}
	s.write(t)

	// block z=1, y=2, x=3 is stored as x0003/y0002/z0001
	_, err := os.Stat(filepath.Join(s.root, "mag1", "x0003", "y0002", "z0001", "vol_mag1_x0003_y0002_z0001.png"))
	require.NoError(t, err)

	ds := openDataset(t, s)
	require.Equal(t, [3]int{4, 6, 8}, ds.Shape())

	got, err := ds.Read(ROI{{Start: 2, Stop: 3}, {Start: 4, Stop: 5}, {Start: 6, Stop: 7}})
	require.NoError(t, err)
	require.Equal(t, []byte{123}, got)

	got, err = ds.Read(ROI{{Start: 0, Stop: 1}, {Start: 2, Stop: 3}, {Start: 0, Stop: 1}})
	require.NoError(t, err)
	require.Equal(t, []byte{10}, got)
}

func TestReadJPEG(t *testing.T) {
	blockValue := func(z, y, x int) byte {
		return byte(40 + 60*(z/8) + 20*(x/8))
	}
	s := &testStore{
		root:  filepath.Join(t.TempDir(), "vol"),
		key:   "mag1",
		edge:  8,
		grid:  [3]int{2, 1, 2},
		codec: JPEG,
		value: blockValue,
	}
	s.write(t)

	ds := openDataset(t, s)
	roi := ROI{{Start: 6, Stop: 10}, {Start: 0, Stop: 8}, {Start: 5, Stop: 11}}
	got, err := ds.Read(roi)
	require.NoError(t, err)

	want := expected(roi, blockValue)
	require.Len(t, got, len(want))
	for i := range want {
		require.InDelta(t, int(want[i]), int(got[i]), 3, "element %d", i)
	}
}

func TestReadJPEGStoreWithPNGCodec(t *testing.T) {
	s := &testStore{
		root:  filepath.Join(t.TempDir(), "vol"),
		key:   "mag1",
		edge:  4,
		grid:  [3]int{1, 1, 1},
		codec: JPEG,
		value: voxel,
	}
	s.write(t)

	f, err := Open(s.root, WithBlockSize(4))
	require.NoError(t, err)
	ds, err := f.Get("mag1")
	require.NoError(t, err)
	_, err = ds.Read(ROI{{Start: 0, Stop: 4}, {Start: 0, Stop: 4}, {Start: 0, Stop: 4}})
	require.ErrorIs(t, err, ErrBlockRead)
}

func TestBlockCache(t *testing.T) {
	s := newStore(t, 4, [3]int{1, 2, 2})
	m := NewMetrics(prometheus.NewRegistry())
	ds := openDataset(t, s, WithBlockCache(8), WithMetrics(m))

	roi := ROI{{Start: 1, Stop: 4}, {Start: 2, Stop: 7}, {Start: 1, Stop: 6}}
	first, err := ds.Read(roi)
	require.NoError(t, err)
	require.Equal(t, float64(4), testutil.ToFloat64(m.BlocksLoaded))
	require.Equal(t, float64(4), testutil.ToFloat64(m.CacheMisses))

	// the output must not alias cached blocks
	for i := range first {
		first[i] = 0xFF
	}

	second, err := ds.WithWorkers(4).Read(roi)
	require.NoError(t, err)
	require.Equal(t, expected(roi, voxel), second)
	require.Equal(t, float64(4), testutil.ToFloat64(m.BlocksLoaded))
	require.Equal(t, float64(4), testutil.ToFloat64(m.CacheHits))
	require.Equal(t, float64(2), testutil.ToFloat64(m.Reads.WithLabelValues("ok")))
}

func TestReadSlice(t *testing.T) {
	s := newStore(t, 4, [3]int{2, 2, 2})
	ds := openDataset(t, s)

	got, err := ds.ReadSlice([]uint64{2, 3, 1}, []uint64{4, 2, 6})
	require.NoError(t, err)
	require.Equal(t, expected(ROI{{Start: 2, Stop: 6}, {Start: 3, Stop: 5}, {Start: 1, Stop: 7}}, voxel), got)

	_, err = ds.ReadSlice([]uint64{0, 0}, []uint64{1, 1})
	require.Error(t, err)

	_, err = ds.ReadSlice([]uint64{0, 0, 0}, []uint64{1, 1, 0})
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestReadContextCanceled(t *testing.T) {
	s := newStore(t, 4, [3]int{2, 2, 2})
	ds := openDataset(t, s, WithWorkers(4))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := ds.ReadContext(ctx, ROI{{Start: 0, Stop: 8}, {Start: 0, Stop: 8}, {Start: 0, Stop: 8}})
	require.Nil(t, out)
	require.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentReads(t *testing.T) {
	s := newStore(t, 4, [3]int{2, 2, 2})
	ds := openDataset(t, s, WithWorkers(2), WithBlockCache(3))

	rois := []ROI{
		{{Start: 0, Stop: 8}, {Start: 0, Stop: 8}, {Start: 0, Stop: 8}},
		{{Start: 1, Stop: 5}, {Start: 3, Stop: 7}, {Start: 2, Stop: 6}},
		{{Start: 4, Stop: 8}, {Start: 0, Stop: 4}, {Start: 4, Stop: 8}},
		{{Start: 0, Stop: 1}, {Start: 0, Stop: 1}, {Start: 0, Stop: 1}},
	}

	var wg sync.WaitGroup
	errs := make(chan error, 4*len(rois))
	for i := 0; i < 4; i++ {
		for _, roi := range rois {
			wg.Add(1)
			go func(roi ROI) {
				defer wg.Done()
				got, err := ds.Read(roi)
				if err != nil {
					errs <- err
					return
				}
				if !bytes.Equal(expected(roi, voxel), got) {
					errs <- fmt.Errorf("roi %v: wrong data", roi)
				}
			}(roi)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestWalkBlocks(t *testing.T) {
	s := newStore(t, 2, [3]int{1, 2, 2})
	require.NoError(t, os.Remove(filepath.Join(s.root, "mag1", "x0001", "y0001", "z0000", "vol_mag1_x0001_y0001_z0000.png")))
	ds := openDataset(t, s)

	var visited []Coord
	var missing []Coord
	require.NoError(t, ds.WalkBlocks(func(c Coord, path string, err error) error {
		visited = append(visited, c)
		if err != nil {
			missing = append(missing, c)
		}
		return nil
	}))
	require.Equal(t, []Coord{{0, 0, 0}, {0, 0, 1}, {0, 1, 0}, {0, 1, 1}}, visited)
	require.Equal(t, []Coord{{0, 1, 1}}, missing)

	stop := errors.New("stop")
	count := 0
	err := ds.WalkBlocks(func(Coord, string, error) error {
		count++
		return stop
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 1, count)
}
