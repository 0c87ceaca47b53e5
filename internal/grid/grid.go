package grid

import "fmt"

// NDims is the dimensionality of every volume handled by this package.
const NDims = 3

// Range is a half-open interval [Start, Stop) along one axis.
type Range struct {
	Start int
	Stop  int
}

// Len returns the number of elements in the range.
func (r Range) Len() int {
	return r.Stop - r.Start
}

func (r Range) String() string {
	return fmt.Sprintf("%d:%d", r.Start, r.Stop)
}

// Box is a rectangular region given as one Range per axis in (z, y, x) order.
type Box [NDims]Range

// Shape returns the extent of the box along each axis.
func (b Box) Shape() [NDims]int {
	var shape [NDims]int
	for d, r := range b {
		shape[d] = r.Len()
	}
	return shape
}

// NumElements returns the number of elements inside the box.
func (b Box) NumElements() int {
	n := 1
	for _, r := range b {
		n *= r.Len()
	}
	return n
}

func (b Box) String() string {
	return fmt.Sprintf("[%s, %s, %s]", b[0], b[1], b[2])
}

// Coord locates a block in block units, (z, y, x) order.
type Coord [NDims]int

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c[0], c[1], c[2])
}

// Overlap pairs the part of a block that falls inside a region with the
// position it occupies in the region's output buffer.
type Overlap struct {
	// Src is the sub-box to read, in block-local coordinates.
	Src Box
	// Dst is the sub-box to fill, in region-local coordinates.
	Dst Box
}

// AxisBlocks returns the half-open range of block indices covering r.
func AxisBlocks(r Range, edge int) Range {
	lo := r.Start / edge
	hi := r.Stop / edge
	if r.Stop%edge != 0 {
		hi++
	}
	return Range{Start: lo, Stop: hi}
}

// Blocks returns the coordinates of every block that intersects roi.
// Coordinates are produced with x varying fastest.
func Blocks(roi Box, edge int) []Coord {
	var ranges [NDims]Range
	count := 1
	for d := 0; d < NDims; d++ {
		ranges[d] = AxisBlocks(roi[d], edge)
		if ranges[d].Len() <= 0 {
			return nil
		}
		count *= ranges[d].Len()
	}

	coords := make([]Coord, 0, count)
	for z := ranges[0].Start; z < ranges[0].Stop; z++ {
		for y := ranges[1].Start; y < ranges[1].Stop; y++ {
			for x := ranges[2].Start; x < ranges[2].Stop; x++ {
				coords = append(coords, Coord{z, y, x})
			}
		}
	}
	return coords
}

// OverlapOf computes the source and destination sub-boxes for block c
// within roi.
func OverlapOf(c Coord, roi Box, edge int) Overlap {
	var ov Overlap
	for d := 0; d < NDims; d++ {
		blockBegin := c[d] * edge
		blockEnd := blockBegin + edge
		roiBegin := roi[d].Start
		roiEnd := roi[d].Stop

		offDiff := blockBegin - roiBegin
		endDiff := roiEnd - blockEnd

		var dstStart, srcStart, extent int
		switch {
		case offDiff < 0:
			// roi starts inside this block, and may end inside it too
			dstStart = 0
			srcStart = -offDiff
			if blockEnd <= roiEnd {
				extent = blockEnd - roiBegin
			} else {
				extent = roiEnd - roiBegin
			}
		case endDiff < 0:
			// roi ends inside this block
			dstStart = offDiff
			srcStart = 0
			extent = roiEnd - blockBegin
		default:
			dstStart = offDiff
			srcStart = 0
			extent = edge
		}

		ov.Src[d] = Range{Start: srcStart, Stop: srcStart + extent}
		ov.Dst[d] = Range{Start: dstStart, Stop: dstStart + extent}
	}
	return ov
}

// CopyBox copies the elements of srcBox in src into dstBox in dst. Both
// buffers hold one byte per element in row-major order with the given
// shapes. The boxes must have the same shape and lie inside their buffers.
func CopyBox(dst []byte, dstShape [NDims]int, dstBox Box, src []byte, srcShape [NDims]int, srcBox Box) error {
	for d := 0; d < NDims; d++ {
		if dstBox[d].Len() != srcBox[d].Len() {
			return fmt.Errorf("extent mismatch on axis %d: dst %s, src %s", d, dstBox[d], srcBox[d])
		}
		if dstBox[d].Start < 0 || dstBox[d].Stop > dstShape[d] {
			return fmt.Errorf("destination %s out of bounds on axis %d (size %d)", dstBox[d], d, dstShape[d])
		}
		if srcBox[d].Start < 0 || srcBox[d].Stop > srcShape[d] {
			return fmt.Errorf("source %s out of bounds on axis %d (size %d)", srcBox[d], d, srcShape[d])
		}
	}
	if len(dst) < product(dstShape) || len(src) < product(srcShape) {
		return fmt.Errorf("buffer smaller than its shape")
	}
	if dstBox.NumElements() == 0 {
		return nil
	}

	dstStrides := strides(dstShape)
	srcStrides := strides(srcShape)
	copyBoxRecursive(dst, src, dstBox, srcBox, dstStrides, srcStrides, 0, 0, 0)
	return nil
}

// copyBoxRecursive walks the outer axes and copies the innermost axis as one
// contiguous row.
func copyBoxRecursive(
	dst, src []byte,
	dstBox, srcBox Box,
	dstStrides, srcStrides [NDims]int,
	dstIdx, srcIdx int,
	dim int,
) {
	if dim == NDims-1 {
		rowLen := srcBox[dim].Len()
		dstStart := dstIdx + dstBox[dim].Start*dstStrides[dim]
		srcStart := srcIdx + srcBox[dim].Start*srcStrides[dim]
		copy(dst[dstStart:dstStart+rowLen], src[srcStart:srcStart+rowLen])
		return
	}

	for i := 0; i < srcBox[dim].Len(); i++ {
		copyBoxRecursive(
			dst, src,
			dstBox, srcBox,
			dstStrides, srcStrides,
			dstIdx+(dstBox[dim].Start+i)*dstStrides[dim],
			srcIdx+(srcBox[dim].Start+i)*srcStrides[dim],
			dim+1,
		)
	}
}

// strides returns row-major element strides for shape.
func strides(shape [NDims]int) [NDims]int {
	var s [NDims]int
	s[NDims-1] = 1
	for d := NDims - 2; d >= 0; d-- {
		s[d] = s[d+1] * shape[d+1]
	}
	return s
}

func product(shape [NDims]int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
