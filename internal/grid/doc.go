// Package grid maps regions of a block-chunked 3-d volume onto the blocks
// that store them.
//
// A volume is split into cubic blocks of a fixed edge length. Every block is
// addressed by a [Coord] in block units, and a region of interest is a [Box]
// of half-open element ranges. All coordinates in this package are in
// (z, y, x) order, with x the fastest varying axis in memory.
//
// # Selecting Blocks
//
// [Blocks] returns the minimal set of blocks whose extent intersects a box.
// Per axis the covering block range is
//
//	lo = start / edge
//	hi = stop / edge       if stop is a multiple of edge
//	hi = stop / edge + 1   otherwise
//
// so a box that ends exactly on a block boundary does not pull in the block
// on the far side.
//
// # Overlaps
//
// [OverlapOf] computes, for one selected block, the sub-box to read from the
// block (block-local coordinates) and the sub-box to fill in the output
// (box-local coordinates). The two always have the same extent on every
// axis, and the destination boxes of all selected blocks tile the output
// exactly once. That disjointness is what allows blocks to be copied into a
// shared output buffer concurrently without locking.
//
// [CopyBox] performs the strided copy between two row-major buffers.
package grid
