// Package layout describes the on-disk structure of a Knossos store.
//
// A store root holds one directory per dataset (magnification) and always
// contains the sentinel directory "mag1". Inside a dataset, every block
// lives in its own three-level directory:
//
//	<dataset>/x0001/y0000/z0002/<prefix>_x0001_y0000_z0002.png
//
// Indices are zero-padded to four digits and the prefix is
// "<store name>_<dataset key>". The extension depends on the codec.
//
// # Axis Order
//
// Everywhere else in this module block coordinates are (z, y, x). The
// directory and file names above are written (x, y, z). [Descriptor.BlockPath]
// is the only place where that reversal happens.
//
// # Grid Discovery
//
// The number of blocks per axis is not stored anywhere; [Discover] counts
// directories instead:
//
//  1. directories under the dataset root give the x extent,
//  2. directories under the first x directory give the y extent,
//  3. directories under the first x/y directory give the z extent.
//
// "First" means first in lexical order, which is x0000 and y0000 for a
// well-formed store. Other branches are assumed to have the same fan-out and
// are not checked; a store with irregular fan-out yields a grid derived from
// its first branch only.
package layout
