// Package codec decodes the raster image files that hold Knossos blocks.
//
// Every block of a Knossos store is one image file whose pixels, read in
// row-major order, are the block's voxels in (z, y, x) order. A store uses a
// single codec for all of its blocks; the codec is picked when the store is
// opened and resolved once to a [Decoder].
//
// # Supported Codecs
//
//   - [PNG] (".png"): lossless, the default for raw cubes.
//   - [JPEG] (".jpg"): lossy, used for compressed grayscale cubes.
//
// Decoders always return one byte per pixel. Grayscale images are copied
// row by row; any other color model is converted to 8-bit luminance first.
package codec
