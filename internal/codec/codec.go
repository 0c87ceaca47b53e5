package codec

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
)

// Codec identifies the image format used for block files.
type Codec int

const (
	PNG Codec = iota
	JPEG
)

// Ext returns the file extension (without the dot) used for blocks.
func (c Codec) Ext() string {
	switch c {
	case PNG:
		return "png"
	case JPEG:
		return "jpg"
	default:
		return ""
	}
}

func (c Codec) String() string {
	switch c {
	case PNG:
		return "png"
	case JPEG:
		return "jpeg"
	default:
		return fmt.Sprintf("codec(%d)", int(c))
	}
}

// Parse returns the codec named by s. Both format names and file
// extensions are accepted, case-insensitively.
func Parse(s string) (Codec, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	default:
		return 0, fmt.Errorf("unknown codec %q", s)
	}
}

// Decoder turns one encoded block file into row-major 8-bit samples.
type Decoder interface {
	// Codec returns the format handled by the decoder.
	Codec() Codec

	// Decode reads an image from r and returns its pixels, one byte each.
	Decode(r io.Reader) ([]byte, error)
}

// Registry maps codecs to decoder constructors.
var Registry = map[Codec]func() Decoder{
	PNG:  func() Decoder { return pngDecoder{} },
	JPEG: func() Decoder { return jpegDecoder{} },
}

// New returns the decoder for c.
func New(c Codec) (Decoder, error) {
	constructor, ok := Registry[c]
	if !ok {
		return nil, fmt.Errorf("unsupported codec: %s", c)
	}
	return constructor(), nil
}

type pngDecoder struct{}

func (pngDecoder) Codec() Codec { return PNG }

func (pngDecoder) Decode(r io.Reader) ([]byte, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("png decode: %w", err)
	}
	return Gray(img), nil
}

type jpegDecoder struct{}

func (jpegDecoder) Codec() Codec { return JPEG }

func (jpegDecoder) Decode(r io.Reader) ([]byte, error) {
	img, err := jpeg.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("jpeg decode: %w", err)
	}
	return Gray(img), nil
}

// Gray returns the pixels of img as row-major 8-bit luminance values.
func Gray(img image.Image) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, w*h)

	if g, ok := img.(*image.Gray); ok {
		// honor Stride so sub-images decode correctly
		for y := 0; y < h; y++ {
			row := g.Pix[y*g.Stride : y*g.Stride+w]
			copy(out[y*w:], row)
		}
		return out
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out[y*w+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
		}
	}
	return out
}
