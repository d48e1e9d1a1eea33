package svgpng

import (
	"bytes"
	"io"
	"math"
)

// Result describes a PNG written by a successful conversion.
//
// It is safe to call its methods multiple times; the underlying data
// is never modified.
type Result struct {
	// Path is where the PNG was written.
	Path string
	// Dimensions are the measured SVG and viewport sizes.
	Dimensions Dimensions
	// Scale is the device scale factor the page was rendered at.
	Scale float64

	data []byte
}

// Bytes returns the raw PNG content.
func (r *Result) Bytes() []byte {
	return r.data
}

// Reader returns an [*bytes.Reader] over the PNG content.
func (r *Result) Reader() *bytes.Reader {
	return bytes.NewReader(r.data)
}

// WriteTo writes the full PNG content to w. It implements [io.WriterTo].
func (r *Result) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.data)
	return int64(n), err
}

// Len returns the size of the PNG in bytes.
func (r *Result) Len() int {
	return len(r.data)
}

// PixelSize returns the expected image size in device pixels.
func (r *Result) PixelSize() (width, height int) {
	return int(math.Round(float64(r.Dimensions.Width) * r.Scale)),
		int(math.Round(float64(r.Dimensions.Height) * r.Scale))
}
