// Package images - Frame and mask value types shared by the vegetation
// analysis pipeline, plus conversions between gocv matrices and the
// standard library image types.
package images

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned when an operation receives a frame with no pixel data.
var ErrEmptyFrame = errors.New("images: empty frame")

// Frame is one owned raster image, usually a decoded BGR capture tick
// but also the binary masks the pipeline hands to debug output. The
// pipeline invocation that receives a Frame owns it exclusively;
// analysis code only reads it or clones it for annotation. Crops taken
// from a Frame are owned copies, never views sharing the parent's
// backing memory.
type Frame struct {
	mat gocv.Mat
	ok  bool
}

// NewFrame wraps an existing BGR matrix. The Frame takes ownership of the
// matrix; the caller must not Close it separately.
func NewFrame(mat gocv.Mat) Frame {
	return Frame{mat: mat, ok: true}
}

// Zero returns a black height×width×3 frame. It is the substitution value
// for malformed or missing captures so that the pipeline never aborts.
func Zero(width, height int) Frame {
	return Frame{mat: gocv.Zeros(height, width, gocv.MatTypeCV8UC3), ok: true}
}

// Decode builds a Frame from an encoded image buffer (JPEG/PNG).
//
// Arguments:
//   - data: The encoded image bytes.
//
// Returns:
//   - Frame: The decoded BGR frame.
//   - error: Decoding failure, wrapped.
func Decode(data []byte) (Frame, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return Frame{}, errors.Wrap(err, "images: decode frame")
	}
	return Frame{mat: mat, ok: true}, nil
}

// Mat exposes the underlying matrix for read-only use by gocv operations.
func (f Frame) Mat() gocv.Mat { return f.mat }

// Empty reports whether the frame holds no pixel data.
func (f Frame) Empty() bool { return !f.ok || f.mat.Empty() }

// Bounds returns the frame rectangle anchored at the origin.
func (f Frame) Bounds() image.Rectangle {
	if f.Empty() {
		return image.Rectangle{}
	}
	return image.Rect(0, 0, f.mat.Cols(), f.mat.Rows())
}

// Width returns the frame width in pixels.
func (f Frame) Width() int { return f.mat.Cols() }

// Height returns the frame height in pixels.
func (f Frame) Height() int { return f.mat.Rows() }

// Clone returns an independent deep copy, used for annotation overlays.
func (f Frame) Clone() Frame {
	if f.Empty() {
		return Frame{}
	}
	return Frame{mat: f.mat.Clone(), ok: true}
}

// CropOwned returns an owned copy of the region r clipped to the frame
// bounds. The copy shares no memory with the parent frame.
//
// Arguments:
//   - r: The requested region in frame coordinates.
//
// Returns:
//   - Frame: The cropped copy.
//   - error: ErrEmptyFrame when the clipped region is degenerate.
func (f Frame) CropOwned(r image.Rectangle) (Frame, error) {
	clipped := r.Intersect(f.Bounds())
	if clipped.Dx() <= 0 || clipped.Dy() <= 0 {
		return Frame{}, ErrEmptyFrame
	}
	region := f.mat.Region(clipped)
	defer region.Close()
	return Frame{mat: region.Clone(), ok: true}, nil
}

// Close releases the native matrix. Safe to call on a zero Frame.
func (f *Frame) Close() {
	if f.ok {
		f.mat.Close()
		f.ok = false
	}
}
