package images

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Thumbnail converts the frame to a standard library image scaled down to
// the given width, preserving aspect ratio. Used by the debug writer so
// per-instance crops stay small on disk; Lanczos keeps leaf edges legible.
//
// Arguments:
//   - width: Target width in pixels; the height follows the aspect ratio.
//
// Returns:
//   - image.Image: The scaled image.
//   - error: ErrEmptyFrame for empty input, or a conversion failure.
func (f Frame) Thumbnail(width uint) (image.Image, error) {
	if f.Empty() {
		return nil, ErrEmptyFrame
	}
	img, err := f.mat.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "images: frame to image")
	}
	return resize.Resize(width, 0, img, resize.Lanczos3), nil
}
