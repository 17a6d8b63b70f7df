package controller

import (
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// thumbnailWidth keeps per-instance debug crops small on disk.
const thumbnailWidth = 256

// DebugWriter dumps per-frame masks, overlays, and instance crops into a
// directory. It is purely a side effect after the in-memory result is
// produced; failures are returned for logging and never gate the next
// frame. Not required for correctness.
type DebugWriter struct {
	// Dir is the debug output directory.
	Dir string
}

// WriteFrame writes the vegetation mask, the annotated overlay, and one
// thumbnail per instance crop. Filenames carry the frame number so
// successive frames do not overwrite each other.
//
// Arguments:
//   - result: The completed frame result; its Mask and Annotated frames
//     are the images written.
//
// Returns:
//   - error: The first wrapped IO failure, if any.
func (d *DebugWriter) WriteFrame(result *FrameResult) error {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return errors.Wrap(err, "controller: create debug dir")
	}
	prefix := fmt.Sprintf("frame_%06d", result.FrameNumber)

	if !result.Mask.Empty() {
		path := filepath.Join(d.Dir, prefix+"_mask.png")
		if ok := gocv.IMWrite(path, result.Mask.Mat()); !ok {
			return errors.Errorf("controller: write debug mask %s", path)
		}
	}
	if !result.Annotated.Empty() {
		path := filepath.Join(d.Dir, prefix+"_annotated.jpg")
		if ok := gocv.IMWrite(path, result.Annotated.Mat()); !ok {
			return errors.Errorf("controller: write debug overlay %s", path)
		}
	}

	for i := range result.Instances {
		in := &result.Instances[i]
		if in.Crop.Empty() {
			continue
		}
		thumb, err := in.Crop.Thumbnail(thumbnailWidth)
		if err != nil {
			continue
		}
		path := filepath.Join(d.Dir, fmt.Sprintf("%s_instance_%d.jpg", prefix, in.ID))
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "controller: create debug crop")
		}
		if err := jpeg.Encode(f, thumb, &jpeg.Options{Quality: 85}); err != nil {
			f.Close()
			return errors.Wrap(err, "controller: encode debug crop")
		}
		if err := f.Close(); err != nil {
			return errors.Wrap(err, "controller: close debug crop")
		}
	}
	return nil
}
