// Package segmentation - Converts raw BGR frames into binary vegetation
// masks and splits merged masks into per-plant instances.
//
// The pipeline mirrors the classic marker-controlled watershed recipe:
//
// ┌──────────────┐
// │ Input Frame  │
// └──────┬───────┘
// ┌──────────────────────────────────┐
// │ HSV threshold (green band)       │
// └──────┬───────────────────────────┘
// ┌──────────────────────────────────┐
// │ Morphology (open 3x3, close 5x5) │
// └──────┬───────────────────────────┘
// ┌──────────────────────────────────┐
// │ Distance transform + peak seeds  │
// └──────┬───────────────────────────┘
// ┌──────────────────────────────────┐
// │ Watershed flooding               │
// └──────┬───────────────────────────┘
// ┌──────────────────────────────────┐
// │ Per-instance contours            │
// └──────────────────────────────────┘
//
// When the color mask yields nothing (adverse lighting), a grayscale
// Otsu threshold is used as a strictly lower-fidelity fallback.
package segmentation

import (
	"image"

	"gocv.io/x/gocv"
)

// HSVBound is one inclusive corner of the hue/saturation/value threshold box.
type HSVBound struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// Config contains the tunable parameters for vegetation segmentation.
type Config struct {
	// LowerBound is the lower HSV corner of the vegetation band.
	LowerBound HSVBound `json:"lower_bound"`
	// UpperBound is the upper HSV corner of the vegetation band.
	UpperBound HSVBound `json:"upper_bound"`
	// EnhancedLower replaces LowerBound when EnhancedSensitivity is set.
	EnhancedLower HSVBound `json:"enhanced_lower"`
	// EnhancedUpper replaces UpperBound when EnhancedSensitivity is set.
	EnhancedUpper HSVBound `json:"enhanced_upper"`
	// EnhancedSensitivity broadens the band to catch faint early growth.
	EnhancedSensitivity bool `json:"enhanced_sensitivity"`
	// MinContourArea filters speckle instances, in px².
	MinContourArea float64 `json:"min_contour_area"`
	// DistancePeakThreshold isolates blob cores on the normalized
	// distance transform before watershed seeding.
	DistancePeakThreshold float32 `json:"distance_peak_threshold"`
	// FallbackThreshold is the grayscale threshold for the Otsu fallback.
	FallbackThreshold float32 `json:"fallback_threshold"`
}

// DefaultConfig returns the standard vegetation band and noise filters.
func DefaultConfig() Config {
	return Config{
		LowerBound:            HSVBound{H: 25, S: 40, V: 40},
		UpperBound:            HSVBound{H: 85, S: 255, V: 255},
		EnhancedLower:         HSVBound{H: 20, S: 30, V: 30},
		EnhancedUpper:         HSVBound{H: 90, S: 255, V: 255},
		MinContourArea:        50.0,
		// 0.5 splits two touching radius-20 discs 35px apart; the neck of
		// that union sits at 0.484 of the peak distance, so 0.4 would keep
		// it and merge the seeds.
		DistancePeakThreshold: 0.5,
		FallbackThreshold:     100,
	}
}

// Segmenter produces binary vegetation masks from BGR frames. It is
// stateful only in the sense of holding reusable morphology kernels;
// every mask it returns is freshly allocated and owned by the caller.
// Always call Close() to release the native kernels.
type Segmenter struct {
	config      Config
	openKernel  gocv.Mat
	closeKernel gocv.Mat
}

// NewSegmenter constructs a Segmenter with its morphology kernels
// initialized (3x3 ellipse for opening, 5x5 ellipse for closing).
func NewSegmenter(config Config) *Segmenter {
	return &Segmenter{
		config:      config,
		openKernel:  gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(3, 3)),
		closeKernel: gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(5, 5)),
	}
}

// Mask thresholds the frame into a binary vegetation mask.
//
// The frame is converted to HSV, thresholded against the configured band
// (broadened when enhanced sensitivity is on), then opened with a small
// kernel to remove speckle and closed with a larger kernel to fill small
// gaps. A malformed or empty frame yields an empty mask, never an error.
//
// Arguments:
//   - frame: The BGR capture frame.
//
// Returns:
//   - gocv.Mat: A fresh 8UC1 mask the caller owns and must Close.
func (s *Segmenter) Mask(frame gocv.Mat) gocv.Mat {
	if frame.Empty() || frame.Channels() != 3 {
		return gocv.NewMat()
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(frame, &hsv, gocv.ColorBGRToHSV)

	lower, upper := s.config.LowerBound, s.config.UpperBound
	if s.config.EnhancedSensitivity {
		lower, upper = s.config.EnhancedLower, s.config.EnhancedUpper
	}

	mask := gocv.NewMat()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(lower.H, lower.S, lower.V, 0),
		gocv.NewScalar(upper.H, upper.S, upper.V, 0),
		&mask)

	gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, s.openKernel)
	gocv.MorphologyEx(mask, &mask, gocv.MorphClose, s.closeKernel)

	return mask
}

// Close releases the native morphology kernels.
func (s *Segmenter) Close() {
	s.openKernel.Close()
	s.closeKernel.Close()
}
