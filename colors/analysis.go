// Package colors - Multi-colorspace statistics, vegetation indices, and
// disease-indicator detection for one vegetation instance. All color math
// runs strictly over the masked pixel set; background pixels never bias
// the output.
package colors

import (
	"image"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrEmptyInput is returned when the region or mask holds no pixels.
var ErrEmptyInput = errors.New("colors: empty region or mask")

// ndviEpsilon keeps the NDVI denominator away from zero on black pixels.
const ndviEpsilon = 1e-10

// ChannelStats is a per-channel mean and standard deviation triple.
type ChannelStats struct {
	Mean   [3]float64 `json:"mean"`
	StdDev [3]float64 `json:"std_dev"`
}

// Analysis aggregates the color output for one instance.
type Analysis struct {
	// BGR, HSV, and LAB statistics over the masked pixels.
	BGR ChannelStats `json:"bgr"`
	HSV ChannelStats `json:"hsv"`
	LAB ChannelStats `json:"lab"`

	// NDVI is the (G−R)/(G+R+ε) proxy index using green as the
	// near-infrared substitute; bounded in [−1,1].
	NDVI float64 `json:"ndvi"`
	// EXG is the excess-green index 2G−R−B on [0,1] channels; bounded in [−2,2].
	EXG float64 `json:"exg"`
	// GreenRatio is the masked fraction of the region.
	GreenRatio float64 `json:"green_ratio"`
	// MaskedPixels is the number of pixels the statistics cover.
	MaskedPixels int `json:"masked_pixels"`

	// BrownSpots and YellowAreas are disease-indicator centroids.
	BrownSpots  []image.Point `json:"-"`
	YellowAreas []image.Point `json:"-"`
	// BrownSpotCount and YellowAreaCount feed the health scorer.
	BrownSpotCount  int `json:"brown_spot_count"`
	YellowAreaCount int `json:"yellow_area_count"`
}

// Analyzer computes Analysis values. Stateless; safe to share across
// instance worker goroutines.
type Analyzer struct{}

// NewAnalyzer returns a color analyzer.
func NewAnalyzer() *Analyzer { return &Analyzer{} }

// Analyze computes colorspace statistics, vegetation indices, and disease
// indicators for the masked part of a frame region.
//
// Arguments:
//   - region: BGR sub-image cropped to the instance bounding box.
//   - mask: Binary mask of the instance within the region (8UC1).
//
// Returns:
//   - Analysis: The computed color metrics.
//   - error: ErrEmptyInput when there is nothing to measure.
func (a *Analyzer) Analyze(region gocv.Mat, mask gocv.Mat) (Analysis, error) {
	var out Analysis
	if region.Empty() || mask.Empty() || region.Channels() != 3 {
		return out, ErrEmptyInput
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(region, &hsv, gocv.ColorBGRToHSV)
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(region, &lab, gocv.ColorBGRToLab)

	out.BGR, out.MaskedPixels = maskedStats(region, mask)
	out.HSV, _ = maskedStats(hsv, mask)
	out.LAB, _ = maskedStats(lab, mask)
	if out.MaskedPixels == 0 {
		return out, ErrEmptyInput
	}

	out.NDVI, out.EXG = vegetationIndices(region, mask)
	out.GreenRatio = float64(out.MaskedPixels) / float64(region.Rows()*region.Cols())

	out.BrownSpots = detectIndicator(region, mask, brownRange)
	out.YellowAreas = detectIndicator(region, mask, yellowRange)
	out.BrownSpotCount = len(out.BrownSpots)
	out.YellowAreaCount = len(out.YellowAreas)

	return out, nil
}

// maskedStats computes per-channel mean and population standard deviation
// over the masked pixels of a 3-channel matrix. gocv's MeanStdDev has no
// mask variant, so this is a manual pass.
func maskedStats(src gocv.Mat, mask gocv.Mat) (ChannelStats, int) {
	var stats ChannelStats
	var sum, sumSq [3]float64
	count := 0

	rows, cols := src.Rows(), src.Cols()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if y >= mask.Rows() || x >= mask.Cols() || mask.GetUCharAt(y, x) == 0 {
				continue
			}
			px := src.GetVecbAt(y, x)
			for c := 0; c < 3; c++ {
				v := float64(px[c])
				sum[c] += v
				sumSq[c] += v * v
			}
			count++
		}
	}
	if count == 0 {
		return stats, 0
	}

	n := float64(count)
	for c := 0; c < 3; c++ {
		stats.Mean[c] = sum[c] / n
		variance := sumSq[c]/n - stats.Mean[c]*stats.Mean[c]
		if variance < 0 {
			variance = 0
		}
		stats.StdDev[c] = float64(math32.Sqrt(float32(variance)))
	}
	return stats, count
}

// vegetationIndices computes the NDVI proxy and EXG over the masked pixel
// set, with channels normalized to [0,1].
func vegetationIndices(region gocv.Mat, mask gocv.Mat) (float64, float64) {
	var ndviSum, exgSum float32
	count := 0

	rows, cols := region.Rows(), region.Cols()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			if y >= mask.Rows() || x >= mask.Cols() || mask.GetUCharAt(y, x) == 0 {
				continue
			}
			px := region.GetVecbAt(y, x)
			b := float32(px[0]) / 255.0
			g := float32(px[1]) / 255.0
			r := float32(px[2]) / 255.0

			ndviSum += (g - r) / (g + r + ndviEpsilon)
			exgSum += 2.0*g - r - b
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	n := float32(count)
	return float64(ndviSum / n), float64(exgSum / n)
}
