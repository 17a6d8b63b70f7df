// Package morphology - Shape descriptors and skeleton-graph analysis for a
// single vegetation instance. The descriptors follow the PlantCV-style
// definitions: solidity against the convex hull, eccentricity from a fitted
// ellipse, circularity and compactness from the area/perimeter pair.
package morphology

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrEmptyInput is returned when the instance mask or contour is empty.
var ErrEmptyInput = errors.New("morphology: empty mask or contour")

// Metrics holds every morphological quantity computed for one instance.
// Quantities that could not be computed on degenerate input (for example
// an ellipse fit on fewer than five contour points) are left at zero;
// the instance itself is never discarded.
type Metrics struct {
	// AreaPixels is the contour area in px².
	AreaPixels float64 `json:"area_pixels"`
	// Perimeter is the closed contour arc length in px.
	Perimeter float64 `json:"perimeter"`
	// BoundingBox is the axis-aligned box around the contour.
	BoundingBox image.Rectangle `json:"-"`
	// RotatedWidth and RotatedHeight are the minimum-area rectangle sides.
	RotatedWidth  float64 `json:"rotated_width"`
	RotatedHeight float64 `json:"rotated_height"`
	// Orientation is the minimum-area rectangle angle in degrees.
	Orientation float64 `json:"orientation"`
	// CentroidX, CentroidY locate the first-moment centroid in mask coordinates.
	CentroidX float64 `json:"centroid_x"`
	CentroidY float64 `json:"centroid_y"`

	// ConvexHullArea is the area of the contour's convex hull in px².
	ConvexHullArea float64 `json:"convex_hull_area"`
	// Solidity is area / hull area, in [0,1] by construction.
	Solidity float64 `json:"solidity"`
	// Eccentricity is √(1−(b/a)²) of the fitted ellipse semi-axes.
	Eccentricity float64 `json:"eccentricity"`
	// Circularity is 4π·area/perimeter²; unbounded above for non-convex shapes.
	Circularity float64 `json:"circularity"`
	// Compactness is √(4·area/π) / (perimeter/π).
	Compactness float64 `json:"compactness"`
	// Extent is area / bounding-box area, in [0,1] by construction.
	Extent float64 `json:"extent"`
	// AspectRatio is bounding-box width / height.
	AspectRatio float64 `json:"aspect_ratio"`
	// Convexity is contour perimeter / hull perimeter.
	Convexity float64 `json:"convexity"`

	// BranchCount is the number of skeleton pixels with ≥3 of 8 neighbors set.
	BranchCount int `json:"branch_count"`
	// TipCount is the number of skeleton pixels with exactly 1 neighbor set.
	TipCount int `json:"tip_count"`
	// BranchPoints and TipPoints are the pixel locations behind the counts.
	BranchPoints []image.Point `json:"-"`
	TipPoints    []image.Point `json:"-"`
	// SegmentLengths are the per-segment Euclidean path lengths.
	SegmentLengths []float64 `json:"-"`
	// TotalPathLength sums the segment lengths.
	TotalPathLength float64 `json:"total_path_length"`
	// LongestPath is the maximum segment length.
	LongestPath float64 `json:"longest_path"`
	// RootConnections counts branch-like skeleton pixels near the presumed
	// root origin (the bottom center of the bounding box).
	RootConnections int `json:"root_connections"`
}

// Analyzer computes Metrics from an instance mask and its contour. The
// analyzer is stateless; one value may be shared across worker goroutines.
type Analyzer struct{}

// NewAnalyzer returns a morphology analyzer.
func NewAnalyzer() *Analyzer { return &Analyzer{} }

// Analyze computes the full metric set for one instance.
//
// The contour must be the same one the instance's bounding box and area
// were derived from, so the three stay mutually consistent. Per-metric
// failures on degenerate input default to zero rather than failing the
// whole instance.
//
// Arguments:
//   - mask: Binary mask cropped to the instance region (8UC1).
//   - contour: The instance contour in mask coordinates.
//
// Returns:
//   - Metrics: The computed descriptors.
//   - error: ErrEmptyInput when there is nothing to measure.
func (a *Analyzer) Analyze(mask gocv.Mat, contour []image.Point) (Metrics, error) {
	var m Metrics
	if mask.Empty() || len(contour) < 3 {
		return m, ErrEmptyInput
	}

	pv := gocv.NewPointVectorFromPoints(contour)
	defer pv.Close()

	m.AreaPixels = gocv.ContourArea(pv)
	m.Perimeter = gocv.ArcLength(pv, true)
	m.BoundingBox = gocv.BoundingRect(pv)

	rot := gocv.MinAreaRect(pv)
	m.RotatedWidth = float64(rot.Width)
	m.RotatedHeight = float64(rot.Height)
	m.Orientation = rot.Angle

	moments := gocv.Moments(mask, true)
	if m00 := moments["m00"]; m00 > 0 {
		m.CentroidX = moments["m10"] / m00
		m.CentroidY = moments["m01"] / m00
	}

	m.ConvexHullArea, m.Convexity = hullDescriptors(pv, m.Perimeter)
	if m.ConvexHullArea > 0 {
		m.Solidity = m.AreaPixels / m.ConvexHullArea
	}
	if m.Perimeter > 0 {
		m.Circularity = (4.0 * math.Pi * m.AreaPixels) / (m.Perimeter * m.Perimeter)
		m.Compactness = math.Sqrt((4.0*m.AreaPixels)/math.Pi) / (m.Perimeter / math.Pi)
	}
	if boxArea := float64(m.BoundingBox.Dx() * m.BoundingBox.Dy()); boxArea > 0 {
		m.Extent = m.AreaPixels / boxArea
	}
	if m.BoundingBox.Dy() > 0 {
		m.AspectRatio = float64(m.BoundingBox.Dx()) / float64(m.BoundingBox.Dy())
	}
	m.Eccentricity = eccentricity(pv, len(contour))

	skeleton := Skeletonize(mask)
	defer skeleton.Close()
	a.analyzeSkeleton(skeleton, m.BoundingBox, &m)

	return m, nil
}

// hullDescriptors computes the convex hull area and the convexity ratio
// (contour perimeter over hull perimeter).
func hullDescriptors(pv gocv.PointVector, perimeter float64) (float64, float64) {
	hull := gocv.NewMat()
	defer hull.Close()
	gocv.ConvexHull(pv, &hull, true, true)
	hullVec := gocv.NewPointVectorFromMat(hull)
	defer hullVec.Close()
	if hullVec.Size() < 3 {
		return 0, 0
	}
	area := gocv.ContourArea(hullVec)
	convexity := 0.0
	if hullPerimeter := gocv.ArcLength(hullVec, true); hullPerimeter > 0 {
		convexity = perimeter / hullPerimeter
	}
	return area, convexity
}

// eccentricity fits an ellipse to the contour and returns √(1−(b/a)²).
// The fit needs at least five points; fewer default to zero.
func eccentricity(pv gocv.PointVector, points int) float64 {
	if points < 5 {
		return 0
	}
	ellipse := gocv.FitEllipse(pv)
	a := math.Max(float64(ellipse.Width), float64(ellipse.Height)) / 2.0
	b := math.Min(float64(ellipse.Width), float64(ellipse.Height)) / 2.0
	if a == 0 {
		return 0
	}
	return math.Sqrt(1.0 - (b*b)/(a*a))
}
