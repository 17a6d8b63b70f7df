package segmentation

import (
	"image"
	"sort"

	"gocv.io/x/gocv"
)

// Separate splits a merged vegetation mask into per-instance contours
// using distance-transform-driven watershed.
//
// The mask's distance transform is normalized and thresholded to isolate
// blob cores; each core becomes a unique watershed marker, the area outside
// the mask is seeded as background, and flooding grows the markers back to
// the blob boundaries, resolving touching plants along ridge lines. The
// resulting contours are ordered by position and filtered against the
// minimum-noise area.
//
// Arguments:
//   - mask: The binary vegetation mask (8UC1).
//
// Returns:
//   - [][]image.Point: One polygon contour per separated instance.
func (s *Segmenter) Separate(mask gocv.Mat) [][]image.Point {
	if mask.Empty() || gocv.CountNonZero(mask) == 0 {
		return nil
	}

	dist := gocv.NewMat()
	defer dist.Close()
	distLabels := gocv.NewMat()
	defer distLabels.Close()
	gocv.DistanceTransform(mask, &dist, &distLabels, gocv.DistL2, gocv.DistanceMask3, gocv.DistanceLabelCComp)
	gocv.Normalize(dist, &dist, 0, 1.0, gocv.NormMinMax)
	gocv.Threshold(dist, &dist, s.config.DistancePeakThreshold, 1.0, gocv.ThresholdBinary)

	peaks := gocv.NewMat()
	defer peaks.Close()
	dist.ConvertToWithParams(&peaks, gocv.MatTypeCV8U, 255, 0)

	seedLabels := gocv.NewMat()
	defer seedLabels.Close()
	seeds := gocv.ConnectedComponents(peaks, &seedLabels)
	if seeds <= 1 {
		return nil
	}

	// Marker layout for watershed: 0 = unknown (flooded), 1 = background
	// seed, 2..N+1 = blob core seeds.
	markers := gocv.Zeros(mask.Rows(), mask.Cols(), gocv.MatTypeCV32SC1)
	defer markers.Close()
	for y := 0; y < mask.Rows(); y++ {
		for x := 0; x < mask.Cols(); x++ {
			if label := seedLabels.GetIntAt(y, x); label > 0 {
				markers.SetIntAt(y, x, label+1)
			} else if mask.GetUCharAt(y, x) == 0 {
				markers.SetIntAt(y, x, 1)
			}
		}
	}

	color := gocv.NewMat()
	defer color.Close()
	gocv.CvtColor(mask, &color, gocv.ColorGrayToBGR)
	gocv.Watershed(color, &markers)

	byLabel := make(map[int32][]image.Point)
	for y := 0; y < markers.Rows(); y++ {
		for x := 0; x < markers.Cols(); x++ {
			if label := markers.GetIntAt(y, x); label > 1 {
				byLabel[label] = append(byLabel[label], image.Pt(x, y))
			}
		}
	}

	labels := make([]int32, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	var contours [][]image.Point
	for _, label := range labels {
		hull := hullContour(byLabel[label])
		if len(hull) < 3 {
			continue
		}
		if area := contourArea(hull); area >= s.config.MinContourArea {
			contours = append(contours, hull)
		}
	}
	return contours
}

// Fallback extracts instances with a grayscale Gaussian-blur + Otsu
// threshold + external-contour pass. It is the degradation path used only
// when color segmentation finds nothing; fidelity is strictly lower since
// touching plants are not separated.
//
// Arguments:
//   - frame: The BGR capture frame.
//
// Returns:
//   - [][]image.Point: External contours above the minimum-noise area.
func (s *Segmenter) Fallback(frame gocv.Mat) [][]image.Point {
	if frame.Empty() || frame.Channels() != 3 {
		return nil
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)
	gocv.GaussianBlur(gray, &gray, image.Pt(5, 5), 0, 0, gocv.BorderDefault)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(gray, &thresh, s.config.FallbackThreshold, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	found := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	var contours [][]image.Point
	for i := 0; i < found.Size(); i++ {
		pts := found.At(i).ToPoints()
		if len(pts) < 3 {
			continue
		}
		if contourArea(pts) >= s.config.MinContourArea {
			contours = append(contours, pts)
		}
	}
	return contours
}

// Instances runs the full separation: color mask + watershed first, then
// the grayscale fallback when the color path yields zero instances.
//
// Returns the contours and whether the fallback path was taken.
func (s *Segmenter) Instances(frame gocv.Mat, mask gocv.Mat) ([][]image.Point, bool) {
	contours := s.Separate(mask)
	if len(contours) > 0 {
		return contours, false
	}
	return s.Fallback(frame), true
}

// hullContour reduces a flooded label's pixel set to its convex hull so
// downstream code receives an ordered polygon contour.
func hullContour(pts []image.Point) []image.Point {
	if len(pts) == 0 {
		return nil
	}
	pv := gocv.NewPointVectorFromPoints(pts)
	defer pv.Close()
	hull := gocv.NewMat()
	defer hull.Close()
	gocv.ConvexHull(pv, &hull, true, true)
	hullVec := gocv.NewPointVectorFromMat(hull)
	defer hullVec.Close()
	return hullVec.ToPoints()
}

// contourArea computes the polygon area of a contour.
func contourArea(pts []image.Point) float64 {
	pv := gocv.NewPointVectorFromPoints(pts)
	defer pv.Close()
	return gocv.ContourArea(pv)
}
