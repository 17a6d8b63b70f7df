package colors

import (
	"image"

	"gocv.io/x/gocv"
)

// indicatorRange is one HSV sub-range with its minimum blob area.
type indicatorRange struct {
	lower   gocv.Scalar
	upper   gocv.Scalar
	minArea float64
}

var (
	// brownRange matches necrotic tissue. Small spots count, so the area
	// floor only rejects single-pixel noise.
	brownRange = indicatorRange{
		lower:   gocv.NewScalar(5, 50, 20, 0),
		upper:   gocv.NewScalar(15, 255, 200, 0),
		minArea: 10.0,
	}
	// yellowRange matches chlorotic (yellowing) tissue; larger floor since
	// yellowing is a region-scale symptom.
	yellowRange = indicatorRange{
		lower:   gocv.NewScalar(15, 50, 50, 0),
		upper:   gocv.NewScalar(35, 255, 255, 0),
		minArea: 50.0,
	}
)

// detectIndicator finds the centroids of contours matching an HSV
// sub-range inside the instance mask, filtered by minimum area.
func detectIndicator(region gocv.Mat, mask gocv.Mat, r indicatorRange) []image.Point {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(region, &hsv, gocv.ColorBGRToHSV)

	match := gocv.NewMat()
	defer match.Close()
	gocv.InRangeWithScalar(hsv, r.lower, r.upper, &match)
	gocv.BitwiseAnd(match, mask, &match)

	found := gocv.FindContours(match, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	var centers []image.Point
	for i := 0; i < found.Size(); i++ {
		contour := found.At(i)
		if gocv.ContourArea(contour) <= r.minArea {
			continue
		}
		centers = append(centers, contourCenter(contour.ToPoints()))
	}
	return centers
}

// contourCenter averages the contour points; precise enough for locating
// disease spots.
func contourCenter(pts []image.Point) image.Point {
	var sx, sy int
	for _, p := range pts {
		sx += p.X
		sy += p.Y
	}
	n := len(pts)
	return image.Pt(sx/n, sy/n)
}

// CountLeaves estimates the leaf count inside an instance crop by
// segmenting individual leaves with a green HSV band and filtering each
// candidate by area and aspect ratio. Sprouts get a broader, more
// sensitive band and lower area bounds than mature plants.
//
// Arguments:
//   - crop: BGR sub-image cropped to the instance, background masked out.
//   - sprout: Whether to use the sprout-sensitive parameters.
//
// Returns:
//   - int: The estimated leaf count.
func CountLeaves(crop gocv.Mat, sprout bool) int {
	if crop.Empty() || crop.Channels() != 3 {
		return 0
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(crop, &hsv, gocv.ColorBGRToHSV)

	leafMask := gocv.NewMat()
	defer leafMask.Close()
	if sprout {
		gocv.InRangeWithScalar(hsv, gocv.NewScalar(20, 30, 30, 0), gocv.NewScalar(90, 255, 255, 0), &leafMask)
	} else {
		gocv.InRangeWithScalar(hsv, gocv.NewScalar(25, 40, 40, 0), gocv.NewScalar(85, 255, 255, 0), &leafMask)
	}

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(3, 3))
	defer kernel.Close()
	gocv.MorphologyEx(leafMask, &leafMask, gocv.MorphOpen, kernel)
	gocv.MorphologyEx(leafMask, &leafMask, gocv.MorphClose, kernel)

	found := gocv.FindContours(leafMask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	minArea, maxArea := 20.0, 5000.0
	if sprout {
		minArea, maxArea = 10.0, 1000.0
	}

	count := 0
	for i := 0; i < found.Size(); i++ {
		contour := found.At(i)
		area := gocv.ContourArea(contour)
		if area <= minArea || area >= maxArea {
			continue
		}
		rect := gocv.BoundingRect(contour)
		if rect.Dy() == 0 {
			continue
		}
		aspect := float64(rect.Dx()) / float64(rect.Dy())
		if aspect > 0.2 && aspect < 5.0 {
			count++
		}
	}
	return count
}
