package morphology

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

const (
	// maxThinningIterations bounds the erosion loop on pathological masks.
	maxThinningIterations = 100
	// spurPruneIterations removes single-pixel spurs after thinning.
	spurPruneIterations = 2
	// minSegmentPoints filters noise segments from path-length sums.
	minSegmentPoints = 5
	// branchNeighborMin and tipNeighborCount are fixed, not configurable,
	// so skeleton metrics stay comparable across instances.
	branchNeighborMin = 3
	tipNeighborCount  = 1
)

// Skeletonize reduces a binary mask to its 1-pixel-wide topological
// skeleton by iterative morphological thinning: repeated erosion minus
// the opening of the erosion, accumulated until the working mask is
// empty. The loop is capped to prevent runaway iteration, and
// single-pixel spurs are pruned afterwards.
//
// Skeletonizing an already-skeletal mask returns the same mask, which is
// what makes per-frame skeleton metrics stable.
//
// Arguments:
//   - mask: Binary instance mask (8UC1).
//
// Returns:
//   - gocv.Mat: A fresh skeleton mask the caller owns and must Close.
func Skeletonize(mask gocv.Mat) gocv.Mat {
	skeleton := gocv.Zeros(mask.Rows(), mask.Cols(), gocv.MatTypeCV8UC1)
	if mask.Empty() {
		return skeleton
	}

	element := gocv.GetStructuringElement(gocv.MorphCross, image.Pt(3, 3))
	defer element.Close()

	working := mask.Clone()
	defer working.Close()
	eroded := gocv.NewMat()
	defer eroded.Close()
	opened := gocv.NewMat()
	defer opened.Close()
	subset := gocv.NewMat()
	defer subset.Close()

	for i := 0; i < maxThinningIterations; i++ {
		gocv.MorphologyEx(working, &opened, gocv.MorphOpen, element)
		gocv.Subtract(working, opened, &subset)
		gocv.BitwiseOr(skeleton, subset, &skeleton)
		gocv.Erode(working, &eroded, element)
		eroded.CopyTo(&working)
		if gocv.CountNonZero(working) == 0 {
			break
		}
	}

	pruneSpurs(&skeleton, spurPruneIterations)
	return skeleton
}

// pruneSpurs removes isolated pixels and single-pixel spurs hanging off
// branch points for the given number of passes. Genuine path endpoints
// (tips whose neighbor is part of a simple path) are kept, so pruning an
// already-pruned skeleton changes nothing.
func pruneSpurs(skeleton *gocv.Mat, iterations int) {
	for iter := 0; iter < iterations; iter++ {
		var remove []image.Point
		for y := 1; y < skeleton.Rows()-1; y++ {
			for x := 1; x < skeleton.Cols()-1; x++ {
				if skeleton.GetUCharAt(y, x) == 0 {
					continue
				}
				switch neighborCount(*skeleton, x, y) {
				case 0:
					remove = append(remove, image.Pt(x, y))
				case 1:
					if nx, ny, ok := soleNeighbor(*skeleton, x, y); ok &&
						neighborCount(*skeleton, nx, ny) >= branchNeighborMin {
						remove = append(remove, image.Pt(x, y))
					}
				}
			}
		}
		if len(remove) == 0 {
			return
		}
		for _, pt := range remove {
			skeleton.SetUCharAt(pt.Y, pt.X, 0)
		}
	}
}

// soleNeighbor locates the single set neighbor of a tip pixel.
func soleNeighbor(skeleton gocv.Mat, x, y int) (int, int, bool) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dy == 0 && dx == 0 {
				continue
			}
			ny, nx := y+dy, x+dx
			if ny < 0 || ny >= skeleton.Rows() || nx < 0 || nx >= skeleton.Cols() {
				continue
			}
			if skeleton.GetUCharAt(ny, nx) > 0 {
				return nx, ny, true
			}
		}
	}
	return 0, 0, false
}

// neighborCount counts set pixels among the full 8-connected neighborhood.
func neighborCount(skeleton gocv.Mat, x, y int) int {
	neighbors := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dy == 0 && dx == 0 {
				continue
			}
			ny, nx := y+dy, x+dx
			if ny < 0 || ny >= skeleton.Rows() || nx < 0 || nx >= skeleton.Cols() {
				continue
			}
			if skeleton.GetUCharAt(ny, nx) > 0 {
				neighbors++
			}
		}
	}
	return neighbors
}

// analyzeSkeleton fills the skeleton-derived fields of m: branch and tip
// points, segment path lengths, and the root-origin connection count used
// by the classifier.
func (a *Analyzer) analyzeSkeleton(skeleton gocv.Mat, bbox image.Rectangle, m *Metrics) {
	if skeleton.Empty() {
		return
	}

	for y := 1; y < skeleton.Rows()-1; y++ {
		for x := 1; x < skeleton.Cols()-1; x++ {
			if skeleton.GetUCharAt(y, x) == 0 {
				continue
			}
			switch n := neighborCount(skeleton, x, y); {
			case n >= branchNeighborMin:
				m.BranchPoints = append(m.BranchPoints, image.Pt(x, y))
			case n == tipNeighborCount:
				m.TipPoints = append(m.TipPoints, image.Pt(x, y))
			}
		}
	}
	m.BranchCount = len(m.BranchPoints)
	m.TipCount = len(m.TipPoints)

	for _, segment := range skeletonSegments(skeleton) {
		length := pathLength(segment)
		m.SegmentLengths = append(m.SegmentLengths, length)
		m.TotalPathLength += length
		if length > m.LongestPath {
			m.LongestPath = length
		}
	}

	m.RootConnections = rootConnections(skeleton, bbox)
}

// skeletonSegments splits the skeleton into connected paths. Each
// external contour traced with full point chains is one segment.
func skeletonSegments(skeleton gocv.Mat) [][]image.Point {
	found := gocv.FindContours(skeleton, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer found.Close()

	var segments [][]image.Point
	for i := 0; i < found.Size(); i++ {
		pts := found.At(i).ToPoints()
		if len(pts) > minSegmentPoints {
			segments = append(segments, pts)
		}
	}
	return segments
}

// pathLength sums the Euclidean distance between consecutive path points.
func pathLength(path []image.Point) float64 {
	if len(path) < 2 {
		return 0
	}
	length := 0.0
	for i := 1; i < len(path); i++ {
		dx := float64(path[i].X - path[i-1].X)
		dy := float64(path[i].Y - path[i-1].Y)
		length += math.Sqrt(dx*dx + dy*dy)
	}
	return length
}

// rootConnections counts skeleton pixels with 2 or more neighbors inside a
// search window around the bottom center of the bounding box, where a
// single-stem sprout is expected to meet the soil. Sprouts show few such
// connections; branching mature plants show many.
func rootConnections(skeleton gocv.Mat, bbox image.Rectangle) int {
	rows, cols := skeleton.Rows(), skeleton.Cols()
	if rows < 3 || cols < 3 {
		return 0
	}

	radius := bbox.Dx()
	if bbox.Dy() < radius {
		radius = bbox.Dy()
	}
	radius /= 4
	if radius < 1 {
		radius = 1
	}

	bottom := image.Pt(cols/2, rows-5)
	if bottom.Y < 0 {
		bottom.Y = rows - 1
	}

	connections := 0
	for y := max(0, bottom.Y-radius); y < min(rows, bottom.Y+radius); y++ {
		for x := max(0, bottom.X-radius); x < min(cols, bottom.X+radius); x++ {
			if skeleton.GetUCharAt(y, x) == 0 {
				continue
			}
			if neighborCount(skeleton, x, y) >= 2 {
				connections++
			}
		}
	}
	return connections
}
