package controller

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/plantvision/go-vision/classify"
	"github.com/plantvision/go-vision/images"
)

var (
	// white fills instance masks.
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	// sproutColor and plantColor follow the dashboard's legend: light
	// green for sprouts, dark green for established plants.
	sproutColor = color.RGBA{R: 100, G: 255, B: 0, A: 255}
	plantColor  = color.RGBA{R: 0, G: 200, B: 0, A: 255}
)

// annotate draws each instance's contour, bounding box, and type label
// onto a clone of the frame. The original frame is never mutated.
func (p *Pipeline) annotate(frame images.Frame, instances []Instance) images.Frame {
	annotated := frame.Clone()
	mat := annotated.Mat()

	for i := range instances {
		in := &instances[i]
		clr, label := plantColor, "PLANT"
		if in.Classification.Type == classify.Sprout {
			clr, label = sproutColor, "SPROUT"
		}

		contours := gocv.NewPointsVector()
		contours.Append(gocv.NewPointVectorFromPoints(in.Contour))
		gocv.DrawContours(&mat, contours, 0, clr, 2)
		contours.Close()

		gocv.Rectangle(&mat, in.BBox, clr, 2)
		gocv.PutText(&mat, label, image.Pt(in.BBox.Min.X, in.BBox.Min.Y-10),
			gocv.FontHersheySimplex, 0.5, clr, 1)
	}
	return annotated
}
