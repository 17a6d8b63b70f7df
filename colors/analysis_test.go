package colors

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// solidRegion builds a region filled with one BGR color and a mask
// covering a centered rectangle.
func solidRegion(rows, cols int, b, g, r uint8) (gocv.Mat, gocv.Mat) {
	region := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(b), float64(g), float64(r), 0), rows, cols, gocv.MatTypeCV8UC3)
	mask := gocv.Zeros(rows, cols, gocv.MatTypeCV8UC1)
	gocv.Rectangle(&mask, image.Rect(cols/4, rows/4, 3*cols/4, 3*rows/4), color.RGBA{255, 255, 255, 0}, -1)
	return region, mask
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := NewAnalyzer()

	empty := gocv.NewMat()
	defer empty.Close()
	mask := gocv.Zeros(10, 10, gocv.MatTypeCV8UC1)
	defer mask.Close()

	_, err := a.Analyze(empty, mask)
	assert.ErrorIs(t, err, ErrEmptyInput)

	// An all-zero mask means zero measurable pixels.
	region := gocv.Zeros(10, 10, gocv.MatTypeCV8UC3)
	defer region.Close()
	_, err = a.Analyze(region, mask)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestAnalyzeUniformGreen(t *testing.T) {
	region, mask := solidRegion(40, 40, 30, 200, 30)
	defer region.Close()
	defer mask.Close()

	a := NewAnalyzer()
	out, err := a.Analyze(region, mask)
	require.NoError(t, err)

	assert.Equal(t, 400, out.MaskedPixels)
	assert.InDelta(t, 0.25, out.GreenRatio, 1e-9)

	// Uniform color: exact means, zero deviation.
	assert.InDelta(t, 30.0, out.BGR.Mean[0], 0.01)
	assert.InDelta(t, 200.0, out.BGR.Mean[1], 0.01)
	assert.InDelta(t, 30.0, out.BGR.Mean[2], 0.01)
	for c := 0; c < 3; c++ {
		assert.InDelta(t, 0.0, out.BGR.StdDev[c], 0.01)
	}

	// Green-dominant pixels give a strongly positive NDVI proxy and EXG.
	assert.Greater(t, out.NDVI, 0.5)
	assert.Greater(t, out.EXG, 0.5)
}

func TestIndexBounds(t *testing.T) {
	tests := []struct {
		name    string
		b, g, r uint8
	}{
		{name: "pure_green", b: 0, g: 255, r: 0},
		{name: "pure_red", b: 0, g: 0, r: 255},
		{name: "pure_blue", b: 255, g: 0, r: 0},
		{name: "gray", b: 128, g: 128, r: 128},
		{name: "brownish", b: 30, g: 70, r: 120},
	}
	a := NewAnalyzer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, mask := solidRegion(20, 20, tt.b, tt.g, tt.r)
			defer region.Close()
			defer mask.Close()

			out, err := a.Analyze(region, mask)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, out.NDVI, -1.0)
			assert.LessOrEqual(t, out.NDVI, 1.0)
			assert.GreaterOrEqual(t, out.EXG, -2.0)
			assert.LessOrEqual(t, out.EXG, 2.0)
		})
	}
}

func TestAnalyzeDeterministic(t *testing.T) {
	region, mask := solidRegion(30, 30, 45, 180, 60)
	defer region.Close()
	defer mask.Close()

	a := NewAnalyzer()
	first, err := a.Analyze(region, mask)
	require.NoError(t, err)
	second, err := a.Analyze(region, mask)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same input must yield identical output")
}

func TestMaskedPixelsOnly(t *testing.T) {
	// Region half green, half red; mask covers only the green half. The
	// red pixels must not leak into the statistics.
	region := gocv.Zeros(20, 40, gocv.MatTypeCV8UC3)
	defer region.Close()
	gocv.Rectangle(&region, image.Rect(0, 0, 20, 20), color.RGBA{R: 0, G: 200, B: 0, A: 0}, -1)
	gocv.Rectangle(&region, image.Rect(20, 0, 40, 20), color.RGBA{R: 200, G: 0, B: 0, A: 0}, -1)

	mask := gocv.Zeros(20, 40, gocv.MatTypeCV8UC1)
	defer mask.Close()
	gocv.Rectangle(&mask, image.Rect(0, 0, 20, 20), color.RGBA{255, 255, 255, 0}, -1)

	a := NewAnalyzer()
	out, err := a.Analyze(region, mask)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, out.BGR.Mean[2], 0.01, "red channel must stay zero")
	assert.InDelta(t, 200.0, out.BGR.Mean[1], 0.01)
	assert.Greater(t, out.NDVI, 0.9)
}

func TestDetectBrownSpots(t *testing.T) {
	// Green leaf with one brown lesion inside the mask.
	region, mask := solidRegion(60, 60, 30, 200, 30)
	defer region.Close()
	defer mask.Close()
	// Brown in BGR, hue ~10 in OpenCV HSV.
	gocv.Circle(&region, image.Pt(30, 30), 5, color.RGBA{R: 120, G: 70, B: 30, A: 0}, -1)

	a := NewAnalyzer()
	out, err := a.Analyze(region, mask)
	require.NoError(t, err)

	require.Equal(t, 1, out.BrownSpotCount)
	spot := out.BrownSpots[0]
	assert.InDelta(t, 30, spot.X, 4)
	assert.InDelta(t, 30, spot.Y, 4)
}

func TestDetectYellowing(t *testing.T) {
	region, mask := solidRegion(80, 80, 30, 200, 30)
	defer region.Close()
	defer mask.Close()
	// Yellow patch large enough to clear the area floor.
	gocv.Rectangle(&region, image.Rect(25, 25, 45, 45), color.RGBA{R: 230, G: 230, B: 30, A: 0}, -1)

	a := NewAnalyzer()
	out, err := a.Analyze(region, mask)
	require.NoError(t, err)
	assert.Equal(t, 1, out.YellowAreaCount)
}

func TestHealthyLeafHasNoIndicators(t *testing.T) {
	region, mask := solidRegion(50, 50, 30, 200, 30)
	defer region.Close()
	defer mask.Close()

	a := NewAnalyzer()
	out, err := a.Analyze(region, mask)
	require.NoError(t, err)
	assert.Zero(t, out.BrownSpotCount)
	assert.Zero(t, out.YellowAreaCount)
}

func TestCountLeaves(t *testing.T) {
	// Three separated green blobs inside plausible leaf-area bounds.
	crop := gocv.Zeros(120, 120, gocv.MatTypeCV8UC3)
	defer crop.Close()
	leaf := color.RGBA{R: 40, G: 200, B: 40, A: 0}
	gocv.Circle(&crop, image.Pt(30, 30), 10, leaf, -1)
	gocv.Circle(&crop, image.Pt(80, 30), 10, leaf, -1)
	gocv.Circle(&crop, image.Pt(55, 85), 10, leaf, -1)

	assert.Equal(t, 3, CountLeaves(crop, false))
	assert.Equal(t, 3, CountLeaves(crop, true))
}

func TestCountLeavesEmptyCrop(t *testing.T) {
	empty := gocv.NewMat()
	defer empty.Close()
	assert.Zero(t, CountLeaves(empty, true))

	black := gocv.Zeros(50, 50, gocv.MatTypeCV8UC3)
	defer black.Close()
	assert.Zero(t, CountLeaves(black, false))
}
