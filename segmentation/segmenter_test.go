package segmentation

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// vegetationGreen is a BGR color well inside the default HSV band.
var vegetationGreen = color.RGBA{R: 40, G: 200, B: 40, A: 0}

// greenFrame paints filled circles of vegetation green on a black frame.
func greenFrame(rows, cols int, centers []image.Point, radius int) gocv.Mat {
	frame := gocv.Zeros(rows, cols, gocv.MatTypeCV8UC3)
	for _, c := range centers {
		gocv.Circle(&frame, c, radius, vegetationGreen, -1)
	}
	return frame
}

func TestMaskEmptyFrame(t *testing.T) {
	s := NewSegmenter(DefaultConfig())
	defer s.Close()

	empty := gocv.NewMat()
	defer empty.Close()

	mask := s.Mask(empty)
	defer mask.Close()
	assert.True(t, mask.Empty(), "empty frame must yield empty mask")
}

func TestMaskGreenRegion(t *testing.T) {
	s := NewSegmenter(DefaultConfig())
	defer s.Close()

	frame := greenFrame(200, 200, []image.Point{image.Pt(100, 100)}, 40)
	defer frame.Close()

	mask := s.Mask(frame)
	defer mask.Close()
	require.False(t, mask.Empty())

	covered := gocv.CountNonZero(mask)
	assert.Greater(t, covered, 3000, "mask should cover most of the green disc")
	assert.Greater(t, int(mask.GetUCharAt(100, 100)), 0, "disc center must be masked")
	assert.Equal(t, uint8(0), mask.GetUCharAt(10, 10), "background must stay unmasked")
}

func TestMaskBlackFrame(t *testing.T) {
	s := NewSegmenter(DefaultConfig())
	defer s.Close()

	frame := gocv.Zeros(120, 120, gocv.MatTypeCV8UC3)
	defer frame.Close()

	mask := s.Mask(frame)
	defer mask.Close()
	assert.Equal(t, 0, gocv.CountNonZero(mask))
}

func TestSeparateTouchingDiscs(t *testing.T) {
	s := NewSegmenter(DefaultConfig())
	defer s.Close()

	// Two overlapping discs merge into one color blob; watershed must
	// split them back into two instances.
	frame := greenFrame(200, 200, []image.Point{image.Pt(81, 100), image.Pt(119, 100)}, 20)
	defer frame.Close()

	mask := s.Mask(frame)
	defer mask.Close()

	contours := s.Separate(mask)
	assert.Len(t, contours, 2)
	for _, contour := range contours {
		assert.GreaterOrEqual(t, contourArea(contour), s.config.MinContourArea)
	}
}

func TestSeparateEmptyMask(t *testing.T) {
	s := NewSegmenter(DefaultConfig())
	defer s.Close()

	mask := gocv.Zeros(100, 100, gocv.MatTypeCV8UC1)
	defer mask.Close()
	assert.Nil(t, s.Separate(mask))

	empty := gocv.NewMat()
	defer empty.Close()
	assert.Nil(t, s.Separate(empty))
}

func TestMinContourAreaFilter(t *testing.T) {
	config := DefaultConfig()
	config.MinContourArea = 10000
	s := NewSegmenter(config)
	defer s.Close()

	frame := greenFrame(200, 200, []image.Point{image.Pt(100, 100)}, 30)
	defer frame.Close()

	mask := s.Mask(frame)
	defer mask.Close()
	assert.Empty(t, s.Separate(mask), "instances below the area floor are dropped")
}

func TestFallbackBrightObject(t *testing.T) {
	s := NewSegmenter(DefaultConfig())
	defer s.Close()

	// A gray disc is invisible to the HSV band but found by the
	// grayscale threshold path.
	frame := gocv.Zeros(200, 200, gocv.MatTypeCV8UC3)
	defer frame.Close()
	gocv.Circle(&frame, image.Pt(100, 100), 40, color.RGBA{R: 220, G: 220, B: 220, A: 0}, -1)

	mask := s.Mask(frame)
	defer mask.Close()

	contours, fallback := s.Instances(frame, mask)
	assert.True(t, fallback)
	require.Len(t, contours, 1)
	assert.Greater(t, contourArea(contours[0]), 3000.0)
}

func TestInstancesPrefersColorPath(t *testing.T) {
	s := NewSegmenter(DefaultConfig())
	defer s.Close()

	frame := greenFrame(200, 200, []image.Point{image.Pt(100, 100)}, 40)
	defer frame.Close()

	mask := s.Mask(frame)
	defer mask.Close()

	contours, fallback := s.Instances(frame, mask)
	assert.False(t, fallback)
	assert.NotEmpty(t, contours)
}

func TestEnhancedSensitivityBand(t *testing.T) {
	// Faint early growth sits just outside the standard band but inside
	// the enhanced one.
	faint := color.RGBA{R: 90, G: 120, B: 80, A: 0}
	frame := gocv.Zeros(150, 150, gocv.MatTypeCV8UC3)
	defer frame.Close()
	gocv.Circle(&frame, image.Pt(75, 75), 30, faint, -1)

	standard := NewSegmenter(DefaultConfig())
	defer standard.Close()
	standardMask := standard.Mask(frame)
	defer standardMask.Close()

	enhanced := DefaultConfig()
	enhanced.EnhancedSensitivity = true
	broad := NewSegmenter(enhanced)
	defer broad.Close()
	broadMask := broad.Mask(frame)
	defer broadMask.Close()

	assert.GreaterOrEqual(t, gocv.CountNonZero(broadMask), gocv.CountNonZero(standardMask),
		"enhanced band must never be narrower than the standard band")
}
