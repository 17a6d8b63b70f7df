package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestZeroFrame(t *testing.T) {
	f := Zero(640, 480)
	defer f.Close()

	assert.False(t, f.Empty())
	assert.Equal(t, 640, f.Width())
	assert.Equal(t, 480, f.Height())
	assert.Equal(t, image.Rect(0, 0, 640, 480), f.Bounds())
}

func TestZeroValueFrameIsEmpty(t *testing.T) {
	var f Frame
	assert.True(t, f.Empty())
	assert.Equal(t, image.Rectangle{}, f.Bounds())
	// Closing a zero-value frame must be harmless.
	f.Close()
	f.Close()
}

func TestDecode(t *testing.T) {
	// Encode a small PNG in-process so the test carries no fixtures.
	src := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.RGBA{R: 10, G: 200, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	f, err := Decode(buf.Bytes())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, 8, f.Width())
	assert.Equal(t, 6, f.Height())
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	f := Zero(20, 20)
	defer f.Close()

	clone := f.Clone()
	defer clone.Close()
	require.False(t, clone.Empty())

	mat := clone.Mat()
	gocv.Rectangle(&mat, image.Rect(0, 0, 10, 10), color.RGBA{255, 255, 255, 0}, -1)

	original := f.Mat()
	assert.Equal(t, uint8(0), original.GetUCharAt(5, 5*3), "clone writes must not reach the original")
}

func TestCropOwned(t *testing.T) {
	f := Zero(100, 100)
	defer f.Close()

	crop, err := f.CropOwned(image.Rect(10, 20, 50, 60))
	require.NoError(t, err)
	defer crop.Close()

	assert.Equal(t, 40, crop.Width())
	assert.Equal(t, 40, crop.Height())
}

func TestCropOwnedClipsToBounds(t *testing.T) {
	f := Zero(50, 50)
	defer f.Close()

	crop, err := f.CropOwned(image.Rect(40, 40, 200, 200))
	require.NoError(t, err)
	defer crop.Close()

	assert.Equal(t, 10, crop.Width())
	assert.Equal(t, 10, crop.Height())
}

func TestCropOwnedDegenerate(t *testing.T) {
	f := Zero(50, 50)
	defer f.Close()

	_, err := f.CropOwned(image.Rect(100, 100, 200, 200))
	assert.ErrorIs(t, err, ErrEmptyFrame)
}

func TestThumbnail(t *testing.T) {
	f := Zero(400, 300)
	defer f.Close()

	thumb, err := f.Thumbnail(100)
	require.NoError(t, err)

	bounds := thumb.Bounds()
	assert.Equal(t, 100, bounds.Dx())
	assert.Equal(t, 75, bounds.Dy(), "aspect ratio must be preserved")
}

func TestThumbnailEmptyFrame(t *testing.T) {
	var f Frame
	_, err := f.Thumbnail(100)
	assert.ErrorIs(t, err, ErrEmptyFrame)
}
