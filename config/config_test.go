package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "IMAGE", cfg.InputMode)
	assert.Equal(t, 1000, cfg.PublishIntervalMs)
	assert.Equal(t, 300, cfg.ForcedAIIntervalSec)
	assert.InDelta(t, 0.5, cfg.AIConfidenceThreshold, 1e-9)
	assert.InDelta(t, 0.0, cfg.ScalePxPerCm, 1e-9, "scale defaults to unknown")
	assert.False(t, cfg.Segmentation.EnhancedSensitivity)
	assert.InDelta(t, 0.10, cfg.Change.AreaRatio, 1e-9)
	assert.InDelta(t, 2500.0, cfg.Classify.SproutAreaThreshold, 1e-9)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Equal(t, Default().InputMode, cfg.InputMode)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"input_mode": "NETWORK",
		"input_url": "rtsp://cam-1/stream",
		"scale_px_per_cm": 15.8,
		"segmentation": {"min_contour_area": 120},
		"change": {"area_ratio": 0.25}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "NETWORK", cfg.InputMode)
	assert.Equal(t, "rtsp://cam-1/stream", cfg.InputURL)
	assert.InDelta(t, 15.8, cfg.ScalePxPerCm, 1e-9)
	assert.InDelta(t, 120.0, cfg.Segmentation.MinContourArea, 1e-9)
	assert.InDelta(t, 0.25, cfg.Change.AreaRatio, 1e-9)
	// Untouched fields keep their defaults.
	assert.Equal(t, 1000, cfg.PublishIntervalMs)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"input_mode": "IMAGE", "camera_id": 1}`), 0o644))

	t.Setenv("INPUT_MODE", "CAMERA")
	t.Setenv("CAMERA_ID", "4")
	t.Setenv("SCALE_PX_PER_CM", "20.5")
	t.Setenv("ENHANCED_SENSITIVITY", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "CAMERA", cfg.InputMode)
	assert.Equal(t, 4, cfg.CameraID)
	assert.InDelta(t, 20.5, cfg.ScalePxPerCm, 1e-9)
	assert.True(t, cfg.Segmentation.EnhancedSensitivity)
}

func TestEnvIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("CAMERA_ID", "not-a-number")
	t.Setenv("SCALE_PX_PER_CM", "abc")
	t.Setenv("DEBUG_IMAGES", "maybe")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default().CameraID, cfg.CameraID)
	assert.InDelta(t, Default().ScalePxPerCm, cfg.ScalePxPerCm, 1e-9)
	assert.Equal(t, Default().DebugImages, cfg.DebugImages)
}
