// Package config - Startup configuration for the analysis loop. Values
// come from an optional JSON file with environment variables taking
// precedence, the same layering the deployment containers rely on.
package config

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/plantvision/go-vision/change"
	"github.com/plantvision/go-vision/classify"
	"github.com/plantvision/go-vision/segmentation"
)

// Config carries every startup knob for the pipeline and loop.
type Config struct {
	// CameraID selects the capture device when InputMode is "CAMERA".
	CameraID int `json:"camera_id"`
	// InputMode is one of IMAGE, CAMERA, NETWORK.
	InputMode string `json:"input_mode"`
	// InputPath is the still-image path for IMAGE mode.
	InputPath string `json:"input_path"`
	// InputURL is the stream URL for NETWORK mode.
	InputURL string `json:"input_url"`

	// Threshold is the grayscale fallback threshold.
	Threshold float64 `json:"threshold"`
	// ScalePxPerCm converts pixels to physical units; 0 means unknown and
	// disables cm-based metrics.
	ScalePxPerCm float64 `json:"scale_px_per_cm"`
	// PublishIntervalMs paces the capture loop.
	PublishIntervalMs int `json:"publish_interval_ms"`

	// Segmentation, Classify, and Change expose the component thresholds.
	Segmentation segmentation.Config `json:"segmentation"`
	Classify     classify.Config     `json:"classify"`
	Change       change.Thresholds   `json:"change"`

	// Workers caps the per-instance fan-out; 0 means one worker per
	// available CPU.
	Workers int `json:"workers"`

	// DebugImages enables mask/overlay dumps into DebugDir.
	DebugImages bool   `json:"debug_images"`
	DebugDir    string `json:"debug_dir"`

	// AIRequestDir is the shared handoff directory for the AI module.
	AIRequestDir string `json:"ai_request_dir"`
	// AIModelPreference and AIConfidenceThreshold are copied into requests.
	AIModelPreference     string  `json:"ai_model_preference"`
	AIConfidenceThreshold float64 `json:"ai_confidence_threshold"`
	// ForcedAIIntervalSec forces a request when this many seconds pass
	// without one; 0 disables forcing.
	ForcedAIIntervalSec int `json:"forced_ai_interval_sec"`

	// UNS topic fields for the telemetry namespace.
	Room    string `json:"room"`
	Area    string `json:"area"`
	PlantID string `json:"plant_id"`
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		InputMode:             "IMAGE",
		InputPath:             "/samples/plant.jpg",
		Threshold:             100,
		PublishIntervalMs:     1000,
		Segmentation:          segmentation.DefaultConfig(),
		Classify:              classify.DefaultConfig(),
		Change:                change.DefaultThresholds(),
		DebugDir:              "data/debug",
		AIRequestDir:          "data/ai",
		AIModelPreference:     "disease_detection",
		AIConfidenceThreshold: 0.5,
		ForcedAIIntervalSec:   300,
		Room:                  "room-1",
		Area:                  "area-1",
		PlantID:               "plant-1",
	}
}

// Load builds the configuration: defaults, then the JSON file at path (if
// any), then environment variables. A missing .env file is not an error.
//
// Arguments:
//   - path: JSON config file path; empty skips the file layer.
//
// Returns:
//   - Config: The layered configuration.
//   - error: A malformed config file; missing files are ignored.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := json.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.CameraID = envInt("CAMERA_ID", cfg.CameraID)
	cfg.InputMode = envStr("INPUT_MODE", cfg.InputMode)
	cfg.InputPath = envStr("INPUT_PATH", cfg.InputPath)
	cfg.InputURL = envStr("INPUT_URL", cfg.InputURL)
	cfg.Threshold = envFloat("THRESHOLD", cfg.Threshold)
	cfg.ScalePxPerCm = envFloat("SCALE_PX_PER_CM", cfg.ScalePxPerCm)
	cfg.PublishIntervalMs = envInt("PUBLISH_INTERVAL_MS", cfg.PublishIntervalMs)
	cfg.Workers = envInt("WORKERS", cfg.Workers)
	cfg.DebugImages = envBool("DEBUG_IMAGES", cfg.DebugImages)
	cfg.DebugDir = envStr("DEBUG_DIR", cfg.DebugDir)
	cfg.AIRequestDir = envStr("AI_REQUEST_DIR", cfg.AIRequestDir)
	cfg.ForcedAIIntervalSec = envInt("FORCED_AI_INTERVAL_SEC", cfg.ForcedAIIntervalSec)
	cfg.Room = envStr("UNS_ROOM", cfg.Room)
	cfg.Area = envStr("UNS_AREA", cfg.Area)
	cfg.PlantID = envStr("UNS_PLANT_ID", cfg.PlantID)
	cfg.Segmentation.EnhancedSensitivity = envBool("ENHANCED_SENSITIVITY", cfg.Segmentation.EnhancedSensitivity)
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
