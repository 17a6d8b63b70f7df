// Command plantvision runs the continuous vegetation analysis loop:
// capture, per-frame pipeline, telemetry publication, and AI request
// handoff on significant change.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gocv.io/x/gocv"

	"github.com/plantvision/go-vision/airequest"
	"github.com/plantvision/go-vision/config"
	"github.com/plantvision/go-vision/controller"
	"github.com/plantvision/go-vision/images"
	"github.com/plantvision/go-vision/telemetry"
)

const (
	// rebaselineInterval paces the periodic explicit re-baselining.
	rebaselineInterval = 1 * time.Hour
	// profileReportEvery frames between timing reports.
	profileReportEvery = 100
)

// stdoutPublisher is the default telemetry sink when no message-bus
// bridge is attached: one JSON line per publish.
type stdoutPublisher struct{}

func (stdoutPublisher) Publish(topic string, payload []byte) error {
	_, err := fmt.Fprintf(os.Stdout, "%s %s\n", topic, payload)
	return err
}

func main() {
	var (
		configPath string
		maxFrames  int
	)
	flag.StringVar(&configPath, "config", "", "Path to JSON config file")
	flag.IntVar(&maxFrames, "max-frames", 0, "Stop after N frames (0 = run forever)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Segmentation.FallbackThreshold = float32(cfg.Threshold)

	pipeline := controller.NewPipeline(controller.Options{
		Segmentation: cfg.Segmentation,
		Classify:     cfg.Classify,
		Change:       cfg.Change,
		ScalePxPerCm: cfg.ScalePxPerCm,
		Workers:      cfg.Workers,
	})
	defer pipeline.Close()

	trigger := &controller.AITrigger{
		Writer:              &airequest.Writer{Dir: cfg.AIRequestDir},
		ModelPreference:     cfg.AIModelPreference,
		ConfidenceThreshold: cfg.AIConfidenceThreshold,
		ForcedInterval:      time.Duration(cfg.ForcedAIIntervalSec) * time.Second,
	}
	debug := &controller.DebugWriter{Dir: cfg.DebugDir}

	var publisher telemetry.Publisher = stdoutPublisher{}
	topic := telemetry.BuildTopic(cfg.Room, cfg.Area, strconv.Itoa(cfg.CameraID), cfg.PlantID)

	capture := openCapture(cfg)
	if capture != nil {
		defer capture.Close()
	}

	interval := time.Duration(cfg.PublishIntervalMs) * time.Millisecond
	lastRebaseline := time.Now()
	frames := 0

	for {
		frame := readFrame(cfg, capture)
		result, decision := pipeline.Process(frame)
		frame.Close()

		publishResult(publisher, topic, result)

		if req, err := trigger.MaybeRequest(result, decision); err != nil {
			log.Printf("ai request failed: %v", err)
		} else if req != nil {
			log.Printf("ai request %s written (reasons: %v)", req.RequestID, decision.Reasons)
		}

		if cfg.DebugImages {
			if err := debug.WriteFrame(result); err != nil {
				log.Printf("debug write failed: %v", err)
			}
		}

		if time.Since(lastRebaseline) >= rebaselineInterval && result.InstanceCount > 0 {
			pipeline.UpdateBaseline(result)
			lastRebaseline = time.Now()
			log.Printf("baseline updated: %d instances, %.0f px total area",
				result.InstanceCount, result.TotalAreaPixels)
		}

		result.Close()

		frames++
		if frames%profileReportEvery == 0 {
			log.Printf("timing: %s", pipeline.ProfileReport())
		}
		if maxFrames > 0 && frames >= maxFrames {
			return
		}
		time.Sleep(interval)
	}
}

// openCapture opens the camera or network stream when configured; IMAGE
// mode and open failures return nil and the loop falls back to the
// still-image path.
func openCapture(cfg config.Config) *gocv.VideoCapture {
	switch cfg.InputMode {
	case "CAMERA":
		capture, err := gocv.OpenVideoCapture(cfg.CameraID)
		if err != nil {
			log.Printf("open camera %d failed: %v", cfg.CameraID, err)
			return nil
		}
		return capture
	case "NETWORK":
		if cfg.InputURL == "" {
			log.Printf("INPUT_MODE=NETWORK but INPUT_URL is empty")
			return nil
		}
		capture, err := gocv.OpenVideoCapture(cfg.InputURL)
		if err != nil {
			log.Printf("open stream %s failed: %v", cfg.InputURL, err)
			return nil
		}
		return capture
	default:
		return nil
	}
}

// readFrame produces the next frame: capture device, still image, or a
// zero frame so the loop never stalls on input problems.
func readFrame(cfg config.Config, capture *gocv.VideoCapture) images.Frame {
	if capture != nil {
		mat := gocv.NewMat()
		if capture.Read(&mat) && !mat.Empty() {
			return images.NewFrame(mat)
		}
		mat.Close()
	}
	if cfg.InputMode == "IMAGE" {
		mat := gocv.IMRead(cfg.InputPath, gocv.IMReadColor)
		if !mat.Empty() {
			return images.NewFrame(mat)
		}
		mat.Close()
	}
	return images.Frame{}
}

// publishResult emits the frame payload and one record per instance on
// its own sub-topic.
func publishResult(publisher telemetry.Publisher, topic string, result *controller.FrameResult) {
	payload := result.Payload()
	data, err := telemetry.Marshal(payload)
	if err != nil {
		log.Printf("marshal telemetry: %v", err)
		return
	}
	if err := publisher.Publish(topic, data); err != nil {
		log.Printf("publish telemetry: %v", err)
	}

	for _, record := range payload.Plants {
		data, err := json.Marshal(record)
		if err != nil {
			continue
		}
		if err := publisher.Publish(telemetry.InstanceTopic(topic, record.ID), data); err != nil {
			log.Printf("publish instance %d: %v", record.ID, err)
		}
	}
}
