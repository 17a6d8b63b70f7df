package controller

import (
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/plantvision/go-vision/airequest"
	"github.com/plantvision/go-vision/change"
)

// AITrigger decides when to hand a frame off for external AI analysis
// and writes the request record. A request goes out when the change
// detector reports significance, or when the forced interval elapses
// without one. The write happens after the authoritative in-memory
// result exists; a failed write loses that frame's analysis opportunity
// and nothing more.
type AITrigger struct {
	// Writer persists requests into the shared AI directory.
	Writer *airequest.Writer
	// ModelPreference and ConfidenceThreshold are copied into requests.
	ModelPreference     string
	ConfidenceThreshold float64
	// ForcedInterval forces a request this long after the previous one,
	// so a scene that never changes still gets analyzed periodically;
	// zero disables forcing.
	ForcedInterval time.Duration

	// lastRequest is the forcing clock. It starts on the first evaluated
	// frame, so the first forced request lands one interval after
	// startup even when no change is ever significant.
	lastRequest time.Time
}

// MaybeRequest evaluates the frame and writes an AI request when
// warranted.
//
// Arguments:
//   - result: The completed frame result (its annotated frame is saved
//     as the request image).
//   - decision: The change detector's verdict.
//
// Returns:
//   - *airequest.Request: The written request, or nil when none was needed.
//   - error: A wrapped IO failure; the caller logs it and moves on.
func (t *AITrigger) MaybeRequest(result *FrameResult, decision change.Decision) (*airequest.Request, error) {
	if t.ForcedInterval > 0 && t.lastRequest.IsZero() {
		t.lastRequest = time.Now()
	}
	forced := t.ForcedInterval > 0 && time.Since(t.lastRequest) >= t.ForcedInterval
	if !decision.Significant && !forced {
		return nil, nil
	}

	imagePath, err := t.saveRequestImage(result)
	if err != nil {
		return nil, err
	}

	req := airequest.NewRequest(imagePath, requestROI(result), t.ModelPreference, t.ConfidenceThreshold)
	if _, err := t.Writer.Write(req); err != nil {
		return nil, err
	}
	t.lastRequest = time.Now()
	return &req, nil
}

// saveRequestImage writes the annotated frame next to the request so the
// AI module reads a stable file, not a live buffer.
func (t *AITrigger) saveRequestImage(result *FrameResult) (string, error) {
	if result.Annotated.Empty() {
		return "", errors.New("controller: no frame to save for ai request")
	}
	if err := os.MkdirAll(t.Writer.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "controller: create ai request dir")
	}
	path := filepath.Join(t.Writer.Dir, result.Timestamp.UTC().Format("frame_20060102T150405.000.jpg"))
	if ok := gocv.IMWrite(path, result.Annotated.Mat()); !ok {
		return "", errors.Errorf("controller: write ai request image %s", path)
	}
	return path, nil
}

// requestROI is the union of instance bounding boxes, so the AI module
// skips empty background; an instance-free frame sends the full bounds.
func requestROI(result *FrameResult) airequest.ROI {
	var union image.Rectangle
	for i := range result.Instances {
		union = union.Union(result.Instances[i].BBox)
	}
	if union.Empty() {
		union = result.Annotated.Bounds()
	}
	return airequest.ROI{X: union.Min.X, Y: union.Min.Y, W: union.Dx(), H: union.Dy()}
}
