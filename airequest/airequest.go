// Package airequest - File-based handoff to the external AI analysis
// module. This core only decides when analysis is warranted and writes a
// request record; the AI module consumes the request asynchronously and
// leaves a result file keyed by request id.
package airequest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ROI is the frame region the AI module should analyze.
type ROI struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Request is one AI analysis request record.
type Request struct {
	ImagePath           string  `json:"image_path"`
	ROI                 ROI     `json:"roi"`
	ModelPreference     string  `json:"model_preference"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	RequestID           string  `json:"request_id"`
	Timestamp           int64   `json:"timestamp"`
}

// NewRequest builds a request with a fresh UUID id and the current time.
func NewRequest(imagePath string, roi ROI, modelPreference string, confidence float64) Request {
	return Request{
		ImagePath:           imagePath,
		ROI:                 roi,
		ModelPreference:     modelPreference,
		ConfidenceThreshold: confidence,
		RequestID:           uuid.NewString(),
		Timestamp:           time.Now().UnixMilli(),
	}
}

// Writer persists requests into a shared directory watched by the AI
// module. IO failures here are reported to the caller for logging but
// must never gate the frame pipeline.
type Writer struct {
	// Dir is the shared request/result directory.
	Dir string
}

// Write stores the request as <dir>/request_<id>.json.
//
// Arguments:
//   - req: The request record.
//
// Returns:
//   - string: The path the request was written to.
//   - error: Wrapped IO or encoding failure.
func (w *Writer) Write(req Request) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", errors.Wrap(err, "airequest: create request dir")
	}
	data, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "airequest: marshal request")
	}
	path := filepath.Join(w.Dir, "request_"+req.RequestID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "airequest: write request")
	}
	return path, nil
}

// ReadResult loads the AI module's result file for a request id, if it
// has been produced yet.
//
// Arguments:
//   - requestID: The id the request was written under.
//
// Returns:
//   - json.RawMessage: The raw result document.
//   - error: os.ErrNotExist (wrapped) while the result is pending.
func (w *Writer) ReadResult(requestID string) (json.RawMessage, error) {
	path := filepath.Join(w.Dir, "result_"+requestID+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "airequest: read result %s", requestID)
	}
	return json.RawMessage(data), nil
}
