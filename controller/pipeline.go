// Package controller - Per-frame pipeline orchestration: segmentation,
// instance separation, per-instance analysis fan-out, aggregation, and
// change detection. One dedicated processing goroutine drives the
// pipeline sequentially; per-instance work fans out across workers since
// each instance owns an independent mask and contour with no shared
// mutable state. The only cross-frame state is the change baseline and
// the previous frame buffer, both mutated only by the processing
// goroutine.
package controller

import (
	"image"
	"log"
	"runtime"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/plantvision/go-vision/change"
	"github.com/plantvision/go-vision/classify"
	"github.com/plantvision/go-vision/colors"
	"github.com/plantvision/go-vision/images"
	"github.com/plantvision/go-vision/morphology"
	"github.com/plantvision/go-vision/profiler"
	"github.com/plantvision/go-vision/segmentation"
)

const (
	// defaultFrameBudget is the soft real-time target per frame.
	defaultFrameBudget = 100 * time.Millisecond
	// motionDiffThreshold marks a pixel as changed between frames.
	motionDiffThreshold = 25
	// substituteWidth/Height size the zero frame substituted for
	// malformed input.
	substituteWidth  = 640
	substituteHeight = 480
)

// Options configure the pipeline.
type Options struct {
	// Segmentation, Classify, and Change carry the component thresholds.
	Segmentation segmentation.Config `json:"segmentation"`
	Classify     classify.Config     `json:"classify"`
	Change       change.Thresholds   `json:"change"`
	// ScalePxPerCm is the pixels-per-centimeter scale; 0 disables
	// physical-unit metrics.
	ScalePxPerCm float64 `json:"scale_px_per_cm"`
	// Workers caps the instance fan-out; 0 means one per CPU.
	Workers int `json:"workers"`
	// FrameBudget overrides the 100ms soft budget when positive.
	FrameBudget time.Duration `json:"frame_budget"`
}

// DefaultOptions returns standard pipeline options.
func DefaultOptions() Options {
	return Options{
		Segmentation: segmentation.DefaultConfig(),
		Classify:     classify.DefaultConfig(),
		Change:       change.DefaultThresholds(),
		FrameBudget:  defaultFrameBudget,
	}
}

// Pipeline runs the full analysis for one frame at a time. Not safe for
// concurrent Process calls; the scheduling model is one processing
// goroutine.
type Pipeline struct {
	opts       Options
	segmenter  *segmentation.Segmenter
	morph      *morphology.Analyzer
	color      *colors.Analyzer
	classifier *classify.Classifier
	detector   *change.Detector
	profiler   *profiler.FrameProfiler

	// prevGray is the previous frame in grayscale for motion magnitude.
	prevGray gocv.Mat
	hasPrev  bool
	frames   int64
}

// NewPipeline constructs a pipeline. Always call Close() when done.
func NewPipeline(opts Options) *Pipeline {
	if opts.FrameBudget <= 0 {
		opts.FrameBudget = defaultFrameBudget
	}
	return &Pipeline{
		opts:       opts,
		segmenter:  segmentation.NewSegmenter(opts.Segmentation),
		morph:      morphology.NewAnalyzer(),
		color:      colors.NewAnalyzer(),
		classifier: classify.NewClassifier(opts.Classify),
		detector:   change.NewDetector(opts.Change),
		profiler:   profiler.NewFrameProfiler(opts.FrameBudget),
		prevGray:   gocv.NewMat(),
	}
}

// Process analyzes one frame end to end.
//
// No error in the pipeline is fatal: a malformed frame is replaced by a
// zero frame, a dead color mask falls back to grayscale, and degenerate
// per-instance computations default their metrics to zero. The frame
// either completes or is abandoned wholesale; partial results are never
// returned.
//
// Arguments:
//   - frame: The decoded BGR capture frame; read-only to the pipeline.
//
// Returns:
//   - *FrameResult: The aggregate result; caller owns it and must Close it.
//   - change.Decision: The baseline-relative verdict for this frame.
func (p *Pipeline) Process(frame images.Frame) (*FrameResult, change.Decision) {
	start := time.Now()
	p.frames++

	substitute := images.Frame{}
	if frame.Empty() {
		// ImageError recovery: proceed on a black frame rather than abort.
		log.Printf("controller: empty frame %d, substituting zero frame", p.frames)
		substitute = images.Zero(substituteWidth, substituteHeight)
		frame = substitute
	}
	defer substitute.Close()

	stopSeg := p.profiler.Track("segmentation")
	mask := p.segmenter.Mask(frame.Mat())
	defer mask.Close()
	contours, fallback := p.segmenter.Instances(frame.Mat(), mask)
	stopSeg()
	if fallback && len(contours) > 0 {
		log.Printf("controller: color segmentation empty on frame %d, grayscale fallback found %d contours", p.frames, len(contours))
	}

	stopInst := p.profiler.Track("instances")
	instances := p.analyzeInstances(frame.Mat(), contours)
	stopInst()

	result := &FrameResult{
		Instances:    instances,
		Mask:         images.NewFrame(mask.Clone()),
		Fallback:     fallback,
		FrameNumber:  p.frames,
		ScalePxPerCm: p.opts.ScalePxPerCm,
		Timestamp:    time.Now(),
	}
	result.aggregate()
	result.MotionMagnitude = p.motionMagnitude(frame.Mat())

	stopChange := p.profiler.Track("change")
	decision := p.detector.Analyze(result.ChangeAggregate())
	stopChange()

	result.Annotated = p.annotate(frame, instances)

	result.ProcessingTime = time.Since(start)
	p.profiler.EndFrame(result.ProcessingTime)
	return result, decision
}

// analyzeInstances fans the per-instance work out across workers. Each
// instance reads only its own contour, owned mask, and owned crop.
func (p *Pipeline) analyzeInstances(frame gocv.Mat, contours [][]image.Point) []Instance {
	if len(contours) == 0 {
		return nil
	}

	workers := p.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(contours) {
		workers = len(contours)
	}

	instances := make([]Instance, len(contours))
	indexes := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				instances[i] = p.analyzeInstance(frame, contours[i], i)
			}
		}()
	}
	for i := range contours {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	return instances
}

// motionMagnitude counts changed pixels versus the previous frame and
// retains the current frame for the next comparison. Informational only.
func (p *Pipeline) motionMagnitude(frame gocv.Mat) float64 {
	gray := gocv.NewMat()
	gocv.CvtColor(frame, &gray, gocv.ColorBGRToGray)

	magnitude := 0.0
	if p.hasPrev && p.prevGray.Rows() == gray.Rows() && p.prevGray.Cols() == gray.Cols() {
		diff := gocv.NewMat()
		defer diff.Close()
		gocv.AbsDiff(gray, p.prevGray, &diff)
		gocv.Threshold(diff, &diff, motionDiffThreshold, 255, gocv.ThresholdBinary)
		magnitude = float64(gocv.CountNonZero(diff))
	}

	p.prevGray.Close()
	p.prevGray = gray
	p.hasPrev = true
	return magnitude
}

// UpdateBaseline re-baselines the change detector from a frame result.
// Only explicit calls land here; Process never re-baselines on its own.
func (p *Pipeline) UpdateBaseline(result *FrameResult) {
	p.detector.UpdateBaseline(result.ChangeAggregate())
}

// ResetBaseline drops the change baseline.
func (p *Pipeline) ResetBaseline() {
	p.detector.Reset()
}

// ProfileReport returns the per-stage timing report.
func (p *Pipeline) ProfileReport() string {
	return p.profiler.Report()
}

// Close releases native resources.
func (p *Pipeline) Close() {
	p.segmenter.Close()
	p.prevGray.Close()
}
