package controller

import (
	"image"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/plantvision/go-vision/change"
	"github.com/plantvision/go-vision/classify"
	"github.com/plantvision/go-vision/colors"
	"github.com/plantvision/go-vision/images"
	"github.com/plantvision/go-vision/morphology"
	"github.com/plantvision/go-vision/telemetry"
)

// Instance is one detected vegetation region, created once per frame per
// blob and never mutated after creation. Its area, bounding box, and
// contour all derive from the same polygon, keeping them mutually
// consistent. Instances carry no identity across frames.
type Instance struct {
	ID      int
	Contour []image.Point
	BBox    image.Rectangle

	AreaPixels float64
	AreaCm2    float64
	HeightCm   float64
	WidthCm    float64

	Morphology     morphology.Metrics
	Color          colors.Analysis
	Classification classify.Classification
	HealthScore    float64

	// Crop is an owned copy of the frame region; it shares no memory
	// with the parent frame.
	Crop images.Frame
}

// Close releases the instance's owned crop.
func (in *Instance) Close() {
	in.Crop.Close()
}

// analyzeInstance runs morphology, color, classification, and health for
// one contour. Degenerate computations degrade to zero-valued metrics;
// the instance is never discarded for a failed metric.
func (p *Pipeline) analyzeInstance(frame gocv.Mat, contour []image.Point, id int) Instance {
	pv := gocv.NewPointVectorFromPoints(contour)
	bbox := gocv.BoundingRect(pv)
	pv.Close()
	bbox = bbox.Intersect(image.Rect(0, 0, frame.Cols(), frame.Rows()))

	in := Instance{ID: id, Contour: contour, BBox: bbox}

	instMask := instanceMask(frame, contour, bbox)
	defer instMask.Close()

	crop, err := images.NewFrame(frame).CropOwned(bbox)
	if err == nil {
		in.Crop = crop
	}

	local := localContour(contour, bbox)
	metrics, err := p.morph.Analyze(instMask, local)
	if err != nil {
		log.Printf("controller: morphology degraded for instance %d: %v", id, err)
		metrics.RootConnections = -1
	}
	in.Morphology = metrics
	in.AreaPixels = metrics.AreaPixels

	if !in.Crop.Empty() {
		analysis, err := p.color.Analyze(in.Crop.Mat(), instMask)
		if err != nil {
			log.Printf("controller: color analysis degraded for instance %d: %v", id, err)
		}
		in.Color = analysis
	}

	if scale := p.opts.ScalePxPerCm; scale > 0 {
		in.AreaCm2 = in.AreaPixels / (scale * scale)
		in.HeightCm = float64(bbox.Dy()) / scale
		in.WidthCm = float64(bbox.Dx()) / scale
	}

	features := classify.Features{
		AreaPixels:      in.AreaPixels,
		HeightCm:        in.HeightCm,
		Solidity:        metrics.Solidity,
		AspectRatio:     metrics.AspectRatio,
		RootConnections: metrics.RootConnections,
	}
	plantType := p.classifier.ClassifyType(features)

	leafCount := 0
	if !in.Crop.Empty() {
		masked := maskedCrop(in.Crop.Mat(), instMask)
		leafCount = colors.CountLeaves(masked, plantType == classify.Sprout)
		masked.Close()
	}
	in.Classification = p.classifier.Classify(features, leafCount)
	in.HealthScore = classify.HealthScore(in.Color.BGR.Mean, in.Color.BrownSpotCount, in.Color.YellowAreaCount)

	return in
}

// instanceMask fills the contour into a fresh mask cropped to the
// bounding box. The mask is owned by the caller.
func instanceMask(frame gocv.Mat, contour []image.Point, bbox image.Rectangle) gocv.Mat {
	full := gocv.Zeros(frame.Rows(), frame.Cols(), gocv.MatTypeCV8UC1)
	defer full.Close()

	pts := gocv.NewPointsVector()
	pts.Append(gocv.NewPointVectorFromPoints(contour))
	gocv.FillPoly(&full, pts, white)
	pts.Close()

	if bbox.Dx() <= 0 || bbox.Dy() <= 0 {
		return gocv.NewMat()
	}
	region := full.Region(bbox)
	defer region.Close()
	return region.Clone()
}

// maskedCrop zeroes the background of a crop so leaf counting sees only
// instance pixels.
func maskedCrop(crop gocv.Mat, mask gocv.Mat) gocv.Mat {
	out := gocv.Zeros(crop.Rows(), crop.Cols(), gocv.MatTypeCV8UC3)
	crop.CopyToWithMask(&out, mask)
	return out
}

// localContour translates a contour into bounding-box-local coordinates.
func localContour(contour []image.Point, bbox image.Rectangle) []image.Point {
	local := make([]image.Point, len(contour))
	for i, pt := range contour {
		local[i] = pt.Sub(bbox.Min)
	}
	return local
}

// FrameResult aggregates all instances for one frame plus totals and the
// annotated visualization frame. Immutable once produced; owned by the
// Process caller.
type FrameResult struct {
	Instances []Instance

	InstanceCount   int
	SproutCount     int
	PlantCount      int
	TotalAreaPixels float64
	TotalAreaCm2    float64
	AverageHealth   float64

	// Annotated is the visualization frame with contours, boxes, labels.
	Annotated images.Frame
	// Mask is an owned copy of the frame's vegetation mask for debug output.
	Mask images.Frame
	// Fallback marks results produced by the grayscale degradation path.
	Fallback bool
	// MotionMagnitude counts changed pixels versus the previous frame.
	MotionMagnitude float64

	// FrameNumber counts processed frames from 1; debug filenames key on it.
	FrameNumber    int64
	ProcessingTime time.Duration
	Timestamp      time.Time
	ScalePxPerCm   float64
}

// aggregate fills the totals from the instance list.
func (r *FrameResult) aggregate() {
	r.InstanceCount = len(r.Instances)
	totalHealth := 0.0
	for i := range r.Instances {
		in := &r.Instances[i]
		if in.Classification.Type == classify.Sprout {
			r.SproutCount++
		} else {
			r.PlantCount++
		}
		r.TotalAreaPixels += in.AreaPixels
		r.TotalAreaCm2 += in.AreaCm2
		totalHealth += in.HealthScore
	}
	if r.InstanceCount > 0 {
		r.AverageHealth = totalHealth / float64(r.InstanceCount)
	}
}

// ChangeAggregate summarizes the frame for baseline comparison.
func (r *FrameResult) ChangeAggregate() change.Aggregate {
	agg := change.Aggregate{
		InstanceCount:   r.InstanceCount,
		TotalAreaPixels: r.TotalAreaPixels,
	}
	if r.InstanceCount == 0 {
		return agg
	}
	for i := range r.Instances {
		in := &r.Instances[i]
		for c := 0; c < 3; c++ {
			agg.MeanHSV[c] += in.Color.HSV.Mean[c]
		}
		agg.MeanSolidity += in.Morphology.Solidity
		agg.MeanCircularity += in.Morphology.Circularity
		agg.MeanEccentricity += in.Morphology.Eccentricity
		agg.MeanCompactness += in.Morphology.Compactness
	}
	n := float64(r.InstanceCount)
	for c := 0; c < 3; c++ {
		agg.MeanHSV[c] /= n
	}
	agg.MeanSolidity /= n
	agg.MeanCircularity /= n
	agg.MeanEccentricity /= n
	agg.MeanCompactness /= n
	agg.Valid = true
	return agg
}

// Payload converts the result into the telemetry wire contract.
func (r *FrameResult) Payload() telemetry.FramePayload {
	ts := r.Timestamp.UnixMilli()
	payload := telemetry.FramePayload{
		Timestamp:       ts,
		NumPlants:       r.InstanceCount,
		SproutCount:     r.SproutCount,
		PlantCount:      r.PlantCount,
		TotalAreaPixels: r.TotalAreaPixels,
		TotalAreaCm2:    r.TotalAreaCm2,
		ScalePxPerCm:    r.ScalePxPerCm,
		AverageHealth:   r.AverageHealth,
	}
	for i := range r.Instances {
		in := &r.Instances[i]
		payload.Plants = append(payload.Plants, telemetry.InstanceRecord{
			ID:             in.ID,
			Type:           in.Classification.Type.String(),
			Classification: in.Classification.Type.String(),
			GrowthStage:    in.Classification.Stage.String(),
			BBox:           [4]int{in.BBox.Min.X, in.BBox.Min.Y, in.BBox.Dx(), in.BBox.Dy()},
			AreaPixels:     in.AreaPixels,
			AreaCm2:        in.AreaCm2,
			HeightCm:       in.HeightCm,
			WidthCm:        in.WidthCm,
			LeafCount:      in.Classification.LeafCount(),
			PetalCount:     petalCount(in),
			BudCount:       budCount(in),
			FruitCount:     fruitCount(in),
			HealthScore:    in.HealthScore,
			MeanBGR:        in.Color.BGR.Mean,
			NDVI:           in.Color.NDVI,
			EXG:            in.Color.EXG,
			BranchCount:    in.Morphology.BranchCount,
			TipCount:       in.Morphology.TipCount,
			Solidity:       in.Morphology.Solidity,
			Eccentricity:   in.Morphology.Eccentricity,
			Circularity:    in.Morphology.Circularity,
			Disease: telemetry.DiseaseIndicators{
				BrownSpots: in.Color.BrownSpotCount,
				Yellowing:  in.Color.YellowAreaCount,
			},
			Timestamp: ts,
		})
	}
	return payload
}

func petalCount(in *Instance) int {
	if in.Classification.Plant != nil {
		return in.Classification.Plant.PetalCount
	}
	return 0
}

func budCount(in *Instance) int {
	if in.Classification.Plant != nil {
		return in.Classification.Plant.BudCount
	}
	return 0
}

func fruitCount(in *Instance) int {
	if in.Classification.Plant != nil {
		return in.Classification.Plant.FruitCount
	}
	return 0
}

// Close releases the annotated frame, the mask copy, and every instance
// crop.
func (r *FrameResult) Close() {
	r.Annotated.Close()
	r.Mask.Close()
	for i := range r.Instances {
		r.Instances[i].Close()
	}
}
