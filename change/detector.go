// Package change - Baseline-relative change detection deciding when a
// frame warrants expensive downstream AI analysis.
//
// The detector moves through two states: Uninitialized until the first
// valid aggregate arrives, then Baseline-Established, where it stays. The
// baseline is an explicit value mutated only through UpdateBaseline or
// Reset, never implicitly by frame analysis.
package change

import "math"

// Aggregate is one frame's summary used for baseline comparison.
type Aggregate struct {
	// InstanceCount is the number of detected instances.
	InstanceCount int `json:"instance_count"`
	// TotalAreaPixels sums instance areas in px².
	TotalAreaPixels float64 `json:"total_area_pixels"`
	// MeanHSV is the average instance color, HSV order.
	MeanHSV [3]float64 `json:"mean_hsv"`
	// Mean shape descriptors across instances.
	MeanSolidity     float64 `json:"mean_solidity"`
	MeanCircularity  float64 `json:"mean_circularity"`
	MeanEccentricity float64 `json:"mean_eccentricity"`
	MeanCompactness  float64 `json:"mean_compactness"`
	// Valid marks an aggregate computed from at least one instance.
	Valid bool `json:"valid"`
}

// MorphologyScore blends the shape descriptors into one comparable
// number: 0.3·solidity + 0.3·circularity + 0.2·(1−eccentricity) +
// 0.2·compactness. Lower eccentricity reads as more circular.
func (a Aggregate) MorphologyScore() float64 {
	if !a.Valid {
		return 0
	}
	return a.MeanSolidity*0.3 +
		a.MeanCircularity*0.3 +
		(1.0-a.MeanEccentricity)*0.2 +
		a.MeanCompactness*0.2
}

// Thresholds are the independently configurable significance cutoffs.
type Thresholds struct {
	// AreaRatio is the relative total-area change, e.g. 0.10 for 10%.
	AreaRatio float64 `json:"area_ratio"`
	// CountDelta is the absolute instance-count difference.
	CountDelta int `json:"count_delta"`
	// Hue, Saturation, Value are absolute HSV channel deltas.
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Value      float64 `json:"value"`
	// Morphology is the blended morphology-score delta.
	Morphology float64 `json:"morphology"`
}

// DefaultThresholds returns the standard significance cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AreaRatio:  0.10,
		CountDelta: 1,
		Hue:        8.0,
		Saturation: 12.0,
		Value:      15.0,
		Morphology: 0.08,
	}
}

// Reason tags accumulated on a Decision; multiple simultaneous triggers
// are all recorded.
const (
	ReasonBaselineEstablished = "baseline_established"
	ReasonAreaChange          = "area_change"
	ReasonCountChange         = "count_change"
	ReasonHueChange           = "hue_change"
	ReasonSaturationChange    = "saturation_change"
	ReasonValueChange         = "value_change"
	ReasonMorphologyChange    = "morphology_change"
)

// Decision is the per-frame verdict. Created fresh each frame and never
// mutated afterwards.
type Decision struct {
	// Significant is true when any delta exceeds its threshold.
	Significant bool `json:"significant"`
	// BaselineEstablished marks the frame that seeded the baseline.
	BaselineEstablished bool `json:"baseline_established"`

	AreaRatioDelta  float64 `json:"area_ratio_delta"`
	CountDelta      int     `json:"count_delta"`
	HueDelta        float64 `json:"hue_delta"`
	SaturationDelta float64 `json:"saturation_delta"`
	ValueDelta      float64 `json:"value_delta"`
	MorphologyDelta float64 `json:"morphology_delta"`

	// Reasons holds the human-readable trigger tags.
	Reasons []string `json:"reasons"`
}

// Detector compares frame aggregates against the rolling baseline. The
// processing goroutine is the only writer; consumers receive Decision
// values and baseline snapshots, never live references.
type Detector struct {
	thresholds Thresholds
	baseline   Aggregate
}

// NewDetector returns an uninitialized detector.
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds}
}

// HasBaseline reports whether a baseline has been established.
func (d *Detector) HasBaseline() bool { return d.baseline.Valid }

// Baseline returns a copy of the current baseline snapshot.
func (d *Detector) Baseline() Aggregate { return d.baseline }

// Analyze compares the current aggregate against the baseline and
// returns the per-frame verdict.
//
// On the first valid aggregate the detector records it as the baseline
// and reports a non-significant, informational decision; callers that
// treat "no baseline" as "always notify" can key off BaselineEstablished.
// Analyze never mutates an established baseline.
//
// Arguments:
//   - current: This frame's aggregate summary.
//
// Returns:
//   - Decision: The verdict with per-metric deltas and reason tags.
func (d *Detector) Analyze(current Aggregate) Decision {
	var dec Decision

	if !d.baseline.Valid {
		if current.Valid {
			d.baseline = current
			dec.BaselineEstablished = true
			dec.Reasons = append(dec.Reasons, ReasonBaselineEstablished)
		}
		return dec
	}

	if d.baseline.TotalAreaPixels > 0 {
		dec.AreaRatioDelta = math.Abs(current.TotalAreaPixels-d.baseline.TotalAreaPixels) / d.baseline.TotalAreaPixels
	}
	dec.CountDelta = current.InstanceCount - d.baseline.InstanceCount
	if dec.CountDelta < 0 {
		dec.CountDelta = -dec.CountDelta
	}
	dec.HueDelta = math.Abs(current.MeanHSV[0] - d.baseline.MeanHSV[0])
	dec.SaturationDelta = math.Abs(current.MeanHSV[1] - d.baseline.MeanHSV[1])
	dec.ValueDelta = math.Abs(current.MeanHSV[2] - d.baseline.MeanHSV[2])
	dec.MorphologyDelta = math.Abs(current.MorphologyScore() - d.baseline.MorphologyScore())

	if dec.AreaRatioDelta > d.thresholds.AreaRatio {
		dec.Reasons = append(dec.Reasons, ReasonAreaChange)
	}
	if dec.CountDelta >= d.thresholds.CountDelta {
		dec.Reasons = append(dec.Reasons, ReasonCountChange)
	}
	if dec.HueDelta > d.thresholds.Hue {
		dec.Reasons = append(dec.Reasons, ReasonHueChange)
	}
	if dec.SaturationDelta > d.thresholds.Saturation {
		dec.Reasons = append(dec.Reasons, ReasonSaturationChange)
	}
	if dec.ValueDelta > d.thresholds.Value {
		dec.Reasons = append(dec.Reasons, ReasonValueChange)
	}
	if dec.MorphologyDelta > d.thresholds.Morphology {
		dec.Reasons = append(dec.Reasons, ReasonMorphologyChange)
	}

	dec.Significant = len(dec.Reasons) > 0
	return dec
}

// UpdateBaseline replaces the baseline with the given snapshot. Only
// explicit caller requests (periodic re-baselining) land here.
func (d *Detector) UpdateBaseline(snapshot Aggregate) {
	d.baseline = snapshot
}

// Reset drops the baseline, returning the detector to Uninitialized.
func (d *Detector) Reset() {
	d.baseline = Aggregate{}
}
