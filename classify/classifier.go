package classify

// Config holds the classification thresholds. The historical record on
// these constants is inconsistent, so they are configuration rather than
// hard law; the defaults follow the later, more elaborate heuristic.
type Config struct {
	// SproutAreaThreshold: below this area (px²) the instance is a sprout
	// outright.
	SproutAreaThreshold float64 `json:"sprout_area_threshold"`
	// SproutHeightThresholdCm applies only when the px-per-cm scale is known.
	SproutHeightThresholdCm float64 `json:"sprout_height_threshold_cm"`
	// Morphological tie-break: compact, squat, moderately sized shapes
	// read as sprouts.
	TieBreakSolidity    float64 `json:"tie_break_solidity"`
	TieBreakAspectRatio float64 `json:"tie_break_aspect_ratio"`
	TieBreakArea        float64 `json:"tie_break_area"`
	// Root-origin check: a simple stem has few branch-like skeleton
	// connections near the bottom center.
	RootConnectionMax int     `json:"root_connection_max"`
	RootCheckArea     float64 `json:"root_check_area"`
}

// DefaultConfig returns the later-heuristic thresholds.
func DefaultConfig() Config {
	return Config{
		SproutAreaThreshold:     2500.0,
		SproutHeightThresholdCm: 5.0,
		TieBreakSolidity:        0.75,
		TieBreakAspectRatio:     3.0,
		TieBreakArea:            4000.0,
		RootConnectionMax:       3,
		RootCheckArea:           3500.0,
	}
}

// Features are the inputs to classification. They are all derived from
// the current frame; feeding identical Features always yields identical
// output.
type Features struct {
	// AreaPixels is the contour area in px².
	AreaPixels float64
	// HeightCm is the bounding-box height in cm; zero means the scale is
	// unknown and height is not considered.
	HeightCm float64
	// Solidity and AspectRatio come from the morphology analyzer.
	Solidity    float64
	AspectRatio float64
	// RootConnections counts branch-like skeleton pixels near the
	// presumed root origin; negative means the skeleton was unavailable.
	RootConnections int
}

// Classifier assigns plant types and growth stages.
type Classifier struct {
	config Config
}

// NewClassifier returns a classifier with the given thresholds.
func NewClassifier(config Config) *Classifier {
	return &Classifier{config: config}
}

// ClassifyType assigns Sprout or Plant from size, height, and shape.
//
// The rules are evaluated in order: area floor, physical height when the
// scale is known, the morphological tie-break (high solidity AND low
// aspect ratio AND moderate area), then the root-origin connectivity
// check. Anything that survives all four is a Plant.
//
// Arguments:
//   - f: The instance features for the current frame.
//
// Returns:
//   - PlantType: Sprout or Plant.
func (c *Classifier) ClassifyType(f Features) PlantType {
	if f.AreaPixels < c.config.SproutAreaThreshold {
		return Sprout
	}
	if f.HeightCm > 0 && f.HeightCm < c.config.SproutHeightThresholdCm {
		return Sprout
	}
	if f.Solidity > c.config.TieBreakSolidity &&
		f.AspectRatio < c.config.TieBreakAspectRatio &&
		f.AreaPixels < c.config.TieBreakArea {
		return Sprout
	}
	if f.RootConnections >= 0 &&
		f.RootConnections <= c.config.RootConnectionMax &&
		f.AreaPixels < c.config.RootCheckArea {
		return Sprout
	}
	return Plant
}

// Stage determines the growth stage for a type. Sprout stages follow the
// leaf count; Plant defaults to Vegetative until flowering or fruiting
// evidence arrives from an external source.
func (c *Classifier) Stage(t PlantType, leafCount int) GrowthStage {
	if t == Sprout {
		switch {
		case leafCount <= 2:
			return Cotyledon
		case leafCount <= 4:
			return FirstLeaves
		default:
			return EarlyVegetative
		}
	}
	return Vegetative
}

// Classify builds the full tagged classification for an instance.
func (c *Classifier) Classify(f Features, leafCount int) Classification {
	t := c.ClassifyType(f)
	out := Classification{Type: t, Stage: c.Stage(t, leafCount)}
	if t == Sprout {
		out.Sprout = &SproutTraits{LeafCount: leafCount}
	} else {
		out.Plant = &PlantTraits{LeafCount: leafCount}
	}
	return out
}
