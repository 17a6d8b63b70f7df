// Package classify - Instance type and growth-stage classification plus
// the deterministic health scorer. Classification is a pure function of
// the current frame's measurements; it carries no memory of prior frames.
package classify

// PlantType distinguishes an early-growth sprout from a mature plant.
type PlantType int

const (
	// Sprout is early growth: small area, low height, simple structure.
	Sprout PlantType = iota
	// Plant is established vegetation with branching structure.
	Plant
)

// String returns the wire name used in telemetry.
func (t PlantType) String() string {
	if t == Sprout {
		return "sprout"
	}
	return "plant"
}

// GrowthStage is the ordered development stage within a type.
type GrowthStage int

const (
	// Cotyledon through EarlyVegetative are the sprout stages.
	Cotyledon GrowthStage = iota
	FirstLeaves
	EarlyVegetative
	// Vegetative through Fruiting are the plant stages. Flowering and
	// Fruiting require external evidence this core does not produce; only
	// Vegetative is assigned here.
	Vegetative
	Flowering
	Fruiting
)

var stageNames = map[GrowthStage]string{
	Cotyledon:       "cotyledon",
	FirstLeaves:     "first_leaves",
	EarlyVegetative: "early_vegetative",
	Vegetative:      "vegetative",
	Flowering:       "flowering",
	Fruiting:        "fruiting",
}

// String returns the wire name used in telemetry.
func (s GrowthStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return "unknown"
}

// SproutTraits are the measurements meaningful only for sprouts.
type SproutTraits struct {
	// LeafCount drives the sprout growth stage.
	LeafCount int `json:"leaf_count"`
}

// PlantTraits are the measurements meaningful only for mature plants.
type PlantTraits struct {
	LeafCount int `json:"leaf_count"`
	// PetalCount, BudCount, and FruitCount await external flowering and
	// fruiting evidence; this core reports zero.
	PetalCount int `json:"petal_count"`
	BudCount   int `json:"bud_count"`
	FruitCount int `json:"fruit_count"`
}

// Classification is a tagged union over the two plant types. Exactly one
// of SproutTraits/PlantTraits is non-nil, matching Type.
type Classification struct {
	Type  PlantType   `json:"type"`
	Stage GrowthStage `json:"stage"`

	Sprout *SproutTraits `json:"sprout,omitempty"`
	Plant  *PlantTraits  `json:"plant,omitempty"`
}

// LeafCount returns the leaf count regardless of variant.
func (c Classification) LeafCount() int {
	switch {
	case c.Sprout != nil:
		return c.Sprout.LeafCount
	case c.Plant != nil:
		return c.Plant.LeafCount
	default:
		return 0
	}
}
