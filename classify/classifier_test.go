package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyType(t *testing.T) {
	tests := []struct {
		name     string
		features Features
		expected PlantType
	}{
		{
			name:     "tiny_area_is_sprout",
			features: Features{AreaPixels: 1000, Solidity: 0.5, AspectRatio: 4.0, RootConnections: 10},
			expected: Sprout,
		},
		{
			name:     "short_with_known_scale_is_sprout",
			features: Features{AreaPixels: 6000, HeightCm: 3.0, Solidity: 0.5, AspectRatio: 4.0, RootConnections: 10},
			expected: Sprout,
		},
		{
			name:     "compact_squat_moderate_is_sprout",
			features: Features{AreaPixels: 3000, Solidity: 0.85, AspectRatio: 1.2, RootConnections: 10},
			expected: Sprout,
		},
		{
			name:     "simple_stem_is_sprout",
			features: Features{AreaPixels: 3000, Solidity: 0.5, AspectRatio: 4.0, RootConnections: 2},
			expected: Sprout,
		},
		{
			name:     "large_branching_is_plant",
			features: Features{AreaPixels: 9000, Solidity: 0.5, AspectRatio: 4.0, RootConnections: 10},
			expected: Plant,
		},
		{
			name:     "tall_with_known_scale_is_plant",
			features: Features{AreaPixels: 6000, HeightCm: 20.0, Solidity: 0.5, AspectRatio: 4.0, RootConnections: 10},
			expected: Plant,
		},
		{
			name:     "unknown_scale_skips_height_rule",
			features: Features{AreaPixels: 6000, HeightCm: 0, Solidity: 0.5, AspectRatio: 4.0, RootConnections: 10},
			expected: Plant,
		},
		{
			name:     "missing_skeleton_skips_root_rule",
			features: Features{AreaPixels: 3000, Solidity: 0.5, AspectRatio: 4.0, RootConnections: -1},
			expected: Plant,
		},
	}

	c := NewClassifier(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.ClassifyType(tt.features))
		})
	}
}

func TestClassifyTypeDeterministic(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	f := Features{AreaPixels: 3200, Solidity: 0.8, AspectRatio: 1.5, RootConnections: 5}
	first := c.ClassifyType(f)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.ClassifyType(f))
	}
}

func TestStage(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	tests := []struct {
		name      string
		plantType PlantType
		leafCount int
		expected  GrowthStage
	}{
		{name: "sprout_no_leaves", plantType: Sprout, leafCount: 0, expected: Cotyledon},
		{name: "sprout_two_leaves", plantType: Sprout, leafCount: 2, expected: Cotyledon},
		{name: "sprout_three_leaves", plantType: Sprout, leafCount: 3, expected: FirstLeaves},
		{name: "sprout_four_leaves", plantType: Sprout, leafCount: 4, expected: FirstLeaves},
		{name: "sprout_five_leaves", plantType: Sprout, leafCount: 5, expected: EarlyVegetative},
		{name: "plant_any_leaves", plantType: Plant, leafCount: 12, expected: Vegetative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Stage(tt.plantType, tt.leafCount))
		})
	}
}

func TestClassifyVariantMatchesType(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	sprout := c.Classify(Features{AreaPixels: 500}, 2)
	assert.Equal(t, Sprout, sprout.Type)
	assert.NotNil(t, sprout.Sprout)
	assert.Nil(t, sprout.Plant)
	assert.Equal(t, 2, sprout.LeafCount())

	plant := c.Classify(Features{AreaPixels: 9000, Solidity: 0.5, AspectRatio: 4.0, RootConnections: 10}, 8)
	assert.Equal(t, Plant, plant.Type)
	assert.NotNil(t, plant.Plant)
	assert.Nil(t, plant.Sprout)
	assert.Equal(t, 8, plant.LeafCount())
	assert.Zero(t, plant.Plant.PetalCount)
	assert.Zero(t, plant.Plant.BudCount)
	assert.Zero(t, plant.Plant.FruitCount)
}

func TestWireNames(t *testing.T) {
	assert.Equal(t, "sprout", Sprout.String())
	assert.Equal(t, "plant", Plant.String())
	assert.Equal(t, "cotyledon", Cotyledon.String())
	assert.Equal(t, "first_leaves", FirstLeaves.String())
	assert.Equal(t, "early_vegetative", EarlyVegetative.String())
	assert.Equal(t, "vegetative", Vegetative.String())
	assert.Equal(t, "flowering", Flowering.String())
	assert.Equal(t, "fruiting", Fruiting.String())
	assert.Equal(t, "unknown", GrowthStage(99).String())
}

func TestHealthScore(t *testing.T) {
	tests := []struct {
		name     string
		meanBGR  [3]float64
		brown    int
		yellow   int
		expected float64
	}{
		// Green-dominant foliage: 60 + (200-30)/2 = 145 clamps to 100.
		{name: "vivid_green_clamps_high", meanBGR: [3]float64{30, 200, 30}, expected: 100},
		// Neutral gray: green bias zero, score stays at the base.
		{name: "neutral_base", meanBGR: [3]float64{100, 100, 100}, expected: 60},
		// Red-dominant tissue drags the score below the base.
		{name: "red_dominant", meanBGR: [3]float64{20, 40, 160}, expected: 35},
		// Penalties subtract after the clamp.
		{name: "penalties_subtract", meanBGR: [3]float64{100, 100, 100}, brown: 2, yellow: 3, expected: 41},
		// The floor holds under heavy disease pressure.
		{name: "clamps_to_zero", meanBGR: [3]float64{200, 10, 200}, brown: 20, yellow: 20, expected: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, HealthScore(tt.meanBGR, tt.brown, tt.yellow), 1e-9)
		})
	}
}

func TestHealthScoreRange(t *testing.T) {
	for _, bgr := range [][3]float64{{0, 0, 0}, {255, 255, 255}, {255, 0, 0}, {0, 255, 0}, {0, 0, 255}} {
		for brown := 0; brown <= 30; brown += 10 {
			score := HealthScore(bgr, brown, brown)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
		}
	}
}
