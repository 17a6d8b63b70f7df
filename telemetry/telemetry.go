// Package telemetry - The JSON compatibility contract with the dashboard.
// Field names and nesting are fixed; changing them breaks external
// consumers. The message-bus transport itself is an external collaborator
// reached through the Publisher interface.
package telemetry

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// DiseaseIndicators nests the disease counts exactly as the dashboard
// expects them.
type DiseaseIndicators struct {
	BrownSpots int `json:"brown_spots"`
	Yellowing  int `json:"yellowing"`
}

// InstanceRecord is the per-instance telemetry object. One JSON object
// per instance, field set frozen by the dashboard contract.
type InstanceRecord struct {
	ID             int               `json:"id"`
	Type           string            `json:"type"`
	Classification string            `json:"classification"`
	GrowthStage    string            `json:"growth_stage"`
	BBox           [4]int            `json:"bbox"`
	AreaPixels     float64           `json:"area_pixels"`
	AreaCm2        float64           `json:"area_cm2"`
	HeightCm       float64           `json:"height_cm"`
	WidthCm        float64           `json:"width_cm"`
	LeafCount      int               `json:"leaf_count"`
	PetalCount     int               `json:"petal_count"`
	BudCount       int               `json:"bud_count"`
	FruitCount     int               `json:"fruit_count"`
	HealthScore    float64           `json:"health_score"`
	MeanBGR        [3]float64        `json:"mean_bgr"`
	NDVI           float64           `json:"ndvi"`
	EXG            float64           `json:"exg"`
	BranchCount    int               `json:"branch_count"`
	TipCount       int               `json:"tip_count"`
	Solidity       float64           `json:"solidity"`
	Eccentricity   float64           `json:"eccentricity"`
	Circularity    float64           `json:"circularity"`
	Disease        DiseaseIndicators `json:"disease_indicators"`
	Timestamp      int64             `json:"timestamp"`
}

// FramePayload is the aggregate frame object published alongside the
// per-instance records.
type FramePayload struct {
	Timestamp       int64            `json:"timestamp"`
	NumPlants       int              `json:"num_plants"`
	SproutCount     int              `json:"sprout_count"`
	PlantCount      int              `json:"plant_count"`
	TotalAreaPixels float64          `json:"total_area_pixels"`
	TotalAreaCm2    float64          `json:"total_area_cm2"`
	ScalePxPerCm    float64          `json:"scale_px_per_cm"`
	AverageHealth   float64          `json:"average_health"`
	Plants          []InstanceRecord `json:"plants"`
}

// Publisher delivers serialized telemetry to the message bus. The wire
// protocol behind it is out of this core's scope.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// BuildTopic assembles the unified-namespace telemetry topic.
func BuildTopic(room, area, cameraID, plantID string) string {
	return fmt.Sprintf("plantvision/%s/%s/%s/%s/telemetry", room, area, cameraID, plantID)
}

// InstanceTopic extends a frame topic with the per-instance suffix.
func InstanceTopic(frameTopic string, id int) string {
	return fmt.Sprintf("%s/plants/%d/telemetry", frameTopic, id)
}

// Marshal serializes a frame payload for publication.
func Marshal(p FramePayload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "telemetry: marshal frame payload")
	}
	return data, nil
}

// Unmarshal parses a frame payload. Round-tripping a payload through
// Marshal and Unmarshal reconstructs identical numeric values.
func Unmarshal(data []byte) (FramePayload, error) {
	var p FramePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return FramePayload{}, errors.Wrap(err, "telemetry: unmarshal frame payload")
	}
	return p, nil
}
