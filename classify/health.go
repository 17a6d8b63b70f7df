package classify

const (
	healthBase        = 60.0
	brownSpotPenalty  = 5.0
	yellowAreaPenalty = 3.0
)

// HealthScore derives a 0-100 health score from the instance's mean BGR
// color and disease-indicator counts:
//
//	health = clamp(0,100, 60 + (G − (R+B)/2)/2) − 5·brown − 3·yellow
//
// clamped again after the penalty. A first-order proxy, reproducible
// bit-for-bit from the stored mean color and counts; no hidden state.
//
// Arguments:
//   - meanBGR: Mean blue, green, red channel values over the instance mask.
//   - brownSpots: Brown (necrotic) spot count.
//   - yellowAreas: Yellow (chlorotic) area count.
//
// Returns:
//   - float64: The clamped health score.
func HealthScore(meanBGR [3]float64, brownSpots, yellowAreas int) float64 {
	greenBias := meanBGR[1] - (meanBGR[2]+meanBGR[0])/2.0
	score := clamp(healthBase + greenBias/2.0)
	score -= brownSpotPenalty*float64(brownSpots) + yellowAreaPenalty*float64(yellowAreas)
	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
