// Package risk derives human-facing risk metrics from a raw fraud
// probability.
package risk

import "math"

// Band is the confidence classification of a fraud probability.
type Band string

const (
	High   Band = "HIGH"
	Medium Band = "MEDIUM"
	Low    Band = "LOW"
)

// Evaluate maps a probability in [0,1] to a confidence band and an integer
// risk score in [0,100]. The band boundaries are strict on the upper bound:
// exactly 0.8 is MEDIUM and exactly 0.5 is LOW. The score is floor(100p),
// clamped, and is non-decreasing in p.
func Evaluate(probability float64) (Band, int) {
	score := int(math.Floor(probability * 100))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	switch {
	case probability > 0.8:
		return High, score
	case probability > 0.5:
		return Medium, score
	default:
		return Low, score
	}
}
