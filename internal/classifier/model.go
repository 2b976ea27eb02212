package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"fraudscore/internal/features"
)

// artifact is the on-disk model format: linear weights over the canonical
// feature vector, a bias term, and the decision threshold, together with
// the metadata recorded at training time.
type artifact struct {
	Name      string         `json:"name"`
	Version   string         `json:"version"`
	TrainedAt time.Time      `json:"trained_at"`
	Weights   []float64      `json:"weights"`
	Intercept float64        `json:"intercept"`
	Threshold float64        `json:"threshold"`
	Metrics   OfflineMetrics `json:"metrics"`
}

// Model is a classifier backed by a JSON model artifact. The artifact is
// read once at construction and never mutated, so a Model is safe for
// concurrent use without locking.
type Model struct {
	desc      ModelDescriptor
	weights   []float64
	intercept float64
	threshold float64
}

// Load reads a model artifact from disk. The artifact must carry exactly
// one weight per schema field. A missing or malformed artifact is a fatal
// startup condition for the caller; there is no fallback model.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact %s: %w", path, err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", path, err)
	}

	if len(a.Weights) != features.FieldCount {
		return nil, fmt.Errorf("model artifact %s: expected %d weights, got %d",
			path, features.FieldCount, len(a.Weights))
	}
	for i, w := range a.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("model artifact %s: weight %d is not finite", path, i)
		}
	}
	if a.Threshold <= 0 || a.Threshold >= 1 {
		a.Threshold = 0.5
	}
	if a.Name == "" {
		a.Name = "RandomForest"
	}
	if a.Version == "" {
		a.Version = "5"
	}

	m := &Model{
		desc: ModelDescriptor{
			Name:      a.Name,
			Version:   a.Version,
			TrainedAt: a.TrainedAt,
			Metrics:   a.Metrics,
		},
		weights:   a.Weights,
		intercept: a.Intercept,
		threshold: a.Threshold,
	}

	log.Info().
		Str("model_path", path).
		Str("model", m.desc.Label()).
		Float64("f1_score", a.Metrics.F1Score).
		Float64("precision", a.Metrics.Precision).
		Msg("model artifact loaded")

	return m, nil
}

// Describe returns the static descriptor of the loaded model.
func (m *Model) Describe() ModelDescriptor {
	return m.desc
}

// PredictWithProbability scores one feature vector. The vector length must
// match the schema; values must be finite.
func (m *Model) PredictWithProbability(fv []float64) (Prediction, error) {
	if len(fv) != len(m.weights) {
		return Prediction{}, fmt.Errorf("expected %d features, got %d", len(m.weights), len(fv))
	}

	z := m.intercept
	for i, v := range fv {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Prediction{}, fmt.Errorf("feature %d is not finite", i)
		}
		z += m.weights[i] * v
	}

	p := sigmoid(z)
	label := 0
	if p >= m.threshold {
		label = 1
	}
	return Prediction{Label: label, Probability: p}, nil
}

func sigmoid(z float64) float64 {
	// Split on sign to avoid overflow in Exp for large |z|.
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1.0 + e)
}
