// Package classifier provides the binary fraud classifier capability and a
// concrete adapter backed by a model artifact loaded once at startup.
//
// The scoring engine depends only on the Classifier interface; any adapter
// that maps a fixed-order feature vector to a binary label and a fraud
// probability can be injected in its place.
package classifier

import "time"

// Prediction is the outcome of one classifier call: a binary label
// (1 = fraud) and the fraud probability in [0,1].
type Prediction struct {
	Label       int
	Probability float64
}

// Classifier maps a canonical feature vector to a binary label and a fraud
// probability. Implementations must be safe for concurrent use.
type Classifier interface {
	PredictWithProbability(features []float64) (Prediction, error)
}

// OfflineMetrics are the evaluation metrics recorded when the model was
// trained. They are static for the life of the process.
type OfflineMetrics struct {
	F1Score   float64 `json:"f1_score"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	ROCAUC    float64 `json:"roc_auc"`
}

// ModelDescriptor identifies the loaded model and its recorded offline
// metrics.
type ModelDescriptor struct {
	Name      string
	Version   string
	TrainedAt time.Time
	Metrics   OfflineMetrics
}

// Label returns the human-facing model label, e.g. "RandomForest v5".
func (d ModelDescriptor) Label() string {
	return d.Name + " v" + d.Version
}
