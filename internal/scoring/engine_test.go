package scoring

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudscore/internal/classifier"
	"fraudscore/internal/risk"
	"fraudscore/internal/stats"
)

// stubClassifier returns a fixed prediction, or a per-call override keyed
// by the Amount field.
type stubClassifier struct {
	prediction classifier.Prediction
	byAmount   map[float64]classifier.Prediction
	err        error
	calls      int
}

func (s *stubClassifier) PredictWithProbability(fv []float64) (classifier.Prediction, error) {
	s.calls++
	if s.err != nil {
		return classifier.Prediction{}, s.err
	}
	if p, ok := s.byAmount[fv[len(fv)-1]]; ok {
		return p, nil
	}
	return s.prediction, nil
}

// countingObserver records observer callbacks for assertions.
type countingObserver struct {
	predictions, frauds, batches       int
	invalidInputs, classifierFailures  int
	contractViolations, latencySamples int
	probabilities                      []float64
}

func (o *countingObserver) PredictionsInc()              { o.predictions++ }
func (o *countingObserver) FraudsInc()                   { o.frauds++ }
func (o *countingObserver) BatchesInc()                  { o.batches++ }
func (o *countingObserver) InvalidInputsInc()            { o.invalidInputs++ }
func (o *countingObserver) ClassifierFailuresInc()       { o.classifierFailures++ }
func (o *countingObserver) ContractViolationsInc()       { o.contractViolations++ }
func (o *countingObserver) LatencyObserve(float64)       { o.latencySamples++ }
func (o *countingObserver) ProbabilityObserve(p float64) { o.probabilities = append(o.probabilities, p) }

type captivePublisher struct {
	events []Event
}

func (p *captivePublisher) Publish(ev Event) { p.events = append(p.events, ev) }

func testDescriptor() classifier.ModelDescriptor {
	return classifier.ModelDescriptor{
		Name:    "RandomForest",
		Version: "5",
		Metrics: classifier.OfflineMetrics{F1Score: 0.828, Precision: 0.970, Recall: 0.722, ROCAUC: 0.979},
	}
}

func newTestEngine(clf classifier.Classifier, cfg Config) (*Engine, *stats.Tracker, *countingObserver) {
	tracker := stats.NewTracker()
	obs := &countingObserver{}
	return NewEngine(clf, testDescriptor(), tracker, obs, cfg), tracker, obs
}

func TestScoreOne_FraudHighConfidence(t *testing.T) {
	clf := &stubClassifier{prediction: classifier.Prediction{Label: 1, Probability: 0.91}}
	engine, tracker, obs := newTestEngine(clf, Config{})

	res, err := engine.ScoreOne(map[string]any{"Amount": 500.0})
	require.NoError(t, err)

	assert.True(t, res.IsFraud)
	assert.Equal(t, 0.91, res.Probability)
	assert.Equal(t, risk.High, res.Confidence)
	assert.Equal(t, 91, res.RiskScore)
	assert.False(t, res.Timestamp.IsZero())
	assert.Equal(t, "RandomForest", res.Model.Name)
	assert.Equal(t, "5", res.Model.Version)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(1), snap.TotalPredictions)
	assert.Equal(t, int64(1), snap.FraudDetected)
	assert.Equal(t, 1, obs.predictions)
	assert.Equal(t, 1, obs.frauds)
	assert.Equal(t, 1, obs.latencySamples)
}

func TestScoreOne_CleanLowConfidence(t *testing.T) {
	clf := &stubClassifier{prediction: classifier.Prediction{Label: 0, Probability: 0.3}}
	engine, tracker, obs := newTestEngine(clf, Config{})

	res, err := engine.ScoreOne(map[string]any{"Amount": 10.0})
	require.NoError(t, err)

	assert.False(t, res.IsFraud)
	assert.Equal(t, risk.Low, res.Confidence)
	assert.Equal(t, 30, res.RiskScore)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(1), snap.TotalPredictions)
	assert.Equal(t, int64(0), snap.FraudDetected)
	assert.Equal(t, 0, obs.frauds)
}

func TestScoreOne_InvalidInput(t *testing.T) {
	clf := &stubClassifier{prediction: classifier.Prediction{Label: 0, Probability: 0.1}}
	engine, tracker, obs := newTestEngine(clf, Config{})

	_, err := engine.ScoreOne(map[string]any{"Amount": "a lot"})
	require.Error(t, err)

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindInvalidInput, se.Kind)
	assert.Equal(t, "Amount", se.Field)
	assert.Equal(t, -1, se.Index)

	// Rejected before the classifier runs; no statistics update.
	assert.Equal(t, 0, clf.calls)
	assert.Equal(t, int64(0), tracker.Snapshot().TotalPredictions)
	assert.Equal(t, 1, obs.invalidInputs)
}

func TestScoreOne_StrictMode(t *testing.T) {
	clf := &stubClassifier{prediction: classifier.Prediction{Label: 0, Probability: 0.1}}
	engine, _, _ := newTestEngine(clf, Config{StrictFields: true})

	_, err := engine.ScoreOne(map[string]any{"Amount": 1.0, "Memo": "coffee"})
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "Memo", se.Field)
}

func TestScoreOne_ClassifierUnavailable(t *testing.T) {
	clf := &stubClassifier{err: fmt.Errorf("model session lost")}
	engine, tracker, obs := newTestEngine(clf, Config{})

	_, err := engine.ScoreOne(map[string]any{"Amount": 10.0})
	require.Error(t, err)
	assert.Equal(t, KindClassifierUnavailable, KindOf(err))

	// A failed classification must not update statistics.
	assert.Equal(t, int64(0), tracker.Snapshot().TotalPredictions)
	assert.Equal(t, 1, obs.classifierFailures)
	assert.Equal(t, 0, obs.predictions)
}

func TestScoreOne_ContractViolations(t *testing.T) {
	cases := []struct {
		name string
		pred classifier.Prediction
	}{
		{"probability above one", classifier.Prediction{Label: 1, Probability: 1.5}},
		{"probability below zero", classifier.Prediction{Label: 0, Probability: -0.1}},
		{"non-binary label", classifier.Prediction{Label: 2, Probability: 0.4}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clf := &stubClassifier{prediction: tc.pred}
			engine, tracker, obs := newTestEngine(clf, Config{})

			_, err := engine.ScoreOne(map[string]any{"Amount": 10.0})
			require.Error(t, err)
			assert.Equal(t, KindContractViolation, KindOf(err))
			assert.Equal(t, int64(0), tracker.Snapshot().TotalPredictions)
			assert.Equal(t, 1, obs.contractViolations)
		})
	}
}

func TestScoreBatch_OrderedResults(t *testing.T) {
	clf := &stubClassifier{
		byAmount: map[float64]classifier.Prediction{
			10.0:  {Label: 0, Probability: 0.2},
			500.0: {Label: 1, Probability: 0.95},
			75.0:  {Label: 0, Probability: 0.4},
		},
	}
	engine, tracker, obs := newTestEngine(clf, Config{})

	batch, err := engine.ScoreBatch([]map[string]any{
		{"Amount": 10.0},
		{"Amount": 500.0},
		{"Amount": 75.0},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, batch.TotalAnalyzed)
	assert.Equal(t, 1, batch.FraudDetected)
	assert.InDelta(t, 1.0/3.0, batch.FraudRate, 1e-9)

	require.Len(t, batch.Results, 3)
	assert.Equal(t, 10.0, batch.Results[0].Amount)
	assert.False(t, batch.Results[0].IsFraud)
	assert.Equal(t, 500.0, batch.Results[1].Amount)
	assert.True(t, batch.Results[1].IsFraud)
	assert.Equal(t, 0.95, batch.Results[1].Probability)
	assert.Equal(t, 75.0, batch.Results[2].Amount)

	snap := tracker.Snapshot()
	assert.Equal(t, int64(3), snap.TotalPredictions)
	assert.Equal(t, int64(1), snap.FraudDetected)
	assert.Equal(t, 1, obs.batches)
}

func TestScoreBatch_Empty(t *testing.T) {
	clf := &stubClassifier{}
	engine, tracker, _ := newTestEngine(clf, Config{})

	batch, err := engine.ScoreBatch(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.TotalAnalyzed)
	assert.Equal(t, 0, batch.FraudDetected)
	assert.Equal(t, 0.0, batch.FraudRate)
	assert.Empty(t, batch.Results)
	assert.Equal(t, int64(0), tracker.Snapshot().TotalPredictions)
}

func TestScoreBatch_InvalidItemRejectsWholeBatch(t *testing.T) {
	clf := &stubClassifier{prediction: classifier.Prediction{Label: 0, Probability: 0.1}}
	engine, tracker, _ := newTestEngine(clf, Config{})

	_, err := engine.ScoreBatch([]map[string]any{
		{"Amount": 10.0},
		{"Amount": 20.0},
		{"Amount": "not a number"},
	})
	require.Error(t, err)

	var se *Error
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindInvalidInput, se.Kind)
	assert.Equal(t, 2, se.Index)
	assert.Equal(t, "Amount", se.Field)

	// Validation runs before any item is scored: no statistics for any of
	// the three items, valid ones included.
	assert.Equal(t, 0, clf.calls)
	assert.Equal(t, int64(0), tracker.Snapshot().TotalPredictions)
}

func TestScoreBatch_SizeLimit(t *testing.T) {
	clf := &stubClassifier{prediction: classifier.Prediction{Label: 0, Probability: 0.1}}
	engine, _, _ := newTestEngine(clf, Config{MaxBatchSize: 2})

	_, err := engine.ScoreBatch([]map[string]any{
		{"Amount": 1.0}, {"Amount": 2.0}, {"Amount": 3.0},
	})
	require.Error(t, err)
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func TestScoreOne_PublishesEvent(t *testing.T) {
	clf := &stubClassifier{prediction: classifier.Prediction{Label: 1, Probability: 0.91}}
	engine, _, _ := newTestEngine(clf, Config{})
	pub := &captivePublisher{}
	engine.SetPublisher(pub)

	_, err := engine.ScoreOne(map[string]any{"Amount": 500.0})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.True(t, ev.IsFraud)
	assert.Equal(t, 0.91, ev.Probability)
	assert.Equal(t, risk.High, ev.Confidence)
	assert.Equal(t, 91, ev.RiskScore)
	assert.Equal(t, 500.0, ev.Amount)
}

func TestErrorFormatting(t *testing.T) {
	e := &Error{Kind: KindInvalidInput, Field: "V7", Index: 4, Err: fmt.Errorf("not numeric")}
	assert.Equal(t, "item 4, field V7: not numeric", e.Error())

	e = &Error{Kind: KindClassifierUnavailable, Index: -1}
	assert.Equal(t, "classifier_unavailable", e.Error())

	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
}
