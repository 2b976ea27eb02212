// Package scoring orchestrates the fraud scoring pipeline: input
// validation, classifier invocation, risk evaluation, and statistics
// recording, for single transactions and ordered batches.
package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"fraudscore/internal/classifier"
	"fraudscore/internal/features"
	"fraudscore/internal/risk"
	"fraudscore/internal/stats"
)

// Observer receives scoring pipeline signals. Implemented by the metrics
// package; a nil observer disables instrumentation.
type Observer interface {
	PredictionsInc()
	FraudsInc()
	BatchesInc()
	InvalidInputsInc()
	ClassifierFailuresInc()
	ContractViolationsInc()
	LatencyObserve(seconds float64)
	ProbabilityObserve(prob float64)
}

// Event describes one scored transaction for live monitoring consumers.
type Event struct {
	IsFraud     bool      `json:"is_fraud"`
	Probability float64   `json:"probability"`
	Confidence  risk.Band `json:"confidence_level"`
	RiskScore   int       `json:"risk_score"`
	Amount      float64   `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher receives an Event per scored transaction. Implementations must
// not block; drop rather than stall the scoring path.
type Publisher interface {
	Publish(Event)
}

// Result is the outcome of scoring one transaction.
type Result struct {
	IsFraud     bool
	Probability float64
	Confidence  risk.Band
	RiskScore   int
	Timestamp   time.Time
	Model       classifier.ModelDescriptor
}

// ItemSummary is the per-item entry of a batch result, in input order.
type ItemSummary struct {
	IsFraud     bool
	Probability float64
	Amount      float64
}

// BatchResult aggregates one batch scoring call.
type BatchResult struct {
	TotalAnalyzed int
	FraudDetected int
	FraudRate     float64
	Results       []ItemSummary
}

// Config carries the engine options.
type Config struct {
	// StrictFields rejects unknown transaction fields instead of ignoring
	// them.
	StrictFields bool
	// MaxBatchSize caps the number of items accepted per batch request.
	// Zero means no cap.
	MaxBatchSize int
}

// Engine runs the scoring pipeline. It is stateless per call; the injected
// tracker is the only shared mutable state.
type Engine struct {
	clf     classifier.Classifier
	desc    classifier.ModelDescriptor
	tracker *stats.Tracker
	obs     Observer
	pub     Publisher
	cfg     Config
}

// NewEngine builds an engine around an injected classifier. The descriptor
// identifies the model in every result. obs may be nil.
func NewEngine(clf classifier.Classifier, desc classifier.ModelDescriptor, tracker *stats.Tracker, obs Observer, cfg Config) *Engine {
	return &Engine{
		clf:     clf,
		desc:    desc,
		tracker: tracker,
		obs:     obs,
		cfg:     cfg,
	}
}

// SetPublisher attaches a live event consumer. Must be called before the
// engine starts serving requests.
func (e *Engine) SetPublisher(p Publisher) {
	e.pub = p
}

// ScoreOne validates one raw transaction mapping, classifies it, and
// derives the confidence band and risk score. Statistics are updated
// exactly once, and only after a successful classification.
func (e *Engine) ScoreOne(input map[string]any) (Result, error) {
	rec, err := e.buildRecord(input, -1)
	if err != nil {
		return Result{}, err
	}
	return e.scoreRecord(rec)
}

// ScoreBatch scores an ordered sequence of raw transaction mappings. All
// items are validated up front: any validation failure rejects the whole
// batch with the offending index, and no statistics are updated for any
// item. An empty batch is valid and reports a fraud rate of 0.
func (e *Engine) ScoreBatch(inputs []map[string]any) (BatchResult, error) {
	if e.cfg.MaxBatchSize > 0 && len(inputs) > e.cfg.MaxBatchSize {
		if e.obs != nil {
			e.obs.InvalidInputsInc()
		}
		return BatchResult{}, &Error{
			Kind:  KindInvalidInput,
			Index: -1,
			Err:   fmt.Errorf("batch of %d items exceeds limit of %d", len(inputs), e.cfg.MaxBatchSize),
		}
	}

	records := make([]features.Record, len(inputs))
	for i, input := range inputs {
		rec, err := e.buildRecord(input, i)
		if err != nil {
			return BatchResult{}, err
		}
		records[i] = rec
	}

	out := BatchResult{
		TotalAnalyzed: len(records),
		Results:       make([]ItemSummary, 0, len(records)),
	}
	for _, rec := range records {
		res, err := e.scoreRecord(rec)
		if err != nil {
			return BatchResult{}, err
		}
		out.Results = append(out.Results, ItemSummary{
			IsFraud:     res.IsFraud,
			Probability: res.Probability,
			Amount:      rec.Amount(),
		})
		if res.IsFraud {
			out.FraudDetected++
		}
	}

	if out.TotalAnalyzed > 0 {
		out.FraudRate = float64(out.FraudDetected) / float64(out.TotalAnalyzed)
	}
	if e.obs != nil {
		e.obs.BatchesInc()
	}
	return out, nil
}

func (e *Engine) buildRecord(input map[string]any, index int) (features.Record, error) {
	rec, err := features.FromMap(input, e.cfg.StrictFields)
	if err != nil {
		if e.obs != nil {
			e.obs.InvalidInputsInc()
		}
		se := &Error{Kind: KindInvalidInput, Index: index, Err: err}
		var fe *features.FieldError
		if errors.As(err, &fe) {
			se.Field = fe.Field
		}
		return features.Record{}, se
	}
	return rec, nil
}

// scoreRecord runs the classifier on one validated record. The tracker is
// updated only when the classifier call succeeds and its result is within
// contract.
func (e *Engine) scoreRecord(rec features.Record) (Result, error) {
	start := time.Now()
	defer func() {
		if e.obs != nil {
			e.obs.LatencyObserve(time.Since(start).Seconds())
		}
	}()

	pred, err := e.clf.PredictWithProbability(rec.Vector())
	if err != nil {
		if e.obs != nil {
			e.obs.ClassifierFailuresInc()
		}
		return Result{}, &Error{Kind: KindClassifierUnavailable, Index: -1, Err: err}
	}

	if err := validatePrediction(pred); err != nil {
		if e.obs != nil {
			e.obs.ContractViolationsInc()
		}
		log.Error().
			Int("label", pred.Label).
			Float64("probability", pred.Probability).
			Msg("classifier returned out-of-contract result")
		return Result{}, &Error{Kind: KindContractViolation, Index: -1, Err: err}
	}

	band, score := risk.Evaluate(pred.Probability)
	isFraud := pred.Label == 1

	res := Result{
		IsFraud:     isFraud,
		Probability: pred.Probability,
		Confidence:  band,
		RiskScore:   score,
		Timestamp:   time.Now(),
		Model:       e.desc,
	}

	e.tracker.Record(isFraud)
	if e.obs != nil {
		e.obs.PredictionsInc()
		e.obs.ProbabilityObserve(pred.Probability)
		if isFraud {
			e.obs.FraudsInc()
		}
	}

	log.Info().
		Bool("is_fraud", isFraud).
		Float64("probability", pred.Probability).
		Float64("amount", rec.Amount()).
		Str("confidence", string(band)).
		Int("risk_score", score).
		Msg("transaction scored")

	if e.pub != nil {
		e.pub.Publish(Event{
			IsFraud:     isFraud,
			Probability: pred.Probability,
			Confidence:  band,
			RiskScore:   score,
			Amount:      rec.Amount(),
			Timestamp:   res.Timestamp,
		})
	}

	return res, nil
}

// validatePrediction rejects classifier results outside the contract
// instead of clamping them.
func validatePrediction(p classifier.Prediction) error {
	if p.Probability != p.Probability || p.Probability < 0 || p.Probability > 1 {
		return fmt.Errorf("probability %v outside [0,1]", p.Probability)
	}
	if p.Label != 0 && p.Label != 1 {
		return fmt.Errorf("label %d is not binary", p.Label)
	}
	return nil
}
