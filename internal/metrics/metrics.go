// Package metrics provides Prometheus metrics collection for the fraud
// scoring service. All counters, gauges, and histograms exposed on the
// /metrics endpoint are defined here.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the scoring pipeline.
type Metrics struct {
	PredictionsTotal   prometheus.Counter   // Total transactions scored
	FraudsTotal        prometheus.Counter   // Total transactions flagged as fraud
	BatchesTotal       prometheus.Counter   // Total batch requests scored
	InvalidInputsTotal prometheus.Counter   // Total requests rejected at validation
	ClassifierFailures prometheus.Counter   // Total classifier call failures
	ContractViolations prometheus.Counter   // Total out-of-contract classifier results
	ScoringLatency     prometheus.Histogram // End-to-end latency of one scoring call
	ProbabilityScores  prometheus.Histogram // Distribution of returned fraud probabilities
	ModelAge           prometheus.Gauge     // Age of the loaded model artifact in seconds
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry. Tests use this to
// avoid duplicate registration on the global registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fraud_predictions_total",
			Help: "Total number of transactions scored",
		}),
		FraudsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fraud_detected_total",
			Help: "Total number of transactions flagged as fraud",
		}),
		BatchesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fraud_batches_total",
			Help: "Total number of batch scoring requests",
		}),
		InvalidInputsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "fraud_invalid_inputs_total",
			Help: "Total number of requests rejected during input validation",
		}),
		ClassifierFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "fraud_classifier_failures_total",
			Help: "Total number of classifier invocation failures",
		}),
		ContractViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "fraud_classifier_contract_violations_total",
			Help: "Total number of classifier results outside the probability/label contract",
		}),
		ScoringLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraud_scoring_latency_seconds",
			Help:    "End-to-end latency of one scoring call in seconds",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		ProbabilityScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fraud_probability_scores",
			Help:    "Distribution of fraud probabilities returned by the classifier",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fraud_model_age_seconds",
			Help: "Age of the loaded model artifact in seconds",
		}),
	}
}

// The methods below satisfy the scoring engine's observer interface.

func (m *Metrics) PredictionsInc()        { m.PredictionsTotal.Inc() }
func (m *Metrics) FraudsInc()             { m.FraudsTotal.Inc() }
func (m *Metrics) BatchesInc()            { m.BatchesTotal.Inc() }
func (m *Metrics) InvalidInputsInc()      { m.InvalidInputsTotal.Inc() }
func (m *Metrics) ClassifierFailuresInc() { m.ClassifierFailures.Inc() }
func (m *Metrics) ContractViolationsInc() { m.ContractViolations.Inc() }

func (m *Metrics) LatencyObserve(seconds float64)  { m.ScoringLatency.Observe(seconds) }
func (m *Metrics) ProbabilityObserve(prob float64) { m.ProbabilityScores.Observe(prob) }
