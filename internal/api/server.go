// Package api exposes the fraud scoring pipeline over HTTP. The endpoint
// contracts mirror the service's public API: service info, health, single
// and batch prediction, and aggregate statistics, plus Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"fraudscore/internal/classifier"
	"fraudscore/internal/scoring"
	"fraudscore/internal/stats"
)

// Config carries the HTTP server options.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server serves the scoring API.
type Server struct {
	engine  *scoring.Engine
	tracker *stats.Tracker
	desc    classifier.ModelDescriptor
	server  *http.Server
}

// NewServer wires the scoring engine and statistics tracker into an HTTP
// server on the configured port.
func NewServer(engine *scoring.Engine, tracker *stats.Tracker, desc classifier.ModelDescriptor, cfg Config) *Server {
	s := &Server{
		engine:  engine,
		tracker: tracker,
		desc:    desc,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/predict", s.handlePredict)
	mux.HandleFunc("/batch_predict", s.handleBatchPredict)
	mux.HandleFunc("/stats", s.handleStats)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting scoring API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler; used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

type homeResponse struct {
	Service   string  `json:"service"`
	Model     string  `json:"model"`
	F1Score   float64 `json:"f1_score"`
	Precision float64 `json:"precision"`
	Status    string  `json:"status"`
}

type healthResponse struct {
	Status          string `json:"status"`
	Model           string `json:"model"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	PredictionsMade int64  `json:"predictions_made"`
}

type modelInfo struct {
	Name      string  `json:"name"`
	Version   string  `json:"version"`
	F1Score   float64 `json:"f1_score"`
	Precision float64 `json:"precision"`
}

type predictionResponse struct {
	IsFraud         bool      `json:"is_fraud"`
	Probability     float64   `json:"probability"`
	ConfidenceLevel string    `json:"confidence_level"`
	RiskScore       int       `json:"risk_score"`
	Timestamp       string    `json:"timestamp"`
	ModelInfo       modelInfo `json:"model_info"`
}

type batchItem struct {
	IsFraud     bool    `json:"is_fraud"`
	Probability float64 `json:"probability"`
	Amount      float64 `json:"amount"`
}

type batchResponse struct {
	TotalAnalyzed int         `json:"total_analyzed"`
	FraudDetected int         `json:"fraud_detected"`
	FraudRate     string      `json:"fraud_rate"`
	Results       []batchItem `json:"results"`
}

type modelMetrics struct {
	F1Score   float64 `json:"f1_score"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	ROCAUC    float64 `json:"roc_auc"`
}

type apiStats struct {
	TotalPredictions int64  `json:"total_predictions"`
	FraudDetected    int64  `json:"fraud_detected"`
	FraudRate        string `json:"fraud_rate"`
	UptimeHours      string `json:"uptime_hours"`
}

type statsResponse struct {
	Model        string       `json:"model"`
	ModelMetrics modelMetrics `json:"model_metrics"`
	APIStats     apiStats     `json:"api_stats"`
	StartTime    string       `json:"start_time"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Index   *int   `json:"index,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, homeResponse{
		Service:   "Fraud Detection API",
		Model:     s.desc.Name,
		F1Score:   s.desc.Metrics.F1Score,
		Precision: s.desc.Metrics.Precision,
		Status:    "operational",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	derived := stats.Derive(snap, time.Now())
	writeJSON(w, http.StatusOK, healthResponse{
		Status:          "healthy",
		Model:           s.desc.Label(),
		UptimeSeconds:   int64(derived.Uptime.Seconds()),
		PredictionsMade: snap.TotalPredictions,
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var input map[string]any
	if err := decodeBody(r, &input); err != nil {
		writeError(w, &scoring.Error{Kind: scoring.KindInvalidInput, Index: -1, Err: err})
		return
	}

	res, err := s.engine.ScoreOne(input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, predictionResponse{
		IsFraud:         res.IsFraud,
		Probability:     res.Probability,
		ConfidenceLevel: string(res.Confidence),
		RiskScore:       res.RiskScore,
		Timestamp:       res.Timestamp.Format(time.RFC3339Nano),
		ModelInfo: modelInfo{
			Name:      res.Model.Name,
			Version:   res.Model.Version,
			F1Score:   res.Model.Metrics.F1Score,
			Precision: res.Model.Metrics.Precision,
		},
	})
}

func (s *Server) handleBatchPredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var inputs []map[string]any
	if err := decodeBody(r, &inputs); err != nil {
		writeError(w, &scoring.Error{Kind: scoring.KindInvalidInput, Index: -1, Err: err})
		return
	}

	batch, err := s.engine.ScoreBatch(inputs)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := batchResponse{
		TotalAnalyzed: batch.TotalAnalyzed,
		FraudDetected: batch.FraudDetected,
		FraudRate:     formatRate(batch.FraudRate),
		Results:       make([]batchItem, 0, len(batch.Results)),
	}
	for _, item := range batch.Results {
		resp.Results = append(resp.Results, batchItem{
			IsFraud:     item.IsFraud,
			Probability: item.Probability,
			Amount:      item.Amount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	derived := stats.Derive(snap, time.Now())
	writeJSON(w, http.StatusOK, statsResponse{
		Model: s.desc.Label(),
		ModelMetrics: modelMetrics{
			F1Score:   s.desc.Metrics.F1Score,
			Precision: s.desc.Metrics.Precision,
			Recall:    s.desc.Metrics.Recall,
			ROCAUC:    s.desc.Metrics.ROCAUC,
		},
		APIStats: apiStats{
			TotalPredictions: snap.TotalPredictions,
			FraudDetected:    snap.FraudDetected,
			FraudRate:        formatRate(derived.FraudRate),
			UptimeHours:      fmt.Sprintf("%.2fh", derived.Uptime.Hours()),
		},
		StartTime: snap.StartTime.Format(time.RFC3339Nano),
	})
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}

// writeError maps the scoring error taxonomy onto HTTP status codes and
// carries the error kind in the structured body.
func writeError(w http.ResponseWriter, err error) {
	body := errorBody{
		Kind:    string(scoring.KindClassifierUnavailable),
		Message: err.Error(),
	}
	status := http.StatusInternalServerError

	var se *scoring.Error
	if errors.As(err, &se) {
		body.Kind = string(se.Kind)
		body.Field = se.Field
		if se.Index >= 0 {
			idx := se.Index
			body.Index = &idx
		}
		if se.Kind == scoring.KindInvalidInput {
			status = http.StatusBadRequest
		}
	}

	if status >= 500 {
		log.Error().Err(err).Str("kind", body.Kind).Msg("scoring request failed")
	}
	writeJSON(w, status, errorResponse{Error: body})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func formatRate(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate*100)
}
