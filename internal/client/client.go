// Package client is a small SDK for the fraud scoring API.
package client

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	base string
	rest *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second) // default fallback
	}
	return &Client{base: base, rest: r}
}

// APIError is a structured failure returned by the service. Kind carries
// the service-side error taxonomy.
type APIError struct {
	StatusCode int
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	Index      *int   `json:"index,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fraudscore: %d %s: %s", e.StatusCode, e.Kind, e.Message)
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

type Info struct {
	Service   string  `json:"service"`
	Model     string  `json:"model"`
	F1Score   float64 `json:"f1_score"`
	Precision float64 `json:"precision"`
	Status    string  `json:"status"`
}

type Health struct {
	Status          string `json:"status"`
	Model           string `json:"model"`
	UptimeSeconds   int64  `json:"uptime_seconds"`
	PredictionsMade int64  `json:"predictions_made"`
}

type ModelInfo struct {
	Name      string  `json:"name"`
	Version   string  `json:"version"`
	F1Score   float64 `json:"f1_score"`
	Precision float64 `json:"precision"`
}

type Prediction struct {
	IsFraud         bool      `json:"is_fraud"`
	Probability     float64   `json:"probability"`
	ConfidenceLevel string    `json:"confidence_level"`
	RiskScore       int       `json:"risk_score"`
	Timestamp       string    `json:"timestamp"`
	ModelInfo       ModelInfo `json:"model_info"`
}

type BatchItem struct {
	IsFraud     bool    `json:"is_fraud"`
	Probability float64 `json:"probability"`
	Amount      float64 `json:"amount"`
}

type BatchResult struct {
	TotalAnalyzed int         `json:"total_analyzed"`
	FraudDetected int         `json:"fraud_detected"`
	FraudRate     string      `json:"fraud_rate"`
	Results       []BatchItem `json:"results"`
}

type Stats struct {
	Model        string `json:"model"`
	ModelMetrics struct {
		F1Score   float64 `json:"f1_score"`
		Precision float64 `json:"precision"`
		Recall    float64 `json:"recall"`
		ROCAUC    float64 `json:"roc_auc"`
	} `json:"model_metrics"`
	APIStats struct {
		TotalPredictions int64  `json:"total_predictions"`
		FraudDetected    int64  `json:"fraud_detected"`
		FraudRate        string `json:"fraud_rate"`
		UptimeHours      string `json:"uptime_hours"`
	} `json:"api_stats"`
	StartTime string `json:"start_time"`
}

func (c *Client) Info() (*Info, error) {
	out := &Info{}
	if err := c.get("/", out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Health() (*Health, error) {
	out := &Health{}
	if err := c.get("/health", out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Stats() (*Stats, error) {
	out := &Stats{}
	if err := c.get("/stats", out); err != nil {
		return nil, err
	}
	return out, nil
}

// Predict scores a single transaction. Only the fields present in tx are
// sent; the service defaults the rest to zero.
func (c *Client) Predict(tx map[string]float64) (*Prediction, error) {
	out := &Prediction{}
	if err := c.post("/predict", tx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// BatchPredict scores an ordered list of transactions.
func (c *Client) BatchPredict(txs []map[string]float64) (*BatchResult, error) {
	out := &BatchResult{}
	if err := c.post("/batch_predict", txs, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(path string, result any) error {
	env := &errorEnvelope{}
	resp, err := c.rest.R().
		SetResult(result).
		SetError(env).
		Get(c.base + path)
	if err != nil {
		return err
	}
	return checkStatus(resp, env)
}

func (c *Client) post(path string, body, result any) error {
	env := &errorEnvelope{}
	resp, err := c.rest.R().
		SetBody(body).
		SetResult(result).
		SetError(env).
		Post(c.base + path)
	if err != nil {
		return err
	}
	return checkStatus(resp, env)
}

func checkStatus(resp *resty.Response, env *errorEnvelope) error {
	if resp.IsSuccess() {
		return nil
	}
	apiErr := env.Error
	apiErr.StatusCode = resp.StatusCode()
	if apiErr.Kind == "" {
		apiErr.Kind = "unknown"
		apiErr.Message = resp.Status()
	}
	return &apiErr
}
