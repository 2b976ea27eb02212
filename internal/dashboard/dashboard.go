// Package dashboard provides live monitoring for the fraud scoring
// pipeline. It streams one event per scored transaction to connected
// WebSocket clients and serves aggregate statistics over a small REST
// surface. Events live only in flight; nothing is persisted.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"fraudscore/internal/classifier"
	"fraudscore/internal/scoring"
	"fraudscore/internal/stats"
)

// Dashboard streams scoring events and aggregate statistics to monitoring
// clients. It implements scoring.Publisher; a full broadcast channel drops
// events rather than blocking the scoring path.
type Dashboard struct {
	tracker   *stats.Tracker
	desc      classifier.ModelDescriptor
	server    *http.Server
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex
	events    chan scoring.Event
	stop      chan struct{}
	isRunning bool
	mu        sync.Mutex
}

// New creates a dashboard server on the given port.
func New(tracker *stats.Tracker, desc classifier.ModelDescriptor, port int) *Dashboard {
	d := &Dashboard{
		tracker:  tracker,
		desc:     desc,
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:  make(map[*websocket.Conn]bool),
		events:   make(chan scoring.Event, 256),
		stop:     make(chan struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", d.handlePage).Methods("GET")
	r.HandleFunc("/api/metrics", d.handleMetricsAPI).Methods("GET")
	r.HandleFunc("/ws", d.handleWebSocket).Methods("GET")

	d.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return d
}

// Publish queues one scoring event for broadcast. Never blocks.
func (d *Dashboard) Publish(ev scoring.Event) {
	select {
	case d.events <- ev:
	default:
		// Broadcast backlog full, drop the event.
	}
}

// Start starts the dashboard server and the broadcast loop.
func (d *Dashboard) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("dashboard is already running")
	}

	go d.broadcaster()

	go func() {
		log.Info().Str("addr", d.server.Addr).Msg("starting monitoring dashboard")
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("dashboard server failed")
		}
	}()

	d.isRunning = true
	return nil
}

// Stop closes client connections and shuts the server down.
func (d *Dashboard) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isRunning {
		return nil
	}

	close(d.stop)

	d.clientsMu.Lock()
	for client := range d.clients {
		client.Close()
	}
	d.clients = make(map[*websocket.Conn]bool)
	d.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown dashboard server")
		return err
	}

	d.isRunning = false
	log.Info().Msg("dashboard stopped")
	return nil
}

func (d *Dashboard) broadcaster() {
	for {
		select {
		case ev := <-d.events:
			d.broadcast(ev)
		case <-d.stop:
			return
		}
	}
}

func (d *Dashboard) broadcast(ev scoring.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal score event")
		return
	}

	d.clientsMu.Lock()
	defer d.clientsMu.Unlock()
	for client := range d.clients {
		if err := client.WriteMessage(websocket.TextMessage, payload); err != nil {
			client.Close()
			delete(d.clients, client)
		}
	}
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	d.clientsMu.Lock()
	d.clients[conn] = true
	d.clientsMu.Unlock()

	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("dashboard client connected")

	// Reader loop exists only to detect disconnects.
	go func() {
		defer func() {
			d.clientsMu.Lock()
			delete(d.clients, conn)
			d.clientsMu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

type metricsPayload struct {
	Model            string    `json:"model"`
	TotalPredictions int64     `json:"total_predictions"`
	FraudDetected    int64     `json:"fraud_detected"`
	FraudRate        float64   `json:"fraud_rate"`
	UptimeSeconds    int64     `json:"uptime_seconds"`
	StartTime        time.Time `json:"start_time"`
}

func (d *Dashboard) handleMetricsAPI(w http.ResponseWriter, r *http.Request) {
	snap := d.tracker.Snapshot()
	derived := stats.Derive(snap, time.Now())

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(metricsPayload{
		Model:            d.desc.Label(),
		TotalPredictions: snap.TotalPredictions,
		FraudDetected:    snap.FraudDetected,
		FraudRate:        derived.FraudRate,
		UptimeSeconds:    int64(derived.Uptime.Seconds()),
		StartTime:        snap.StartTime,
	})
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<title>Fraud Scoring Monitor</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 2em; }
h1 { color: #6cf; }
#summary span { margin-right: 2em; }
.fraud { color: #f66; }
.clean { color: #6f6; }
table { border-collapse: collapse; margin-top: 1em; }
td, th { border: 1px solid #444; padding: 4px 10px; }
</style>
</head>
<body>
<h1>Fraud Scoring Monitor &mdash; {{.Model}}</h1>
<div id="summary">loading&hellip;</div>
<table>
<thead><tr><th>time</th><th>verdict</th><th>probability</th><th>risk</th><th>amount</th></tr></thead>
<tbody id="feed"></tbody>
</table>
<script>
async function refresh() {
  const res = await fetch('/api/metrics');
  const m = await res.json();
  document.getElementById('summary').innerHTML =
    '<span>total: ' + m.total_predictions + '</span>' +
    '<span>frauds: ' + m.fraud_detected + '</span>' +
    '<span>rate: ' + (m.fraud_rate * 100).toFixed(2) + '%</span>' +
    '<span>uptime: ' + m.uptime_seconds + 's</span>';
}
refresh();
setInterval(refresh, 2000);

const ws = new WebSocket('ws://' + location.host + '/ws');
ws.onmessage = function(msg) {
  const ev = JSON.parse(msg.data);
  const row = document.createElement('tr');
  row.innerHTML = '<td>' + ev.timestamp + '</td>' +
    '<td class="' + (ev.is_fraud ? 'fraud">FRAUD' : 'clean">ok') + '</td>' +
    '<td>' + ev.probability.toFixed(3) + '</td>' +
    '<td>' + ev.risk_score + '</td>' +
    '<td>' + ev.amount.toFixed(2) + '</td>';
  const feed = document.getElementById('feed');
  feed.insertBefore(row, feed.firstChild);
  while (feed.rows.length > 50) feed.deleteRow(-1);
};
</script>
</body>
</html>`))

func (d *Dashboard) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := pageTemplate.Execute(w, map[string]string{"Model": d.desc.Label()}); err != nil {
		log.Error().Err(err).Msg("failed to render dashboard page")
	}
}
