// Package stats tracks process-lifetime prediction counters. The tracker is
// the only shared mutable state in the scoring path; both counters are
// updated and read under one mutex so a snapshot always observes a
// consistent pair. Counters reset only with the process.
package stats

import (
	"sync"
	"time"
)

// Tracker counts scored transactions and detected frauds since process
// start. Safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	total  int64
	frauds int64
	start  time.Time
}

// NewTracker returns a tracker with zeroed counters and the current time as
// start time.
func NewTracker() *Tracker {
	return &Tracker{start: time.Now()}
}

// Record counts one scored transaction, and one detected fraud when isFraud
// is set.
func (t *Tracker) Record(isFraud bool) {
	t.mu.Lock()
	t.total++
	if isFraud {
		t.frauds++
	}
	t.mu.Unlock()
}

// Snapshot is a consistent read of the tracker at a single instant.
type Snapshot struct {
	TotalPredictions int64
	FraudDetected    int64
	StartTime        time.Time
}

// Snapshot returns both counters and the start time as observed at one
// instant.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		TotalPredictions: t.total,
		FraudDetected:    t.frauds,
		StartTime:        t.start,
	}
}

// Derived holds metrics computed from a snapshot rather than stored.
type Derived struct {
	FraudRate float64
	Uptime    time.Duration
}

// Derive computes the fraud rate and uptime for a snapshot. A snapshot with
// no predictions has fraud rate 0.
func Derive(s Snapshot, now time.Time) Derived {
	d := Derived{Uptime: now.Sub(s.StartTime)}
	if s.TotalPredictions > 0 {
		d.FraudRate = float64(s.FraudDetected) / float64(s.TotalPredictions)
	}
	return d
}
