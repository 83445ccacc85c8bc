// Package alertstate remembers what has already been notified per metric
// and decides whether a new finding should fire or be suppressed. All
// state lives in process memory; a restart clears suppression history.
package alertstate

import (
	"time"

	"github.com/pushwatch/watchdog/internal/models"
)

// record is the per-metric memory of the last notified severity and time.
// At most one record exists per metric.
type record struct {
	severity     models.Severity
	lastNotified time.Time
}

// Tracker filters findings into alerts. It must only be driven by a
// single goroutine (the watchdog loop); admit and sweep perform
// read-modify-write on the same records.
type Tracker struct {
	renotify time.Duration
	records  map[string]record
}

// New creates a Tracker. renotify is the minimum gap between repeat
// alerts of the same severity for the same metric; zero disables
// repeats entirely (severity escalation still fires).
func New(renotify time.Duration) *Tracker {
	return &Tracker{
		renotify: renotify,
		records:  make(map[string]record),
	}
}

// Admit decides whether a finding becomes an alert. It admits when the
// metric has no record, when the finding escalates past the recorded
// severity, or when the renotify interval has elapsed at the same
// severity. The record is updated only on admission.
func (t *Tracker) Admit(f models.Finding, now time.Time) (models.Alert, bool) {
	rec, exists := t.records[f.Metric]

	admit := false
	switch {
	case !exists:
		admit = true
	case rec.severity < f.Severity:
		admit = true
	case rec.severity == f.Severity && t.renotify > 0 && now.Sub(rec.lastNotified) >= t.renotify:
		admit = true
	}

	if !admit {
		return models.Alert{}, false
	}

	t.records[f.Metric] = record{
		severity:     f.Severity,
		lastNotified: now,
	}

	return models.Alert{
		Metric:    f.Metric,
		Severity:  f.Severity,
		Observed:  f.Observed,
		Used:      f.Used,
		Total:     f.Total,
		Threshold: f.Threshold,
		Timestamp: f.Timestamp,
	}, true
}

// Sweep clears the record of every metric that was previously alerting
// but produced no finding this tick, and returns one recovery alert per
// cleared record. Metrics in the unavailable set are left untouched:
// an unreadable source is neither a breach nor a recovery.
func (t *Tracker) Sweep(breached, unavailable map[string]bool, now time.Time) []models.Alert {
	var recovered []models.Alert
	for metric, rec := range t.records {
		if breached[metric] || unavailable[metric] {
			continue
		}
		delete(t.records, metric)
		recovered = append(recovered, models.Alert{
			Metric:    metric,
			Severity:  rec.severity,
			Recovered: true,
			Timestamp: now,
		})
	}
	return recovered
}

// Len returns the number of outstanding alert records.
func (t *Tracker) Len() int {
	return len(t.records)
}
