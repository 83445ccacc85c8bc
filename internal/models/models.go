// Package models defines the data types shared by the watchdog pipeline:
// samples produced by the sampler, findings produced by the evaluator,
// and alerts admitted by the state tracker.
package models

import (
	"fmt"
	"time"
)

// Severity classifies how far a metric is past its threshold.
// Critical is strictly greater than Warning.
type Severity int

const (
	SeverityWarning Severity = iota + 1
	SeverityCritical
)

// String returns the human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Reading is one point-in-time observation of a single metric.
// If the metric source could not be read, Unavailable is true and
// Err carries the probe error text; the other fields are zero.
type Reading struct {
	Metric       string  `json:"metric"`
	Used         uint64  `json:"used"`
	Total        uint64  `json:"total"`
	UsedFraction float64 `json:"used_fraction"`
	Unavailable  bool    `json:"unavailable,omitempty"`
	Err          string  `json:"error,omitempty"`
}

// Sample is one tick's worth of readings. Readings preserve the
// configured metric order (memory first, then mounts) so evaluation
// output is deterministic.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Readings  []Reading `json:"readings"`
}

// Threshold holds the warning and critical used-fractions for a metric.
type Threshold struct {
	Warning  float64 `yaml:"warning"`
	Critical float64 `yaml:"critical"`
}

// MetricThreshold binds a threshold to a metric name. The evaluator
// consumes an ordered slice of these; the order comes from configuration.
type MetricThreshold struct {
	Metric    string
	Threshold Threshold
}

// Finding is a detected threshold breach for one metric in one tick.
type Finding struct {
	Metric    string    `json:"metric"`
	Severity  Severity  `json:"severity"`
	Observed  float64   `json:"observed"`
	Used      uint64    `json:"used"`
	Total     uint64    `json:"total"`
	Threshold float64   `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// Alert is a Finding that passed suppression and will be delivered,
// or a recovery notice for a metric that dropped back under threshold.
// Message text is rendered by the notifier, which owns host identity.
type Alert struct {
	Metric    string    `json:"metric"`
	Severity  Severity  `json:"severity"`
	Observed  float64   `json:"observed"`
	Used      uint64    `json:"used"`
	Total     uint64    `json:"total"`
	Threshold float64   `json:"threshold"`
	Recovered bool      `json:"recovered,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
