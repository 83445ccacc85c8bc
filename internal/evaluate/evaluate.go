// Package evaluate compares samples against configured thresholds and
// classifies breaches by severity. Evaluate is a pure function: it has no
// side effects and its output order follows the threshold configuration.
package evaluate

import (
	"github.com/pushwatch/watchdog/internal/models"
)

// Evaluate produces a Finding for each metric whose reading meets or
// exceeds its threshold. The critical threshold is checked first, so a
// reading at both thresholds resolves to Critical. Unavailable readings
// and metrics without a configured threshold produce no Finding.
func Evaluate(sample models.Sample, thresholds []models.MetricThreshold) []models.Finding {
	readings := make(map[string]models.Reading, len(sample.Readings))
	for _, r := range sample.Readings {
		readings[r.Metric] = r
	}

	var findings []models.Finding
	for _, mt := range thresholds {
		r, ok := readings[mt.Metric]
		if !ok || r.Unavailable {
			continue
		}

		var severity models.Severity
		var breached float64
		switch {
		case r.UsedFraction >= mt.Threshold.Critical:
			severity = models.SeverityCritical
			breached = mt.Threshold.Critical
		case r.UsedFraction >= mt.Threshold.Warning:
			severity = models.SeverityWarning
			breached = mt.Threshold.Warning
		default:
			continue
		}

		findings = append(findings, models.Finding{
			Metric:    mt.Metric,
			Severity:  severity,
			Observed:  r.UsedFraction,
			Used:      r.Used,
			Total:     r.Total,
			Threshold: breached,
			Timestamp: sample.Timestamp,
		})
	}

	return findings
}
