package evaluate

import (
	"reflect"
	"testing"
	"time"

	"github.com/pushwatch/watchdog/internal/models"
)

var testThresholds = []models.MetricThreshold{
	{Metric: "memory", Threshold: models.Threshold{Warning: 0.8, Critical: 0.95}},
	{Metric: "disk:/", Threshold: models.Threshold{Warning: 0.8, Critical: 0.9}},
	{Metric: "disk:/data", Threshold: models.Threshold{Warning: 0.7, Critical: 0.85}},
}

func sampleWith(readings ...models.Reading) models.Sample {
	return models.Sample{
		Timestamp: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Readings:  readings,
	}
}

func reading(metric string, frac float64) models.Reading {
	return models.Reading{Metric: metric, UsedFraction: frac, Used: uint64(frac * 1000), Total: 1000}
}

func TestEvaluate_NoBreachNoFindings(t *testing.T) {
	s := sampleWith(reading("memory", 0.5), reading("disk:/", 0.3))
	if got := Evaluate(s, testThresholds); len(got) != 0 {
		t.Errorf("got %d findings, want 0", len(got))
	}
}

func TestEvaluate_SeverityClassification(t *testing.T) {
	cases := []struct {
		name     string
		frac     float64
		severity models.Severity
	}{
		{"above warning", 0.85, models.SeverityWarning},
		{"exactly warning", 0.80, models.SeverityWarning},
		{"above critical", 0.97, models.SeverityCritical},
		{"exactly critical", 0.95, models.SeverityCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := sampleWith(reading("memory", tc.frac))
			got := Evaluate(s, testThresholds)
			if len(got) != 1 {
				t.Fatalf("got %d findings, want 1", len(got))
			}
			if got[0].Severity != tc.severity {
				t.Errorf("severity = %v, want %v", got[0].Severity, tc.severity)
			}
		})
	}
}

func TestEvaluate_TieResolvesToCritical(t *testing.T) {
	// Warning == critical: the critical check runs first and wins.
	ths := []models.MetricThreshold{
		{Metric: "memory", Threshold: models.Threshold{Warning: 0.9, Critical: 0.9}},
	}
	got := Evaluate(sampleWith(reading("memory", 0.9)), ths)
	if len(got) != 1 || got[0].Severity != models.SeverityCritical {
		t.Errorf("got %+v, want one Critical finding", got)
	}
}

func TestEvaluate_OrderFollowsConfiguration(t *testing.T) {
	// Readings arrive in a different order than the thresholds; output
	// must follow threshold (configuration) order.
	s := sampleWith(
		reading("disk:/data", 0.9),
		reading("memory", 0.99),
		reading("disk:/", 0.95),
	)
	got := Evaluate(s, testThresholds)
	var order []string
	for _, f := range got {
		order = append(order, f.Metric)
	}
	want := []string{"memory", "disk:/", "disk:/data"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("finding order = %v, want %v", order, want)
	}
}

func TestEvaluate_UnavailableProducesNoFinding(t *testing.T) {
	s := sampleWith(
		models.Reading{Metric: "memory", Unavailable: true, Err: "probe failed"},
		reading("disk:/", 0.99),
	)
	got := Evaluate(s, testThresholds)
	if len(got) != 1 || got[0].Metric != "disk:/" {
		t.Errorf("got %+v, want one finding for disk:/", got)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	s := sampleWith(reading("memory", 0.85), reading("disk:/", 0.95))
	first := Evaluate(s, testThresholds)
	for i := 0; i < 10; i++ {
		if got := Evaluate(s, testThresholds); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestEvaluate_MetricWithoutThresholdIgnored(t *testing.T) {
	s := sampleWith(reading("disk:/tmp", 0.99))
	if got := Evaluate(s, testThresholds); len(got) != 0 {
		t.Errorf("got %d findings, want 0 for unconfigured metric", len(got))
	}
}
