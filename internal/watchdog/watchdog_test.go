package watchdog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pushwatch/watchdog/internal/alertstate"
	"github.com/pushwatch/watchdog/internal/config"
	"github.com/pushwatch/watchdog/internal/models"
)

// scriptedSampler replays a fixed sequence of samples, one per tick.
type scriptedSampler struct {
	samples []models.Sample
	i       int
}

func (s *scriptedSampler) Sample(ctx context.Context) models.Sample {
	if s.i >= len(s.samples) {
		return s.samples[len(s.samples)-1]
	}
	sample := s.samples[s.i]
	s.i++
	return sample
}

// recordingNotifier captures delivered alerts; fail makes every
// delivery report an error.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []models.Alert
	fail   bool
}

func (n *recordingNotifier) Notify(ctx context.Context, alert models.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	if n.fail {
		return errors.New("delivery failed")
	}
	return nil
}

func (n *recordingNotifier) delivered() []models.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Alert, len(n.alerts))
	copy(out, n.alerts)
	return out
}

func memoryOnlyConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Pushover.UserKey = "u"
	cfg.Pushover.AppToken = "a"
	cfg.Monitor.Disk.Enabled = false
	cfg.Monitor.Interval = config.Duration{Duration: time.Minute}
	cfg.Monitor.RenotifyInterval = config.Duration{Duration: 24 * time.Hour}
	return cfg
}

func memorySample(at time.Time, frac float64) models.Sample {
	return models.Sample{
		Timestamp: at,
		Readings: []models.Reading{
			{Metric: "memory", UsedFraction: frac, Used: uint64(frac * 1000), Total: 1000},
		},
	}
}

// runTicks drives n ticks with the clock advancing one interval per tick.
func runTicks(w *Watchdog, start time.Time, n int) {
	now := start
	for i := 0; i < n; i++ {
		tickTime := now
		w.now = func() time.Time { return tickTime }
		w.tick(context.Background())
		now = now.Add(w.cfg.Monitor.Interval.Duration)
	}
}

func TestTick_BreachEscalationAndRecovery(t *testing.T) {
	// Memory fractions per tick: 0.5, 0.85, 0.85, 0.97, 0.5 with a
	// renotify interval longer than the run. Expected deliveries:
	// Warning at tick 2 and Critical at tick 4, nothing else.
	cfg := memoryOnlyConfig()
	start := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	fracs := []float64{0.5, 0.85, 0.85, 0.97, 0.5}
	var samples []models.Sample
	for i, f := range fracs {
		samples = append(samples, memorySample(start.Add(time.Duration(i)*time.Minute), f))
	}

	notifier := &recordingNotifier{}
	tracker := alertstate.New(cfg.Monitor.RenotifyInterval.Duration)
	w := New(&scriptedSampler{samples: samples}, tracker, notifier, cfg, zap.NewNop())

	runTicks(w, start, len(fracs))

	got := notifier.delivered()
	if len(got) != 2 {
		t.Fatalf("delivered %d alerts, want 2: %+v", len(got), got)
	}
	if got[0].Severity != models.SeverityWarning || got[0].Observed != 0.85 {
		t.Errorf("first alert = %+v, want Warning at 0.85", got[0])
	}
	if got[1].Severity != models.SeverityCritical || got[1].Observed != 0.97 {
		t.Errorf("second alert = %+v, want Critical at 0.97", got[1])
	}
	if tracker.Len() != 0 {
		t.Errorf("tracker has %d records after recovery, want 0", tracker.Len())
	}
}

func TestTick_UnavailableMountThenCritical(t *testing.T) {
	// The mount is unreadable for 3 ticks, then readable at 0.99 with
	// critical at 0.9: exactly one Critical alert on the readable tick.
	cfg := memoryOnlyConfig()
	cfg.Monitor.Memory.Enabled = false
	cfg.Monitor.Disk.Enabled = true
	cfg.Monitor.Disk.Critical = 0.9
	cfg.Monitor.Disk.Mounts = []config.MountConfig{{Path: "/data"}}

	start := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	unavailable := models.Sample{
		Timestamp: start,
		Readings: []models.Reading{
			{Metric: "disk:/data", Unavailable: true, Err: "no such file or directory"},
		},
	}
	readable := models.Sample{
		Timestamp: start.Add(3 * time.Minute),
		Readings: []models.Reading{
			{Metric: "disk:/data", UsedFraction: 0.99, Used: 990, Total: 1000},
		},
	}

	notifier := &recordingNotifier{}
	tracker := alertstate.New(cfg.Monitor.RenotifyInterval.Duration)
	w := New(&scriptedSampler{samples: []models.Sample{unavailable, unavailable, unavailable, readable}},
		tracker, notifier, cfg, zap.NewNop())

	runTicks(w, start, 4)

	got := notifier.delivered()
	if len(got) != 1 {
		t.Fatalf("delivered %d alerts, want 1: %+v", len(got), got)
	}
	if got[0].Severity != models.SeverityCritical || got[0].Metric != "disk:/data" {
		t.Errorf("alert = %+v, want Critical for disk:/data", got[0])
	}
}

func TestTick_RecoveryNotificationWhenEnabled(t *testing.T) {
	cfg := memoryOnlyConfig()
	cfg.Monitor.NotifyRecovery = true

	start := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	samples := []models.Sample{
		memorySample(start, 0.9),
		memorySample(start.Add(time.Minute), 0.5),
	}

	notifier := &recordingNotifier{}
	tracker := alertstate.New(cfg.Monitor.RenotifyInterval.Duration)
	w := New(&scriptedSampler{samples: samples}, tracker, notifier, cfg, zap.NewNop())

	runTicks(w, start, 2)

	got := notifier.delivered()
	if len(got) != 2 {
		t.Fatalf("delivered %d alerts, want breach + recovery: %+v", len(got), got)
	}
	if got[1].Recovered != true || got[1].Metric != "memory" {
		t.Errorf("second alert = %+v, want recovery notice", got[1])
	}
}

func TestTick_FailedDeliveryDoesNotStopLoop(t *testing.T) {
	cfg := memoryOnlyConfig()
	start := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	samples := []models.Sample{
		memorySample(start, 0.9),
		memorySample(start.Add(time.Minute), 0.9),
	}

	notifier := &recordingNotifier{fail: true}
	tracker := alertstate.New(cfg.Monitor.RenotifyInterval.Duration)
	w := New(&scriptedSampler{samples: samples}, tracker, notifier, cfg, zap.NewNop())

	runTicks(w, start, 2)

	// One delivery attempt on tick 1; tick 2 is suppressed by the record
	// created on admission (the dropped alert is not re-queued).
	if got := notifier.delivered(); len(got) != 1 {
		t.Errorf("notifier saw %d alerts, want 1: %+v", len(got), got)
	}
	if tracker.Len() != 1 {
		t.Errorf("tracker has %d records, want 1", tracker.Len())
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	cfg := memoryOnlyConfig()
	cfg.Monitor.Interval = config.Duration{Duration: 10 * time.Millisecond}

	start := time.Now()
	notifier := &recordingNotifier{}
	tracker := alertstate.New(cfg.Monitor.RenotifyInterval.Duration)
	w := New(&scriptedSampler{samples: []models.Sample{memorySample(start, 0.1)}},
		tracker, notifier, cfg, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
