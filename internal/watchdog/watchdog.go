// Package watchdog implements the fixed-interval sampling and alerting
// loop. Each tick runs sample → evaluate → admit → notify; no error in
// that pipeline ever terminates the loop. It blocks until the context is
// cancelled and never queues missed ticks.
package watchdog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pushwatch/watchdog/internal/alertstate"
	"github.com/pushwatch/watchdog/internal/config"
	"github.com/pushwatch/watchdog/internal/evaluate"
	"github.com/pushwatch/watchdog/internal/models"
)

const (
	// sampleTimeout bounds how long one tick may spend reading metrics.
	sampleTimeout = 10 * time.Second

	// dispatchTimeout bounds the delivery of one tick's alerts, including
	// retries. Shutdown lets in-flight deliveries finish within this
	// budget instead of killing them mid-request.
	dispatchTimeout = 45 * time.Second
)

// Sampler produces one Sample per tick.
type Sampler interface {
	Sample(ctx context.Context) models.Sample
}

// Notifier delivers a single alert. An error means the alert was dropped.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// Watchdog drives the sampling/alerting pipeline on a fixed interval.
type Watchdog struct {
	sampler    Sampler
	tracker    *alertstate.Tracker
	notifier   Notifier
	cfg        *config.Config
	thresholds []models.MetricThreshold
	logger     *zap.Logger

	// now is injected for tests; production uses time.Now.
	now func() time.Time
}

// New creates a Watchdog from already-constructed components.
func New(sampler Sampler, tracker *alertstate.Tracker, notifier Notifier, cfg *config.Config, logger *zap.Logger) *Watchdog {
	return &Watchdog{
		sampler:    sampler,
		tracker:    tracker,
		notifier:   notifier,
		cfg:        cfg,
		thresholds: cfg.Thresholds(),
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes the loop until the context is cancelled. The first tick
// runs immediately; subsequent ticks fire on the configured interval.
// A tick that overruns the interval is followed by the next tick right
// away (ticker semantics drop missed ticks rather than queueing them).
func (w *Watchdog) Run(ctx context.Context) {
	interval := w.cfg.Monitor.Interval.Duration
	w.logger.Info("Watchdog running",
		zap.Duration("interval", interval),
		zap.Duration("renotify_interval", w.cfg.Monitor.RenotifyInterval.Duration),
		zap.Int("metrics", len(w.thresholds)))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watchdog stopping")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick runs one sample/evaluate/admit/notify cycle.
func (w *Watchdog) tick(ctx context.Context) {
	start := w.now()
	w.logger.Debug("Tick started")

	sampleCtx, cancel := context.WithTimeout(ctx, sampleTimeout)
	sample := w.sampler.Sample(sampleCtx)
	cancel()

	findings := evaluate.Evaluate(sample, w.thresholds)

	breached := make(map[string]bool, len(findings))
	unavailable := make(map[string]bool)
	for _, r := range sample.Readings {
		if r.Unavailable {
			unavailable[r.Metric] = true
		}
	}

	now := w.now()
	var alerts []models.Alert
	for _, f := range findings {
		breached[f.Metric] = true
		w.logger.Info("Threshold breached",
			zap.String("metric", f.Metric),
			zap.String("severity", f.Severity.String()),
			zap.Float64("observed", f.Observed),
			zap.Float64("threshold", f.Threshold))

		alert, ok := w.tracker.Admit(f, now)
		if !ok {
			w.logger.Debug("Alert suppressed",
				zap.String("metric", f.Metric),
				zap.String("severity", f.Severity.String()))
			continue
		}
		alerts = append(alerts, alert)
	}

	recovered := w.tracker.Sweep(breached, unavailable, now)
	for _, r := range recovered {
		w.logger.Info("Metric recovered",
			zap.String("metric", r.Metric),
			zap.String("was", r.Severity.String()))
	}
	if w.cfg.Monitor.NotifyRecovery {
		alerts = append(alerts, recovered...)
	}

	w.dispatch(ctx, alerts)

	w.logger.Debug("Tick finished",
		zap.Duration("elapsed", w.now().Sub(start)),
		zap.Int("findings", len(findings)),
		zap.Int("alerts", len(alerts)))
}

// dispatch delivers this tick's alerts concurrently; alerts for
// different metrics have no ordering dependency. The delivery context
// is detached from the loop context so a shutdown signal does not kill
// attempts already in flight, only bounds them by dispatchTimeout.
func (w *Watchdog) dispatch(ctx context.Context, alerts []models.Alert) {
	if len(alerts) == 0 {
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, a := range alerts {
		wg.Add(1)
		go func(alert models.Alert) {
			defer wg.Done()
			if err := w.notifier.Notify(notifyCtx, alert); err != nil {
				w.logger.Error("Alert dropped",
					zap.String("metric", alert.Metric),
					zap.String("severity", alert.Severity.String()),
					zap.Error(err))
			}
		}(a)
	}
	wg.Wait()
}
