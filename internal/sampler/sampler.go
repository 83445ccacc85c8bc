// Package sampler reads current memory and disk utilization from the host.
// It produces one Sample per tick; a metric source that cannot be read is
// marked unavailable in the Sample instead of failing the whole call.
package sampler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pushwatch/watchdog/internal/config"
	"github.com/pushwatch/watchdog/internal/models"
)

// Sampler probes the configured metric sources. It is driven by a single
// goroutine (the watchdog loop); the availability bookkeeping is not
// safe for concurrent use.
type Sampler struct {
	memory bool
	mounts []string
	logger *zap.Logger

	// down tracks metrics currently unavailable so each transition is
	// logged once rather than every tick.
	down map[string]bool
}

// New creates a Sampler for the metrics enabled in the configuration.
func New(cfg *config.Config, logger *zap.Logger) *Sampler {
	return &Sampler{
		memory: cfg.Monitor.Memory.Enabled,
		mounts: cfg.MountPaths(),
		logger: logger,
		down:   make(map[string]bool),
	}
}

// Sample reads all configured metrics and returns a fresh Sample.
// Readings preserve configuration order: memory first, then mounts.
// Sample never fails; unreadable sources yield unavailable readings.
func (s *Sampler) Sample(ctx context.Context) models.Sample {
	sample := models.Sample{
		Timestamp: time.Now().UTC(),
	}

	if s.memory {
		r, err := readMemory(ctx)
		sample.Readings = append(sample.Readings, s.track(config.MetricMemory, r, err))
	}

	for _, mount := range s.mounts {
		r, err := readDisk(ctx, mount)
		sample.Readings = append(sample.Readings, s.track(config.DiskMetric(mount), r, err))
	}

	return sample
}

// track converts a probe result into a Reading and logs availability
// transitions exactly once per transition.
func (s *Sampler) track(metric string, r models.Reading, err error) models.Reading {
	if err != nil {
		if !s.down[metric] {
			s.down[metric] = true
			s.logger.Warn("Metric source unavailable",
				zap.String("metric", metric),
				zap.Error(err))
		}
		return models.Reading{
			Metric:      metric,
			Unavailable: true,
			Err:         err.Error(),
		}
	}

	if s.down[metric] {
		delete(s.down, metric)
		s.logger.Info("Metric source available again",
			zap.String("metric", metric))
	}

	r.Metric = metric
	return r
}
