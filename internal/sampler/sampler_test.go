package sampler

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pushwatch/watchdog/internal/config"
)

func testConfig(mounts ...config.MountConfig) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Monitor.Disk.Mounts = mounts
	return cfg
}

func TestSample_ReadingOrderMatchesConfig(t *testing.T) {
	cfg := testConfig(config.MountConfig{Path: "/"}, config.MountConfig{Path: t.TempDir()})
	s := New(cfg, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sample := s.Sample(ctx)
	if len(sample.Readings) != 3 {
		t.Fatalf("got %d readings, want 3", len(sample.Readings))
	}
	if sample.Readings[0].Metric != "memory" {
		t.Errorf("first reading = %q, want memory", sample.Readings[0].Metric)
	}
	if sample.Readings[1].Metric != "disk:/" {
		t.Errorf("second reading = %q, want disk:/", sample.Readings[1].Metric)
	}
}

func TestSample_MemoryReadingIsPlausible(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.Disk.Enabled = false
	s := New(cfg, zap.NewNop())

	sample := s.Sample(context.Background())
	if len(sample.Readings) != 1 {
		t.Fatalf("got %d readings, want 1", len(sample.Readings))
	}

	r := sample.Readings[0]
	if r.Unavailable {
		t.Fatalf("memory reading unavailable: %s", r.Err)
	}
	if r.Total == 0 || r.Used > r.Total {
		t.Errorf("implausible memory reading: used=%d total=%d", r.Used, r.Total)
	}
	if r.UsedFraction <= 0 || r.UsedFraction > 1 {
		t.Errorf("used fraction out of range: %v", r.UsedFraction)
	}
}

func TestSample_MissingMountIsUnavailableNotFatal(t *testing.T) {
	cfg := testConfig(config.MountConfig{Path: "/definitely/not/a/mount"})
	cfg.Monitor.Memory.Enabled = false
	s := New(cfg, zap.NewNop())

	sample := s.Sample(context.Background())
	if len(sample.Readings) != 1 {
		t.Fatalf("got %d readings, want 1", len(sample.Readings))
	}
	if !sample.Readings[0].Unavailable {
		t.Error("reading for missing mount should be unavailable")
	}
	if sample.Readings[0].Err == "" {
		t.Error("unavailable reading should carry the probe error")
	}
}

func TestTrack_LogsTransitionOnce(t *testing.T) {
	cfg := testConfig(config.MountConfig{Path: "/definitely/not/a/mount"})
	cfg.Monitor.Memory.Enabled = false
	s := New(cfg, zap.NewNop())

	// Repeated unavailable samples keep the metric marked down; the
	// bookkeeping map must hold exactly one entry, not grow per tick.
	for i := 0; i < 3; i++ {
		s.Sample(context.Background())
	}
	if len(s.down) != 1 {
		t.Errorf("down map has %d entries, want 1", len(s.down))
	}
	if !s.down["disk:/definitely/not/a/mount"] {
		t.Error("metric should be marked down")
	}
}
