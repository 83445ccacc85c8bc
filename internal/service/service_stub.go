//go:build !windows

// Package service provides a stub implementation for non-Windows platforms.
// On macOS and Linux the watchdog runs as a foreground process managed by
// systemd or launchd; the Windows service wrapper is not needed.
package service

import (
	"context"

	"go.uber.org/zap"
)

// WatchdogService is a no-op service wrapper for non-Windows platforms.
type WatchdogService struct {
	logger  *zap.Logger
	startFn func(ctx context.Context)
}

// New creates a stub service wrapper for non-Windows platforms.
func New(logger *zap.Logger, startFn func(ctx context.Context)) *WatchdogService {
	return &WatchdogService{
		logger:  logger,
		startFn: startFn,
	}
}

// IsWindowsService always returns false on non-Windows platforms.
func IsWindowsService() bool {
	return false
}

// Run executes the watchdog directly (no service wrapper needed here).
func (s *WatchdogService) Run() error {
	ctx := context.Background()
	s.startFn(ctx)
	return nil
}
