//go:build windows

// Package service provides Windows Service integration.
// When running as a Windows service, the watchdog enters the SCM control
// loop. When running from a terminal, it runs in foreground.
package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/windows/svc"
)

const serviceName = "PushoverWatchdog"

// WatchdogService implements the Windows service interface (svc.Handler).
type WatchdogService struct {
	logger  *zap.Logger
	startFn func(ctx context.Context)
}

// New creates a new Windows service wrapper.
// The startFn is called with a cancellable context when the service starts.
func New(logger *zap.Logger, startFn func(ctx context.Context)) *WatchdogService {
	return &WatchdogService{
		logger:  logger,
		startFn: startFn,
	}
}

// IsWindowsService checks if the process is running as a Windows service.
func IsWindowsService() bool {
	isService, err := svc.IsWindowsService()
	if err != nil {
		return false
	}
	return isService
}

// Run starts the Windows service control loop.
func (s *WatchdogService) Run() error {
	return svc.Run(serviceName, s)
}

// Execute implements the svc.Handler interface for Windows SCM integration.
// It manages the service lifecycle: start, running, stop/shutdown.
func (s *WatchdogService) Execute(args []string, r <-chan svc.ChangeRequest, changes chan<- svc.Status) (ssec bool, errno uint32) {
	changes <- svc.Status{State: svc.StartPending}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the watchdog loop in a goroutine
	go s.startFn(ctx)

	changes <- svc.Status{
		State:   svc.Running,
		Accepts: svc.AcceptStop | svc.AcceptShutdown,
	}
	s.logger.Info("Windows service started")

	for {
		c := <-r
		switch c.Cmd {
		case svc.Interrogate:
			changes <- c.CurrentStatus
		case svc.Stop, svc.Shutdown:
			s.logger.Info("Windows service stopping")
			changes <- svc.Status{State: svc.StopPending}
			cancel()
			// Give any in-flight delivery time to finish
			time.Sleep(5 * time.Second)
			return false, 0
		default:
			s.logger.Warn("Unexpected service control request",
				zap.Uint32("cmd", uint32(c.Cmd)))
		}
	}
}
