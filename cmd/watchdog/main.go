// Package main is the entry point for the Pushover host watchdog.
// It loads configuration, wires the sampler/tracker/notifier pipeline,
// and runs the watchdog loop as a foreground process, a systemd/launchd
// managed service, or a Windows service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pushwatch/watchdog/internal/alertstate"
	"github.com/pushwatch/watchdog/internal/autostart"
	"github.com/pushwatch/watchdog/internal/config"
	"github.com/pushwatch/watchdog/internal/notify"
	"github.com/pushwatch/watchdog/internal/sampler"
	"github.com/pushwatch/watchdog/internal/service"
	"github.com/pushwatch/watchdog/internal/watchdog"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to configuration file (default: auto-discover)")
	showVersion = flag.Bool("version", false, "Show version and exit")
	installSvc  = flag.Bool("install", false, "Install the watchdog as a background service and exit")
	removeSvc   = flag.Bool("uninstall", false, "Remove the background service and exit")
	userKey     = flag.String("user-key", "", "Pushover user/group key (overrides config)")
	appToken    = flag.String("app-token", "", "Pushover application token (overrides config)")
	hostLabel   = flag.String("host-label", "", "Hostname shown in alerts (default: system hostname)")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("pushover-watchdog %s\n", version)
		os.Exit(0)
	}

	if *installSvc || *removeSvc {
		if err := manageService(*installSvc); err != nil {
			fmt.Fprintf(os.Stderr, "Service management failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cli := config.CLIOverrides{
		UserKey:   *userKey,
		AppToken:  *appToken,
		HostLabel: *hostLabel,
	}

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadLayered(cli, embeddedConfig, *configPath)
	} else {
		cfg, err = config.LoadLayered(cli, embeddedConfig)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)
	defer logger.Sync()

	logger.Info("Starting pushover-watchdog",
		zap.String("version", version))

	// Validate configuration (credentials, thresholds, intervals)
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Check if running as Windows service
	if service.IsWindowsService() {
		logger.Info("Running as Windows service")
		svc := service.New(logger, func(ctx context.Context) {
			runWatchdog(ctx, cfg, logger)
		})
		if err := svc.Run(); err != nil {
			logger.Fatal("Service failed", zap.Error(err))
		}
		return
	}

	// Running as standalone foreground process
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		cancel()
	}()

	runWatchdog(ctx, cfg, logger)
	logger.Info("Watchdog stopped")
}

// runWatchdog wires the pipeline and starts the loop.
// It blocks until the context is cancelled.
func runWatchdog(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	hostname, _ := os.Hostname()

	smp := sampler.New(cfg, logger)
	tracker := alertstate.New(cfg.Monitor.RenotifyInterval.Duration)
	notifier := notify.New(cfg, hostname, logger)

	wd := watchdog.New(smp, tracker, notifier, cfg, logger)
	wd.Run(ctx)
}

// manageService installs or removes the background service for this binary.
// On install, a starter config file is written if none exists yet so the
// user has something to put credentials into.
func manageService(install bool) error {
	mgr := autostart.New()

	if !install {
		return mgr.Uninstall()
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving executable path: %w", err)
	}

	if config.Locate() == "" {
		if err := config.WriteConfig(config.DefaultConfig(), config.DefaultPath()); err != nil {
			return fmt.Errorf("writing starter config: %w", err)
		}
		fmt.Printf("Wrote starter config: %s\n", config.DefaultPath())
	}

	return mgr.Install(execPath)
}

// initLogger creates a zap logger based on the configuration.
// It outputs to both console (human-readable) and optionally a JSON log file.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// Console output (human-readable)
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	// File output (structured JSON, if configured)
	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
