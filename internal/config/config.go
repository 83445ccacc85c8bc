// Package config handles configuration loading from YAML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pushwatch/watchdog/internal/models"
)

// Environment variable names recognized for credential overrides.
// These match the env file written during service installation.
const (
	EnvUserKey  = "PUSHOVER_USER_KEY"
	EnvAppToken = "PUSHOVER_APP_TOKEN"
	EnvLogLevel = "WATCHDOG_LOG_LEVEL"
)

// DefaultAPIURL is the Pushover messages endpoint.
const DefaultAPIURL = "https://api.pushover.net/1/messages.json"

// Duration is a wrapper around time.Duration that supports YAML unmarshaling
// from human-readable strings like "60s", "30m", "1h".
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := time.ParseDuration(value.Value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value.Value, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("unsupported duration format: %v", value.Kind)
	}
}

// MarshalYAML implements the yaml.Marshaler interface for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Config holds all watchdog configuration.
type Config struct {
	Pushover  PushoverConfig `yaml:"pushover"`
	Monitor   MonitorConfig  `yaml:"monitor"`
	Logging   LoggingConfig  `yaml:"logging"`
	HostLabel string         `yaml:"host_label"`
}

// PushoverConfig holds the push-relay credentials and endpoint.
type PushoverConfig struct {
	UserKey  string `yaml:"user_key"`
	AppToken string `yaml:"app_token"`
	Device   string `yaml:"device"`
	APIURL   string `yaml:"api_url"`
}

// MonitorConfig holds sampling and alerting settings.
type MonitorConfig struct {
	Interval         Duration     `yaml:"interval"`
	RenotifyInterval Duration     `yaml:"renotify_interval"`
	NotifyRecovery   bool         `yaml:"notify_recovery"`
	Memory           MemoryConfig `yaml:"memory"`
	Disk             DiskConfig   `yaml:"disk"`
}

// MemoryConfig holds RAM monitoring settings.
type MemoryConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Warning  float64 `yaml:"warning"`
	Critical float64 `yaml:"critical"`
}

// DiskConfig holds disk monitoring settings. Warning/Critical apply to
// every mount unless a mount entry overrides them.
type DiskConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Warning  float64       `yaml:"warning"`
	Critical float64       `yaml:"critical"`
	Mounts   []MountConfig `yaml:"mounts"`
}

// MountConfig is one monitored filesystem path with optional
// per-mount threshold overrides.
type MountConfig struct {
	Path     string   `yaml:"path"`
	Warning  *float64 `yaml:"warning"`
	Critical *float64 `yaml:"critical"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Pushover: PushoverConfig{
			APIURL: DefaultAPIURL,
		},
		Monitor: MonitorConfig{
			Interval:         Duration{60 * time.Second},
			RenotifyInterval: Duration{30 * time.Minute},
			NotifyRecovery:   false,
			Memory: MemoryConfig{
				Enabled:  true,
				Warning:  0.80,
				Critical: 0.95,
			},
			Disk: DiskConfig{
				Enabled:  true,
				Warning:  0.80,
				Critical: 0.95,
				Mounts:   []MountConfig{{Path: "/home"}},
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromBytes parses YAML configuration from a byte slice and merges with defaults.
// Environment variables take precedence over values from the byte slice.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config data: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Load reads configuration from a YAML file and merges with defaults.
// If path is empty or the file does not exist, only defaults and environment
// variables are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadFromBytes(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		return LoadFromBytes(nil)
	}

	return LoadFromBytes(data)
}

// CLIOverrides holds values from command-line flags.
// Empty strings are treated as "not set" and skipped.
type CLIOverrides struct {
	UserKey   string
	AppToken  string
	HostLabel string
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	candidates := configSearchPaths()
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// DefaultPath returns the preferred config file location for this platform,
// used when installing the service on a machine with no config yet.
func DefaultPath() string {
	return configSearchPaths()[0]
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external YAML file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	// Layer 1: embedded config (lowest priority data layer)
	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	// Layer 2: external YAML file
	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0] // caller-supplied (may be "")
	} else {
		filePath = Locate() // auto-discover
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
			}
		}
	}

	// Layer 3: environment variables
	applyEnvOverrides(cfg)

	// Layer 4: CLI flags (highest priority)
	if cli.UserKey != "" {
		cfg.Pushover.UserKey = cli.UserKey
	}
	if cli.AppToken != "" {
		cfg.Pushover.AppToken = cli.AppToken
	}
	if cli.HostLabel != "" {
		cfg.HostLabel = cli.HostLabel
	}

	return cfg, nil
}

// WriteConfig serializes the config to a YAML file at the given path.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0640)
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv(EnvUserKey); key != "" {
		cfg.Pushover.UserKey = key
	}
	if token := os.Getenv(EnvAppToken); token != "" {
		cfg.Pushover.AppToken = token
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.Logging.Level = level
	}
}

// MetricMemory is the metric name used for RAM readings.
const MetricMemory = "memory"

// DiskMetric returns the metric name for a monitored mount path.
func DiskMetric(path string) string {
	return "disk:" + path
}

// Thresholds returns the ordered threshold list consumed by the evaluator:
// memory first, then mounts in config order. The order is stable so the
// evaluator's output is deterministic.
func (c *Config) Thresholds() []models.MetricThreshold {
	var out []models.MetricThreshold
	if c.Monitor.Memory.Enabled {
		out = append(out, models.MetricThreshold{
			Metric: MetricMemory,
			Threshold: models.Threshold{
				Warning:  c.Monitor.Memory.Warning,
				Critical: c.Monitor.Memory.Critical,
			},
		})
	}
	if c.Monitor.Disk.Enabled {
		for _, m := range c.Monitor.Disk.Mounts {
			th := models.Threshold{
				Warning:  c.Monitor.Disk.Warning,
				Critical: c.Monitor.Disk.Critical,
			}
			if m.Warning != nil {
				th.Warning = *m.Warning
			}
			if m.Critical != nil {
				th.Critical = *m.Critical
			}
			out = append(out, models.MetricThreshold{
				Metric:    DiskMetric(m.Path),
				Threshold: th,
			})
		}
	}
	return out
}

// MountPaths returns the monitored mount paths in config order.
// Empty when disk monitoring is disabled.
func (c *Config) MountPaths() []string {
	if !c.Monitor.Disk.Enabled {
		return nil
	}
	paths := make([]string, 0, len(c.Monitor.Disk.Mounts))
	for _, m := range c.Monitor.Disk.Mounts {
		paths = append(paths, m.Path)
	}
	return paths
}

// Validate checks that the configuration is usable. It is called once at
// startup; any error here is fatal and the process exits non-zero.
func (c *Config) Validate() error {
	if c.Pushover.UserKey == "" {
		return fmt.Errorf("pushover user key is required (set pushover.user_key or %s)", EnvUserKey)
	}
	if c.Pushover.AppToken == "" {
		return fmt.Errorf("pushover app token is required (set pushover.app_token or %s)", EnvAppToken)
	}
	if c.Pushover.APIURL == "" {
		return fmt.Errorf("pushover API URL must not be empty")
	}
	if c.Monitor.Interval.Duration <= 0 {
		return fmt.Errorf("monitor interval must be positive (got %s)", c.Monitor.Interval.Duration)
	}
	if c.Monitor.RenotifyInterval.Duration < 0 {
		return fmt.Errorf("renotify interval must not be negative (got %s)", c.Monitor.RenotifyInterval.Duration)
	}
	if !c.Monitor.Memory.Enabled && !c.Monitor.Disk.Enabled {
		return fmt.Errorf("nothing to monitor: both memory and disk monitoring are disabled")
	}
	if c.Monitor.Disk.Enabled && len(c.Monitor.Disk.Mounts) == 0 {
		return fmt.Errorf("disk monitoring is enabled but no mounts are configured")
	}
	for _, mt := range c.Thresholds() {
		if err := validateThreshold(mt.Metric, mt.Threshold); err != nil {
			return err
		}
	}
	return nil
}

// validateThreshold checks a single metric's warning/critical pair.
// Fractions must be in (0, 1] and warning must not exceed critical.
func validateThreshold(metric string, th models.Threshold) error {
	if th.Warning <= 0 || th.Warning > 1 {
		return fmt.Errorf("%s: warning threshold must be in (0, 1], got %v", metric, th.Warning)
	}
	if th.Critical <= 0 || th.Critical > 1 {
		return fmt.Errorf("%s: critical threshold must be in (0, 1], got %v", metric, th.Critical)
	}
	if th.Warning > th.Critical {
		return fmt.Errorf("%s: warning threshold %v exceeds critical threshold %v", metric, th.Warning, th.Critical)
	}
	return nil
}
