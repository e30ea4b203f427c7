package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete Stagehand configuration
type Config struct {
	Queue    QueueConfig    `mapstructure:"queue"`
	Scaling  ScalingConfig  `mapstructure:"scaling"`
	Sampler  SamplerConfig  `mapstructure:"sampler"`
	Priority PriorityConfig `mapstructure:"priority"`
	Server   ServerConfig   `mapstructure:"server"`
	History  HistoryConfig  `mapstructure:"history"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// QueueConfig controls the admission queue
type QueueConfig struct {
	// MaxBufferSize is the number of items the priority buffer holds before
	// new admissions take the overflow path (default: 100)
	MaxBufferSize int `mapstructure:"max_buffer_size"`
	// ConcurrencyCeiling is the initial number of items that may execute
	// simultaneously; the autopilot adjusts it at runtime (default: 4)
	ConcurrencyCeiling int `mapstructure:"concurrency_ceiling"`
	// OverflowDelayMs is how long an overflow item waits before executing
	// directly, in milliseconds (default: 100)
	OverflowDelayMs int `mapstructure:"overflow_delay_ms"`
	// AssumedTaskDurationMs seeds wait estimation until enough completions
	// have been observed, in milliseconds (default: 500)
	AssumedTaskDurationMs int `mapstructure:"assumed_task_duration_ms"`
}

// OverflowDelay returns the overflow delay as a time.Duration
func (c *QueueConfig) OverflowDelay() time.Duration {
	return time.Duration(c.OverflowDelayMs) * time.Millisecond
}

// AssumedTaskDuration returns the assumed task duration as a time.Duration
func (c *QueueConfig) AssumedTaskDuration() time.Duration {
	return time.Duration(c.AssumedTaskDurationMs) * time.Millisecond
}

// ScalingConfig controls the capacity controller
type ScalingConfig struct {
	// MinInstances is the lower bound on the instance count (default: 1)
	MinInstances int `mapstructure:"min_instances"`
	// MaxInstances is the upper bound on the instance count (default: 10)
	MaxInstances int `mapstructure:"max_instances"`
	// ScaleUpThreshold is the utilization percentage above which to grow
	// (default: 70)
	ScaleUpThreshold float64 `mapstructure:"scale_up_threshold"`
	// ScaleDownThreshold is the utilization percentage below which to shrink.
	// Must stay below ScaleUpThreshold; the gap is the hysteresis that
	// prevents flapping (default: 30)
	ScaleDownThreshold float64 `mapstructure:"scale_down_threshold"`
	// CooldownSeconds is the quiet period after a scaling action during which
	// further actions are held (default: 30)
	CooldownSeconds int `mapstructure:"cooldown_seconds"`
	// QueueLengthWeight is the per-item utilization penalty for backlog
	// (default: 5)
	QueueLengthWeight float64 `mapstructure:"queue_length_weight"`
}

// CooldownPeriod returns the cooldown as a time.Duration
func (c *ScalingConfig) CooldownPeriod() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// SamplerConfig controls the periodic metrics sampler
type SamplerConfig struct {
	// IntervalSeconds is how often a metrics snapshot is produced (default: 5)
	IntervalSeconds int `mapstructure:"interval_seconds"`
	// WindowSeconds is the sliding window over which request rate, response
	// time, and error rate are computed (default: 30)
	WindowSeconds int `mapstructure:"window_seconds"`
	// MemoryBudgetMB is the heap budget the default memory reader reports
	// usage against when no host reader is installed (default: 512)
	MemoryBudgetMB int `mapstructure:"memory_budget_mb"`
}

// Interval returns the sample interval as a time.Duration
func (c *SamplerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Window returns the sliding window as a time.Duration
func (c *SamplerConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// PriorityConfig controls request categorization for priority scoring
type PriorityConfig struct {
	// DefaultCategory is assigned to operations no rule matches
	// (default: "read-heavy")
	DefaultCategory string `mapstructure:"default_category"`
	// Rules map operation name patterns to categories. Patterns are globs;
	// the first match wins.
	// Example: {pattern: "search.*", category: "read-heavy"}
	Rules []RuleConfig `mapstructure:"rules"`
}

// RuleConfig is one operation-to-category mapping
type RuleConfig struct {
	// Pattern is a glob matched against operation names (e.g., "*.create")
	Pattern string `mapstructure:"pattern"`
	// Category is assigned when the pattern matches
	Category string `mapstructure:"category"`
}

// ServerConfig controls the diagnostics HTTP server
type ServerConfig struct {
	// Enabled controls whether the diagnostics server is started (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Addr is the listen address (default: "127.0.0.1:8090")
	Addr string `mapstructure:"addr"`
	// PushIntervalMs is how often stats snapshots are pushed to connected
	// websocket clients, in milliseconds (default: 1000)
	PushIntervalMs int `mapstructure:"push_interval_ms"`
}

// PushInterval returns the websocket push interval as a time.Duration
func (c *ServerConfig) PushInterval() time.Duration {
	return time.Duration(c.PushIntervalMs) * time.Millisecond
}

// HistoryConfig controls the decision and outcome audit store
type HistoryConfig struct {
	// Enabled controls whether scaling decisions and work outcomes are
	// recorded (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Path is the SQLite database file. Empty means {ConfigDir}/history.db.
	Path string `mapstructure:"path"`
}

// ResolvePath returns the history database path, applying the default
// location when Path is empty.
func (c *HistoryConfig) ResolvePath() string {
	if c.Path != "" {
		return c.Path
	}
	return filepath.Join(ConfigDir(), "history.db")
}

// LoggingConfig controls debug logging
type LoggingConfig struct {
	// Enabled controls whether file logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Queue: QueueConfig{
			MaxBufferSize:         100,
			ConcurrencyCeiling:    4,
			OverflowDelayMs:       100,
			AssumedTaskDurationMs: 500,
		},
		Scaling: ScalingConfig{
			MinInstances:       1,
			MaxInstances:       10,
			ScaleUpThreshold:   70,
			ScaleDownThreshold: 30,
			CooldownSeconds:    30,
			QueueLengthWeight:  5,
		},
		Sampler: SamplerConfig{
			IntervalSeconds: 5,
			WindowSeconds:   30,
			MemoryBudgetMB:  512,
		},
		Priority: PriorityConfig{
			DefaultCategory: "read-heavy",
			Rules: []RuleConfig{
				{Pattern: "search.*", Category: "read-heavy"},
				{Pattern: "*.list", Category: "read-heavy"},
				{Pattern: "*.get", Category: "read-heavy"},
				{Pattern: "*.create", Category: "write-heavy"},
				{Pattern: "*.update", Category: "write-heavy"},
				{Pattern: "*.delete", Category: "write-heavy"},
				{Pattern: "messages.*", Category: "real-time"},
				{Pattern: "availability.*", Category: "real-time"},
			},
		},
		Server: ServerConfig{
			Enabled:        true,
			Addr:           "127.0.0.1:8090",
			PushIntervalMs: 1000,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "", // Empty means use default: {ConfigDir}/history.db
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Queue defaults
	viper.SetDefault("queue.max_buffer_size", defaults.Queue.MaxBufferSize)
	viper.SetDefault("queue.concurrency_ceiling", defaults.Queue.ConcurrencyCeiling)
	viper.SetDefault("queue.overflow_delay_ms", defaults.Queue.OverflowDelayMs)
	viper.SetDefault("queue.assumed_task_duration_ms", defaults.Queue.AssumedTaskDurationMs)

	// Scaling defaults
	viper.SetDefault("scaling.min_instances", defaults.Scaling.MinInstances)
	viper.SetDefault("scaling.max_instances", defaults.Scaling.MaxInstances)
	viper.SetDefault("scaling.scale_up_threshold", defaults.Scaling.ScaleUpThreshold)
	viper.SetDefault("scaling.scale_down_threshold", defaults.Scaling.ScaleDownThreshold)
	viper.SetDefault("scaling.cooldown_seconds", defaults.Scaling.CooldownSeconds)
	viper.SetDefault("scaling.queue_length_weight", defaults.Scaling.QueueLengthWeight)

	// Sampler defaults
	viper.SetDefault("sampler.interval_seconds", defaults.Sampler.IntervalSeconds)
	viper.SetDefault("sampler.window_seconds", defaults.Sampler.WindowSeconds)
	viper.SetDefault("sampler.memory_budget_mb", defaults.Sampler.MemoryBudgetMB)

	// Priority defaults
	viper.SetDefault("priority.default_category", defaults.Priority.DefaultCategory)

	// Server defaults
	viper.SetDefault("server.enabled", defaults.Server.Enabled)
	viper.SetDefault("server.addr", defaults.Server.Addr)
	viper.SetDefault("server.push_interval_ms", defaults.Server.PushIntervalMs)

	// History defaults
	viper.SetDefault("history.enabled", defaults.History.Enabled)
	viper.SetDefault("history.path", defaults.History.Path)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the directory where Stagehand stores its configuration
// and data files. It respects XDG_CONFIG_HOME and falls back to
// ~/.config/stagehand.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "stagehand")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stagehand"
	}
	return filepath.Join(home, ".config", "stagehand")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
