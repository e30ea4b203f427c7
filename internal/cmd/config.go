package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gigbase/stagehand/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify stagehand configuration",
	Long: `View or modify stagehand configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  stagehand config set queue.max_buffer_size 200
  stagehand config set scaling.scale_up_threshold 75
  stagehand config set server.addr 127.0.0.1:9090

Valid keys:
  queue.max_buffer_size         - Buffered items before overflow
  queue.concurrency_ceiling     - Concurrent executions (0 pauses draining)
  queue.overflow_delay_ms       - Delay before overflow items run
  queue.assumed_task_duration_ms - Per-item duration for wait estimates
  scaling.min_instances         - Lower scaling bound
  scaling.max_instances         - Upper scaling bound
  scaling.scale_up_threshold    - Utilization %% that triggers growth
  scaling.scale_down_threshold  - Utilization %% that triggers shrink
  scaling.cooldown_seconds      - Quiet period between scaling actions
  scaling.queue_length_weight   - Utilization points per buffered item
  sampler.interval_seconds      - Seconds between metrics samples
  sampler.window_seconds        - Sliding window for rate aggregates
  server.enabled                - Run the diagnostics server (true/false)
  server.addr                   - Diagnostics listen address
  history.enabled               - Persist the audit trail (true/false)
  logging.level                 - debug, info, warn, or error`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/stagehand/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Println("Current configuration:")
	fmt.Println()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Config file: (none - using defaults)\n")
	}
	fmt.Println()

	fmt.Println("queue:")
	fmt.Printf("  max_buffer_size: %d\n", cfg.Queue.MaxBufferSize)
	fmt.Printf("  concurrency_ceiling: %d\n", cfg.Queue.ConcurrencyCeiling)
	fmt.Printf("  overflow_delay_ms: %d\n", cfg.Queue.OverflowDelayMs)
	fmt.Printf("  assumed_task_duration_ms: %d\n", cfg.Queue.AssumedTaskDurationMs)

	fmt.Println("scaling:")
	fmt.Printf("  min_instances: %d\n", cfg.Scaling.MinInstances)
	fmt.Printf("  max_instances: %d\n", cfg.Scaling.MaxInstances)
	fmt.Printf("  scale_up_threshold: %.1f\n", cfg.Scaling.ScaleUpThreshold)
	fmt.Printf("  scale_down_threshold: %.1f\n", cfg.Scaling.ScaleDownThreshold)
	fmt.Printf("  cooldown_seconds: %d\n", cfg.Scaling.CooldownSeconds)
	fmt.Printf("  queue_length_weight: %.1f\n", cfg.Scaling.QueueLengthWeight)

	fmt.Println("sampler:")
	fmt.Printf("  interval_seconds: %d\n", cfg.Sampler.IntervalSeconds)
	fmt.Printf("  window_seconds: %d\n", cfg.Sampler.WindowSeconds)
	fmt.Printf("  memory_budget_mb: %d\n", cfg.Sampler.MemoryBudgetMB)

	fmt.Println("priority:")
	fmt.Printf("  default_category: %s\n", cfg.Priority.DefaultCategory)
	for _, r := range cfg.Priority.Rules {
		fmt.Printf("  rule: %s -> %s\n", r.Pattern, r.Category)
	}

	fmt.Println("server:")
	fmt.Printf("  enabled: %v\n", cfg.Server.Enabled)
	fmt.Printf("  addr: %s\n", cfg.Server.Addr)
	fmt.Printf("  push_interval_ms: %d\n", cfg.Server.PushIntervalMs)

	fmt.Println("history:")
	fmt.Printf("  enabled: %v\n", cfg.History.Enabled)
	fmt.Printf("  path: %s\n", cfg.History.ResolvePath())

	fmt.Println("logging:")
	fmt.Printf("  enabled: %v\n", cfg.Logging.Enabled)
	fmt.Printf("  level: %s\n", cfg.Logging.Level)

	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	// Validate the key exists
	validKeys := map[string]string{
		"queue.max_buffer_size":          "int",
		"queue.concurrency_ceiling":      "int",
		"queue.overflow_delay_ms":        "int",
		"queue.assumed_task_duration_ms": "int",
		"scaling.min_instances":          "int",
		"scaling.max_instances":          "int",
		"scaling.scale_up_threshold":     "float",
		"scaling.scale_down_threshold":   "float",
		"scaling.cooldown_seconds":       "int",
		"scaling.queue_length_weight":    "float",
		"sampler.interval_seconds":       "int",
		"sampler.window_seconds":         "int",
		"sampler.memory_budget_mb":       "int",
		"priority.default_category":      "string",
		"server.enabled":                 "bool",
		"server.addr":                    "string",
		"server.push_interval_ms":        "int",
		"history.enabled":                "bool",
		"history.path":                   "string",
		"logging.enabled":                "bool",
		"logging.level":                  "string",
	}

	keyType, ok := validKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'stagehand config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue interface{}
	switch keyType {
	case "string":
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = intVal
	case "float":
		floatVal, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected number", key)
		}
		typedValue = floatVal
	}

	// Reject values the service would refuse to start with.
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write to config file
	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Set %s = %v\n", key, typedValue)
	fmt.Printf("Config saved to %s\n", configFile)

	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'stagehand config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Generate a commented config file
	configContent := `# Stagehand Configuration

# Admission queue
queue:
  # Buffered items before new work takes the overflow path
  max_buffer_size: 100
  # Concurrent executions; 0 pauses draining
  concurrency_ceiling: 3
  # Pause before an overflow item runs directly
  overflow_delay_ms: 100
  # Assumed per-item duration for wait estimates
  assumed_task_duration_ms: 500

# Capacity controller
scaling:
  min_instances: 1
  max_instances: 10
  # Utilization percentages with a hysteresis gap between them
  scale_up_threshold: 70
  scale_down_threshold: 30
  # Quiet period after a scaling action
  cooldown_seconds: 60
  # Utilization points added per buffered item
  queue_length_weight: 5

# Metrics sampler
sampler:
  interval_seconds: 5
  window_seconds: 30
  memory_budget_mb: 512

# Request categorization (first matching glob wins)
priority:
  default_category: read-heavy
  rules:
    - pattern: "search.*"
      category: read-heavy
    - pattern: "*.create"
      category: write-heavy
    - pattern: "*.update"
      category: write-heavy
    - pattern: "*.cancel"
      category: write-heavy
    - pattern: "messages.*"
      category: real-time
    - pattern: "availability.*"
      category: real-time

# Diagnostics HTTP server
server:
  enabled: true
  addr: 127.0.0.1:8090
  push_interval_ms: 1000

# SQLite audit trail
history:
  enabled: true
  # path defaults to <config dir>/history.db

# Structured JSON logs
logging:
  enabled: true
  level: info
  max_size_mb: 10
  max_backups: 5
`

	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Created config file at %s\n", configFile)
	fmt.Println("Edit this file to customize stagehand's behavior.")

	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Printf("Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Printf("Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Println("\nSearch paths:")
	fmt.Printf("  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Printf("  2. $HOME/.config/stagehand/config.yaml\n")
	fmt.Printf("  3. ./config.yaml (current directory)\n")
	fmt.Println("\nEnvironment variables: STAGEHAND_* (e.g., STAGEHAND_QUEUE_MAX_BUFFER_SIZE)")

	return nil
}
