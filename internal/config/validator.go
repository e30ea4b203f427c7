package config

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "queue.max_buffer_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidCategories returns the built-in request categories. Rules may map
// operations to caller-defined categories too; these are the ones the
// scorer weights.
func ValidCategories() []string {
	return []string{"read-heavy", "write-heavy", "real-time"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Queue config
	errors = append(errors, c.validateQueue()...)

	// Validate Scaling config
	errors = append(errors, c.validateScaling()...)

	// Validate Sampler config
	errors = append(errors, c.validateSampler()...)

	// Validate Priority config
	errors = append(errors, c.validatePriority()...)

	// Validate Server config
	errors = append(errors, c.validateServer()...)

	// Validate Logging config
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateQueue validates the QueueConfig
func (c *Config) validateQueue() []ValidationError {
	var errors []ValidationError

	if c.Queue.MaxBufferSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "queue.max_buffer_size",
			Value:   c.Queue.MaxBufferSize,
			Message: "must be at least 1",
		})
	}

	if c.Queue.ConcurrencyCeiling < 0 {
		errors = append(errors, ValidationError{
			Field:   "queue.concurrency_ceiling",
			Value:   c.Queue.ConcurrencyCeiling,
			Message: "must be non-negative (0 pauses draining)",
		})
	}

	if c.Queue.OverflowDelayMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "queue.overflow_delay_ms",
			Value:   c.Queue.OverflowDelayMs,
			Message: "must be non-negative",
		})
	}

	if c.Queue.AssumedTaskDurationMs < 1 {
		errors = append(errors, ValidationError{
			Field:   "queue.assumed_task_duration_ms",
			Value:   c.Queue.AssumedTaskDurationMs,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateScaling validates the ScalingConfig
func (c *Config) validateScaling() []ValidationError {
	var errors []ValidationError

	if c.Scaling.MinInstances < 0 {
		errors = append(errors, ValidationError{
			Field:   "scaling.min_instances",
			Value:   c.Scaling.MinInstances,
			Message: "must be non-negative",
		})
	}

	if c.Scaling.MaxInstances < c.Scaling.MinInstances {
		errors = append(errors, ValidationError{
			Field:   "scaling.max_instances",
			Value:   c.Scaling.MaxInstances,
			Message: fmt.Sprintf("must be at least min_instances (%d)", c.Scaling.MinInstances),
		})
	}

	// The gap between the two thresholds is the hysteresis that prevents
	// flapping at a single boundary value.
	if c.Scaling.ScaleDownThreshold >= c.Scaling.ScaleUpThreshold {
		errors = append(errors, ValidationError{
			Field:   "scaling.scale_down_threshold",
			Value:   c.Scaling.ScaleDownThreshold,
			Message: fmt.Sprintf("must be below scale_up_threshold (%.1f)", c.Scaling.ScaleUpThreshold),
		})
	}

	if c.Scaling.CooldownSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "scaling.cooldown_seconds",
			Value:   c.Scaling.CooldownSeconds,
			Message: "must be non-negative",
		})
	}

	if c.Scaling.QueueLengthWeight < 0 {
		errors = append(errors, ValidationError{
			Field:   "scaling.queue_length_weight",
			Value:   c.Scaling.QueueLengthWeight,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateSampler validates the SamplerConfig
func (c *Config) validateSampler() []ValidationError {
	var errors []ValidationError

	if c.Sampler.IntervalSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "sampler.interval_seconds",
			Value:   c.Sampler.IntervalSeconds,
			Message: "must be at least 1",
		})
	}

	if c.Sampler.WindowSeconds < c.Sampler.IntervalSeconds {
		errors = append(errors, ValidationError{
			Field:   "sampler.window_seconds",
			Value:   c.Sampler.WindowSeconds,
			Message: fmt.Sprintf("must be at least interval_seconds (%d)", c.Sampler.IntervalSeconds),
		})
	}

	if c.Sampler.MemoryBudgetMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "sampler.memory_budget_mb",
			Value:   c.Sampler.MemoryBudgetMB,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validatePriority validates the PriorityConfig
func (c *Config) validatePriority() []ValidationError {
	var errors []ValidationError

	if c.Priority.DefaultCategory == "" {
		errors = append(errors, ValidationError{
			Field:   "priority.default_category",
			Value:   c.Priority.DefaultCategory,
			Message: "must not be empty",
		})
	}

	for i, rule := range c.Priority.Rules {
		if rule.Pattern == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("priority.rules[%d].pattern", i),
				Value:   rule.Pattern,
				Message: "must not be empty",
			})
			continue
		}
		if _, err := glob.Compile(rule.Pattern); err != nil {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("priority.rules[%d].pattern", i),
				Value:   rule.Pattern,
				Message: fmt.Sprintf("invalid glob pattern: %v", err),
			})
		}
		if rule.Category == "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("priority.rules[%d].category", i),
				Value:   rule.Category,
				Message: "must not be empty",
			})
		}
	}

	return errors
}

// validateServer validates the ServerConfig
func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.Enabled {
		if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
			errors = append(errors, ValidationError{
				Field:   "server.addr",
				Value:   c.Server.Addr,
				Message: "must be a host:port address",
			})
		}
	}

	const minPushInterval = 100 // milliseconds
	if c.Server.PushIntervalMs < minPushInterval {
		errors = append(errors, ValidationError{
			Field:   "server.push_interval_ms",
			Value:   c.Server.PushIntervalMs,
			Message: fmt.Sprintf("must be at least %dms", minPushInterval),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative (0 disables rotation)",
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
