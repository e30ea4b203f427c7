package scaling

import (
	"math"
	"time"
)

// Action represents a scaling decision outcome.
type Action string

const (
	// ActionScaleUp indicates the instance count should grow by one step.
	ActionScaleUp Action = "scale_up"

	// ActionScaleDown indicates the instance count should shrink by one step.
	ActionScaleDown Action = "scale_down"

	// ActionHold indicates no change: utilization is within thresholds, a
	// cooldown is active, a bound was hit, or metrics were unusable.
	ActionHold Action = "hold"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// Decision describes the outcome of one evaluation.
type Decision struct {
	Action      Action  `json:"action"`
	Delta       int     `json:"delta"`
	Reason      string  `json:"reason"`
	Utilization float64 `json:"utilization"`
}

// Metrics is one snapshot of system load, typically produced by the sampler
// on a fixed interval. Percent fields are 0 to 100.
type Metrics struct {
	CPUUsage            float64       `json:"cpu_usage"`
	MemoryUsage         float64       `json:"memory_usage"`
	RequestsPerSecond   float64       `json:"requests_per_second"`
	AverageResponseTime time.Duration `json:"average_response_time"`
	ErrorRate           float64       `json:"error_rate"`
	QueueLength         int           `json:"queue_length"`
}

// Complete reports whether the snapshot carries enough signal to evaluate.
// A producer that cannot read a gauge marks it with a negative value, so
// negative or NaN cpu/memory and a negative queue length all make the
// snapshot partial. Partial snapshots hold the controller's state instead
// of feeding the heuristic garbage.
func (m *Metrics) Complete() bool {
	if m == nil {
		return false
	}
	if math.IsNaN(m.CPUUsage) || math.IsNaN(m.MemoryUsage) {
		return false
	}
	return m.CPUUsage >= 0 && m.MemoryUsage >= 0 && m.QueueLength >= 0
}
