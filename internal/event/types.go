// Package event defines event types for decoupling components in Stagehand.
// These events enable communication between the queue, autopilot, recorders,
// and diagnostics server without requiring direct dependencies.
package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "work.submitted", "scaling.decision")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Work Lifecycle Events
// -----------------------------------------------------------------------------

// WorkSubmittedEvent is emitted when a work item is admitted to the queue.
type WorkSubmittedEvent struct {
	baseEvent
	ItemID      string // Unique identifier for the work item
	OwnerID     string // Account that submitted the item
	Category    string // Request category (e.g., "read-heavy", "real-time")
	Priority    string // Priority level name; mirrors priority.Level for decoupling
	QueueLength int    // Buffered items after this admission
}

// NewWorkSubmittedEvent creates a WorkSubmittedEvent.
func NewWorkSubmittedEvent(itemID, ownerID, category, priority string, queueLength int) WorkSubmittedEvent {
	return WorkSubmittedEvent{
		baseEvent:   newBaseEvent("work.submitted"),
		ItemID:      itemID,
		OwnerID:     ownerID,
		Category:    category,
		Priority:    priority,
		QueueLength: queueLength,
	}
}

// WorkStartedEvent is emitted when a work item begins execution.
type WorkStartedEvent struct {
	baseEvent
	ItemID   string        // Work item that started
	Priority string        // Priority level name
	WaitTime time.Duration // Time spent buffered before dispatch
	Overflow bool          // True when the item runs on the overflow path
}

// NewWorkStartedEvent creates a WorkStartedEvent.
func NewWorkStartedEvent(itemID, priority string, waitTime time.Duration, overflow bool) WorkStartedEvent {
	return WorkStartedEvent{
		baseEvent: newBaseEvent("work.started"),
		ItemID:    itemID,
		Priority:  priority,
		WaitTime:  waitTime,
		Overflow:  overflow,
	}
}

// WorkCompletedEvent is emitted when a work item's task returns without error.
type WorkCompletedEvent struct {
	baseEvent
	ItemID   string        // Work item that completed
	OwnerID  string        // Account that submitted the item
	Category string        // Request category
	Priority string        // Priority level name
	Overflow bool          // True when the item ran on the overflow path
	WaitTime time.Duration // Time spent buffered before dispatch
	RunTime  time.Duration // Task execution time
}

// NewWorkCompletedEvent creates a WorkCompletedEvent.
func NewWorkCompletedEvent(itemID, ownerID, category, priority string, overflow bool, waitTime, runTime time.Duration) WorkCompletedEvent {
	return WorkCompletedEvent{
		baseEvent: newBaseEvent("work.completed"),
		ItemID:    itemID,
		OwnerID:   ownerID,
		Category:  category,
		Priority:  priority,
		Overflow:  overflow,
		WaitTime:  waitTime,
		RunTime:   runTime,
	}
}

// TotalTime returns the item's full admission-to-completion latency.
func (e WorkCompletedEvent) TotalTime() time.Duration {
	return e.WaitTime + e.RunTime
}

// WorkFailedEvent is emitted when a work item's task returns an error or panics.
type WorkFailedEvent struct {
	baseEvent
	ItemID   string        // Work item that failed
	OwnerID  string        // Account that submitted the item
	Category string        // Request category
	Priority string        // Priority level name
	Overflow bool          // True when the item ran on the overflow path
	WaitTime time.Duration // Time spent buffered before dispatch
	RunTime  time.Duration // Task execution time before the failure
	Error    string        // Failure message
	Panicked bool          // True when the task panicked rather than returned an error
}

// NewWorkFailedEvent creates a WorkFailedEvent.
func NewWorkFailedEvent(itemID, ownerID, category, priority string, overflow bool, waitTime, runTime time.Duration, errMsg string, panicked bool) WorkFailedEvent {
	return WorkFailedEvent{
		baseEvent: newBaseEvent("work.failed"),
		ItemID:    itemID,
		OwnerID:   ownerID,
		Category:  category,
		Priority:  priority,
		Overflow:  overflow,
		WaitTime:  waitTime,
		RunTime:   runTime,
		Error:     errMsg,
		Panicked:  panicked,
	}
}

// WorkOverflowedEvent is emitted when a full buffer routes a work item to the
// overflow path. The item still runs; it bypasses the buffer and the ceiling.
type WorkOverflowedEvent struct {
	baseEvent
	ItemID     string        // Work item that overflowed
	OwnerID    string        // Account that submitted the item
	Priority   string        // Priority level name
	BufferSize int           // Buffer capacity that was exhausted
	Delay      time.Duration // Pause before direct execution
}

// NewWorkOverflowedEvent creates a WorkOverflowedEvent.
func NewWorkOverflowedEvent(itemID, ownerID, priority string, bufferSize int, delay time.Duration) WorkOverflowedEvent {
	return WorkOverflowedEvent{
		baseEvent:  newBaseEvent("work.overflowed"),
		ItemID:     itemID,
		OwnerID:    ownerID,
		Priority:   priority,
		BufferSize: bufferSize,
		Delay:      delay,
	}
}

// -----------------------------------------------------------------------------
// Queue State Events
// -----------------------------------------------------------------------------

// QueueDepthChangedEvent is emitted when the buffered or in-flight count changes.
type QueueDepthChangedEvent struct {
	baseEvent
	Depth    int // Items currently buffered
	InFlight int // Items currently executing under the ceiling
}

// NewQueueDepthChangedEvent creates a QueueDepthChangedEvent.
func NewQueueDepthChangedEvent(depth, inFlight int) QueueDepthChangedEvent {
	return QueueDepthChangedEvent{
		baseEvent: newBaseEvent("queue.depth_changed"),
		Depth:     depth,
		InFlight:  inFlight,
	}
}

// CeilingChangedEvent is emitted when the concurrency ceiling is adjusted.
type CeilingChangedEvent struct {
	baseEvent
	Previous int // Ceiling before the change
	Current  int // Ceiling after the change; 0 pauses draining
}

// NewCeilingChangedEvent creates a CeilingChangedEvent.
func NewCeilingChangedEvent(previous, current int) CeilingChangedEvent {
	return CeilingChangedEvent{
		baseEvent: newBaseEvent("queue.ceiling_changed"),
		Previous:  previous,
		Current:   current,
	}
}

// QueueClosedEvent is emitted when shutdown begins and the queue stops
// accepting new work.
type QueueClosedEvent struct {
	baseEvent
	Buffered int // Items still buffered when shutdown began
	InFlight int // Items still executing when shutdown began
}

// NewQueueClosedEvent creates a QueueClosedEvent.
func NewQueueClosedEvent(buffered, inFlight int) QueueClosedEvent {
	return QueueClosedEvent{
		baseEvent: newBaseEvent("queue.closed"),
		Buffered:  buffered,
		InFlight:  inFlight,
	}
}

// -----------------------------------------------------------------------------
// Scaling Events
// -----------------------------------------------------------------------------

// ScalingDecisionEvent is emitted when the autopilot applies a scale-up or
// scale-down to the queue's ceiling. Holds are not published.
type ScalingDecisionEvent struct {
	baseEvent
	Action      string  // "scale_up" or "scale_down"; mirrors scaling.Decision for decoupling
	Delta       int     // Instance count change (-1 or +1)
	Instances   int     // Instance count after applying the decision
	Utilization float64 // Composite utilization that drove the decision
	Reason      string  // Human-readable explanation
}

// NewScalingDecisionEvent creates a ScalingDecisionEvent.
func NewScalingDecisionEvent(action string, delta, instances int, utilization float64, reason string) ScalingDecisionEvent {
	return ScalingDecisionEvent{
		baseEvent:   newBaseEvent("scaling.decision"),
		Action:      action,
		Delta:       delta,
		Instances:   instances,
		Utilization: utilization,
		Reason:      reason,
	}
}

// -----------------------------------------------------------------------------
// Metrics Events
// -----------------------------------------------------------------------------

// MetricsSampledEvent is emitted when the sampler produces a metrics snapshot.
type MetricsSampledEvent struct {
	baseEvent
	CPUUsage            float64       // CPU utilization percent (0-100)
	MemoryUsage         float64       // Memory utilization percent (0-100)
	RequestsPerSecond   float64       // Admission rate over the sample window
	AverageResponseTime time.Duration // Mean task latency over the sample window
	ErrorRate           float64       // Failed fraction of completions (0-1)
	QueueLength         int           // Buffered items at sample time
}

// NewMetricsSampledEvent creates a MetricsSampledEvent.
func NewMetricsSampledEvent(cpuUsage, memoryUsage, requestsPerSecond float64, averageResponseTime time.Duration, errorRate float64, queueLength int) MetricsSampledEvent {
	return MetricsSampledEvent{
		baseEvent:           newBaseEvent("metrics.sampled"),
		CPUUsage:            cpuUsage,
		MemoryUsage:         memoryUsage,
		RequestsPerSecond:   requestsPerSecond,
		AverageResponseTime: averageResponseTime,
		ErrorRate:           errorRate,
		QueueLength:         queueLength,
	}
}

// MetricsDroppedEvent is emitted when a sample cycle fails and is skipped.
type MetricsDroppedEvent struct {
	baseEvent
	Reason string // Why the sample was dropped
}

// NewMetricsDroppedEvent creates a MetricsDroppedEvent.
func NewMetricsDroppedEvent(reason string) MetricsDroppedEvent {
	return MetricsDroppedEvent{
		baseEvent: newBaseEvent("metrics.dropped"),
		Reason:    reason,
	}
}
