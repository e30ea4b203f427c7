// Package event provides a pub-sub event bus for decoupled inter-component
// communication in Stagehand.
//
// This package enables loose coupling between the admission queue, capacity
// autopilot, metrics sampler, and the recorders that observe them (history,
// Prometheus, websocket hub) by allowing them to communicate through events
// rather than direct method calls. Components can publish events without
// knowing who will receive them, and subscribe to events without knowing who
// will produce them.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// The package defines several categories of events:
//
// Work Lifecycle:
//   - [WorkSubmittedEvent]: Emitted when a work item is admitted to the queue
//   - [WorkStartedEvent]: Emitted when a work item begins execution
//   - [WorkCompletedEvent]: Emitted when a work item's task succeeds
//   - [WorkFailedEvent]: Emitted when a work item's task errors or panics
//   - [WorkOverflowedEvent]: Emitted when a full buffer routes an item to the overflow path
//
// Queue State:
//   - [QueueDepthChangedEvent]: Emitted when buffered or in-flight counts change
//   - [CeilingChangedEvent]: Emitted when the concurrency ceiling is adjusted
//   - [QueueClosedEvent]: Emitted when shutdown begins
//
// Scaling:
//   - [ScalingDecisionEvent]: Emitted when the autopilot applies a scale-up or scale-down; holds are silent
//
// Metrics:
//   - [MetricsSampledEvent]: Emitted when the sampler produces a snapshot
//   - [MetricsDroppedEvent]: Emitted when a sample cycle fails and is skipped
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Multiple goroutines can publish
// and subscribe concurrently. Handlers are called synchronously and protected
// against panics - a panicking handler will not prevent other handlers from
// being called.
//
// # Basic Usage
//
//	bus := event.NewBus()
//
//	// Subscribe to specific event types
//	bus.Subscribe("work.completed", func(e event.Event) {
//	    completed := e.(event.WorkCompletedEvent)
//	    log.Printf("Item %s finished in %v", completed.ItemID, completed.RunTime)
//	})
//
//	// Subscribe to all events (useful for logging)
//	bus.SubscribeAll(func(e event.Event) {
//	    log.Printf("Event: %s at %v", e.EventType(), e.Timestamp())
//	})
//
//	// Publish events
//	bus.Publish(event.NewWorkSubmittedEvent("wi-1", "acct-9", "read-heavy", "high", 4))
//
//	// Unsubscribe when done
//	id := bus.Subscribe("scaling.decision", handler)
//	bus.Unsubscribe(id)
//
// # Event Type Naming Convention
//
// Event types follow the pattern "category.action":
//   - work.submitted, work.started, work.completed, work.failed, work.overflowed
//   - queue.depth_changed, queue.ceiling_changed, queue.closed
//   - scaling.decision
//   - metrics.sampled, metrics.dropped
package event
