package queue

import (
	"time"

	"github.com/gigbase/stagehand/internal/priority"
)

// Status represents the current state of a work item.
type Status string

const (
	// StatusQueued indicates the item is buffered and waiting to be drained.
	StatusQueued Status = "queued"

	// StatusExecuting indicates the item's task is actively running within
	// the concurrency ceiling.
	StatusExecuting Status = "executing"

	// StatusOverflowed indicates the item arrived while the buffer was full
	// and is running (or waiting out its delay) on the overflow path.
	StatusOverflowed Status = "overflowed"

	// StatusCompleted indicates the task finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the task returned an error or panicked.
	StatusFailed Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if this status represents a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is the unit of work executed by the queue. It runs exactly once per
// admitted item, on a goroutine owned by the queue.
type Task func() (any, error)

// AnonymousOwner is the owner recorded for submissions that carry no owner.
const AnonymousOwner = "anonymous"

// WorkItem describes a single admitted request. Callers fill in OwnerID,
// Category, Priority, and Task before Submit; the queue assigns ID,
// SubmittedAt, and all lifecycle fields and owns the item from that point
// on. Read the assigned ID right after Submit returns; everything else
// should be observed through Item, Stats, or bus events.
type WorkItem struct {
	// ID is assigned by the queue on submit. Any caller-provided value is
	// replaced.
	ID string `json:"id"`

	// OwnerID identifies the account the work runs for. Empty values are
	// replaced with AnonymousOwner.
	OwnerID string `json:"owner_id"`

	// Category is the workload category used for priority scoring, for
	// example "read-heavy" or "real-time".
	Category string `json:"category,omitempty"`

	// Priority determines drain order. Invalid or empty values fall back
	// to priority.LevelNormal.
	Priority priority.Level `json:"priority"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// Overflow is true when the item bypassed the buffer because it was
	// full at submission time.
	Overflow bool `json:"overflow,omitempty"`

	// SubmittedAt is when the queue admitted the item.
	SubmittedAt time.Time `json:"submitted_at"`

	// StartedAt is when the task began executing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the item reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Task is the work to run. Never serialized.
	Task Task `json:"-"`

	future *Future
}

// QueueStats is a read-only snapshot of the queue's current state.
type QueueStats struct {
	// QueueLength is the number of buffered items waiting to drain.
	QueueLength int `json:"queue_length"`

	// ProcessingCount is the number of items executing within the ceiling.
	// Overflow items are excluded.
	ProcessingCount int `json:"processing_count"`

	// ConcurrencyCeiling is the current drain limit. Zero pauses draining.
	ConcurrencyCeiling int `json:"concurrency_ceiling"`

	// OverflowCount is the total number of items that have taken the
	// overflow path over the queue's lifetime.
	OverflowCount int `json:"overflow_count"`

	// UtilizationPercent is ProcessingCount relative to the ceiling. With a
	// ceiling of zero it reports 100 when any work is buffered or running
	// and 0 otherwise.
	UtilizationPercent float64 `json:"utilization_percent"`
}
