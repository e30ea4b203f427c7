// Package queue implements the admission queue at the heart of Stagehand: a
// bounded priority buffer in front of a concurrency-limited executor.
//
// Submissions never block and are never rejected for load. While the buffer
// has room, items wait their turn and drain in priority order (high before
// normal before low, FIFO within a level) whenever in-flight work is below
// the concurrency ceiling. Once the buffer is full, new items take the
// overflow path: after a short fixed delay they execute directly, bypassing
// both the buffer and the ceiling. Overflow trades scheduling fairness for
// availability, so overflow items also bypass priority ordering.
//
// All buffer, in-flight, and ceiling mutations happen under a single mutex;
// there is no background scheduler goroutine. Draining is driven by the
// events that can create capacity: a submission, a task completion, or a
// ceiling change.
//
// Bus events are published after the mutex is released, from whichever
// goroutine observed the transition, so subscribers must not assume a
// per-item lifecycle order: a fast task's work.completed can arrive before
// its work.submitted. Consumers that aggregate (counters, sliding windows,
// inserts) are unaffected; per-item state machines would need to key on
// item ID and tolerate reordering.
package queue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gigbase/stagehand/internal/errors"
	"github.com/gigbase/stagehand/internal/event"
	"github.com/gigbase/stagehand/internal/logging"
	"github.com/gigbase/stagehand/internal/priority"
)

const (
	// DefaultMaxBufferSize is the buffer capacity used when no option
	// overrides it.
	DefaultMaxBufferSize = 100

	// DefaultConcurrencyCeiling is the initial drain limit used when no
	// option overrides it.
	DefaultConcurrencyCeiling = 4

	// DefaultOverflowDelay is how long an overflow item waits before
	// executing directly.
	DefaultOverflowDelay = 100 * time.Millisecond

	// DefaultAssumedTaskDuration seeds wait estimation until enough real
	// completions have been observed.
	DefaultAssumedTaskDuration = 500 * time.Millisecond
)

// estimateWarmup is how many completions must be observed before wait
// estimation trusts the measured average over the assumed duration.
const estimateWarmup = 5

// ewmaAlpha weights the most recent run time in the moving average.
const ewmaAlpha = 0.2

// AdmissionQueue admits work items, buffers them by priority, and executes
// them subject to the concurrency ceiling. All methods are safe for
// concurrent use.
type AdmissionQueue struct {
	mu       sync.Mutex
	buffer   []*WorkItem
	inFlight map[string]*WorkItem
	overflow map[string]*WorkItem
	ceiling  int
	closed   bool

	maxBufferSize int
	overflowDelay time.Duration

	nextID        uint64
	overflowTotal int

	assumedDuration time.Duration
	avgRunTime      time.Duration
	completions     uint64

	drained       chan struct{}
	drainedClosed bool

	bus    *event.Bus
	logger *logging.Logger
}

// Option configures an AdmissionQueue.
type Option func(*AdmissionQueue)

// WithMaxBufferSize sets the buffer capacity. Values below 1 are ignored.
func WithMaxBufferSize(n int) Option {
	return func(q *AdmissionQueue) {
		if n > 0 {
			q.maxBufferSize = n
		}
	}
}

// WithConcurrencyCeiling sets the initial drain limit. Zero is valid and
// pauses draining until the ceiling is raised. Negative values are ignored.
func WithConcurrencyCeiling(n int) Option {
	return func(q *AdmissionQueue) {
		if n >= 0 {
			q.ceiling = n
		}
	}
}

// WithOverflowDelay sets the pause before an overflow item executes. Zero
// disables the pause. Negative values are ignored.
func WithOverflowDelay(d time.Duration) Option {
	return func(q *AdmissionQueue) {
		if d >= 0 {
			q.overflowDelay = d
		}
	}
}

// WithAssumedTaskDuration sets the per-item duration wait estimation assumes
// before enough completions have been observed.
func WithAssumedTaskDuration(d time.Duration) Option {
	return func(q *AdmissionQueue) {
		if d > 0 {
			q.assumedDuration = d
		}
	}
}

// WithBus sets the event bus the queue publishes lifecycle events on.
func WithBus(bus *event.Bus) Option {
	return func(q *AdmissionQueue) {
		q.bus = bus
	}
}

// WithLogger sets the logger. The queue logs under the "queue" component.
func WithLogger(logger *logging.Logger) Option {
	return func(q *AdmissionQueue) {
		q.logger = logger
	}
}

// New creates an admission queue with the given options applied over the
// defaults. A queue without WithBus publishes into a private bus with no
// subscribers.
func New(opts ...Option) *AdmissionQueue {
	q := &AdmissionQueue{
		inFlight:        make(map[string]*WorkItem),
		overflow:        make(map[string]*WorkItem),
		maxBufferSize:   DefaultMaxBufferSize,
		ceiling:         DefaultConcurrencyCeiling,
		overflowDelay:   DefaultOverflowDelay,
		assumedDuration: DefaultAssumedTaskDuration,
		drained:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.bus == nil {
		q.bus = event.NewBus()
	}
	if q.logger == nil {
		q.logger = logging.NopLogger()
	}
	q.logger = q.logger.WithComponent("queue")
	return q
}

// Submit admits a work item and returns its future. It never blocks on
// load: while the buffer has room the item is buffered at its priority, and
// once the buffer is full the item executes on the overflow path after the
// configured delay instead of being rejected.
//
// Submit returns an error only when the item is unusable (nil item or nil
// task) or after Shutdown has been requested, in which case the error
// matches errors.ErrQueueClosed.
func (q *AdmissionQueue) Submit(item *WorkItem) (*Future, error) {
	if item == nil {
		return nil, errors.NewQueueError("submit rejected", errors.ErrInvalidInput)
	}
	if item.Task == nil {
		return nil, errors.NewQueueError("submit rejected", errors.ErrNilTask)
	}

	events := make([]event.Event, 0, 3)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, errors.NewQueueError("submit rejected", errors.ErrQueueClosed).
			WithOwnerID(item.OwnerID)
	}

	q.nextID++
	item.ID = fmt.Sprintf("wi-%06d", q.nextID)
	if item.OwnerID == "" {
		item.OwnerID = AnonymousOwner
	}
	if !item.Priority.Valid() {
		item.Priority = priority.LevelNormal
	}
	item.SubmittedAt = time.Now()
	item.future = newFuture()
	fut := item.future

	if len(q.buffer) >= q.maxBufferSize {
		item.Status = StatusOverflowed
		item.Overflow = true
		q.overflowTotal++
		q.overflow[item.ID] = item
		events = append(events,
			event.NewWorkSubmittedEvent(item.ID, item.OwnerID, item.Category, item.Priority.String(), len(q.buffer)),
			event.NewWorkOverflowedEvent(item.ID, item.OwnerID, item.Priority.String(), len(q.buffer), q.overflowDelay),
		)
		delay := q.overflowDelay
		q.mu.Unlock()

		q.logger.Warn("buffer full, work item taking overflow path",
			"item_id", item.ID, "owner_id", item.OwnerID, "delay", delay.String())
		go q.runOverflow(item, delay)
		q.publish(events...)
		return fut, nil
	}

	item.Status = StatusQueued
	q.buffer = append(q.buffer, item)
	events = append(events,
		event.NewWorkSubmittedEvent(item.ID, item.OwnerID, item.Category, item.Priority.String(), len(q.buffer)),
		event.NewQueueDepthChangedEvent(len(q.buffer), len(q.inFlight)),
	)
	q.drainLocked(&events)
	q.mu.Unlock()

	q.logger.Debug("work item admitted",
		"item_id", item.ID, "owner_id", item.OwnerID, "priority", item.Priority.String())
	q.publish(events...)
	return fut, nil
}

// drainLocked starts buffered items while in-flight work is below the
// ceiling. A ceiling of zero leaves the buffer untouched. Caller must hold
// q.mu; started events are appended for the caller to publish after
// unlocking.
func (q *AdmissionQueue) drainLocked(events *[]event.Event) {
	for q.ceiling > 0 && len(q.inFlight) < q.ceiling && len(q.buffer) > 0 {
		item := q.popLocked()
		now := time.Now()
		item.Status = StatusExecuting
		item.StartedAt = &now
		q.inFlight[item.ID] = item
		*events = append(*events,
			event.NewWorkStartedEvent(item.ID, item.Priority.String(), now.Sub(item.SubmittedAt), false),
			event.NewQueueDepthChangedEvent(len(q.buffer), len(q.inFlight)),
		)
		go q.run(item)
	}
}

// popLocked removes and returns the highest-priority item. The buffer is
// kept in submission order, so the first item with the best rank is also
// the earliest one at that rank.
func (q *AdmissionQueue) popLocked() *WorkItem {
	best := 0
	for i := 1; i < len(q.buffer); i++ {
		if q.buffer[i].Priority.Rank() < q.buffer[best].Priority.Rank() {
			best = i
		}
	}
	item := q.buffer[best]
	q.buffer = append(q.buffer[:best], q.buffer[best+1:]...)
	return item
}

// run executes a drained item and records its completion.
func (q *AdmissionQueue) run(item *WorkItem) {
	result, err := q.execute(item)
	q.finish(item, result, err)
}

// runOverflow waits out the overflow delay, then executes the item directly.
// Overflow items never count against the ceiling.
func (q *AdmissionQueue) runOverflow(item *WorkItem, delay time.Duration) {
	if delay > 0 {
		time.Sleep(delay)
	}
	now := time.Now()
	q.mu.Lock()
	item.StartedAt = &now
	q.mu.Unlock()

	q.publish(event.NewWorkStartedEvent(item.ID, item.Priority.String(), now.Sub(item.SubmittedAt), true))
	result, err := q.execute(item)
	q.finish(item, result, err)
}

// execute runs the task with panic recovery. A panicking task surfaces as a
// failed item; the queue itself keeps running.
func (q *AdmissionQueue) execute(item *WorkItem) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("task panicked",
				"item_id", item.ID, "owner_id", item.OwnerID,
				"panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			result = nil
			err = errors.NewTaskError(fmt.Sprintf("task panicked: %v", r), nil).
				WithWorkItemID(item.ID).
				WithCategory(item.Category).
				WithPanicked(true)
		}
	}()
	return item.Task()
}

// finish moves an item to its terminal state, resolves its future, and
// drains any capacity the completion freed up.
func (q *AdmissionQueue) finish(item *WorkItem, result any, err error) {
	now := time.Now()
	events := make([]event.Event, 0, 3)

	q.mu.Lock()
	item.CompletedAt = &now
	if err != nil {
		item.Status = StatusFailed
	} else {
		item.Status = StatusCompleted
	}

	var waitTime, runTime time.Duration
	if item.StartedAt != nil {
		waitTime = item.StartedAt.Sub(item.SubmittedAt)
		runTime = now.Sub(*item.StartedAt)
	}
	q.observeRunLocked(runTime)

	if item.Overflow {
		delete(q.overflow, item.ID)
	} else {
		delete(q.inFlight, item.ID)
	}

	if err != nil {
		events = append(events, event.NewWorkFailedEvent(
			item.ID, item.OwnerID, item.Category, item.Priority.String(),
			item.Overflow, waitTime, runTime,
			err.Error(), errors.Is(err, errors.ErrTaskPanicked)))
	} else {
		events = append(events, event.NewWorkCompletedEvent(
			item.ID, item.OwnerID, item.Category, item.Priority.String(),
			item.Overflow, waitTime, runTime))
	}
	if !item.Overflow {
		events = append(events, event.NewQueueDepthChangedEvent(len(q.buffer), len(q.inFlight)))
		q.drainLocked(&events)
	}
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn("work item failed",
			"item_id", item.ID, "owner_id", item.OwnerID, "error", err.Error())
	}
	q.publish(events...)
	item.future.resolve(result, err)

	// Signal only after the item's events are delivered and its future is
	// resolved, so Shutdown returning means every admitted item is fully
	// accounted for.
	q.mu.Lock()
	q.maybeSignalDrainedLocked()
	q.mu.Unlock()
}

// observeRunLocked folds an observed run time into the moving average that
// refines wait estimation. Caller must hold q.mu.
func (q *AdmissionQueue) observeRunLocked(runTime time.Duration) {
	if runTime <= 0 {
		return
	}
	q.completions++
	if q.avgRunTime == 0 {
		q.avgRunTime = runTime
		return
	}
	q.avgRunTime = time.Duration(ewmaAlpha*float64(runTime) + (1-ewmaAlpha)*float64(q.avgRunTime))
}

// Stats returns a read-only snapshot of the queue's current state.
func (q *AdmissionQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := QueueStats{
		QueueLength:        len(q.buffer),
		ProcessingCount:    len(q.inFlight),
		ConcurrencyCeiling: q.ceiling,
		OverflowCount:      q.overflowTotal,
	}
	switch {
	case q.ceiling > 0:
		stats.UtilizationPercent = float64(len(q.inFlight)) / float64(q.ceiling) * 100
	case len(q.buffer) > 0 || len(q.inFlight) > 0:
		stats.UtilizationPercent = 100
	}
	return stats
}

// EstimateWait predicts how long a new submission at the given priority
// would wait before starting: the number of buffered items at the same or a
// more urgent rank, multiplied by the expected per-item duration. The
// expected duration is the configured assumption until enough completions
// have been observed, then the measured moving average.
//
// The estimate is deliberately coarse. It ignores in-flight work, the
// ceiling, and future arrivals, and overflow items skip the wait entirely.
func (q *AdmissionQueue) EstimateWait(level priority.Level) time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	rank := level.Rank()
	ahead := 0
	for _, item := range q.buffer {
		if item.Priority.Rank() <= rank {
			ahead++
		}
	}

	perItem := q.assumedDuration
	if q.completions >= estimateWarmup && q.avgRunTime > 0 {
		perItem = q.avgRunTime
	}
	return time.Duration(ahead) * perItem
}

// SetConcurrencyCeiling changes the drain limit. Raising it drains
// immediately; lowering it never preempts running work, the queue just
// stops draining until completions bring in-flight work back under the new
// ceiling. Zero pauses draining. Negative values clamp to zero.
func (q *AdmissionQueue) SetConcurrencyCeiling(n int) {
	if n < 0 {
		n = 0
	}

	events := make([]event.Event, 0, 2)
	q.mu.Lock()
	if n == q.ceiling {
		q.mu.Unlock()
		return
	}
	previous := q.ceiling
	q.ceiling = n
	events = append(events, event.NewCeilingChangedEvent(previous, n))
	q.drainLocked(&events)
	q.mu.Unlock()

	q.logger.Info("concurrency ceiling changed", "previous", previous, "current", n)
	q.publish(events...)
}

// Item returns a snapshot of an active work item by ID. Terminal items are
// not retained; their outcome lives in the future, the event stream, and
// the history store.
func (q *AdmissionQueue) Item(id string) (WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var found *WorkItem
	if item, ok := q.inFlight[id]; ok {
		found = item
	} else if item, ok := q.overflow[id]; ok {
		found = item
	} else {
		for _, item := range q.buffer {
			if item.ID == id {
				found = item
				break
			}
		}
	}
	if found == nil {
		return WorkItem{}, false
	}
	snapshot := *found
	snapshot.Task = nil
	snapshot.future = nil
	return snapshot, true
}

// Closed reports whether Shutdown has been requested.
func (q *AdmissionQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Shutdown stops admissions and waits for all outstanding work to finish:
// buffered items still drain and execute, in-flight tasks run to
// completion, and overflow items wait out their delay and run. Submissions
// after Shutdown fail with errors.ErrQueueClosed.
//
// Shutdown returns once the queue is fully drained or ctx expires,
// whichever comes first. A nil return means every admitted item has
// resolved its future and published its terminal event, so subscribers can
// be torn down safely afterwards. It is safe to call more than once.
func (q *AdmissionQueue) Shutdown(ctx context.Context) error {
	events := make([]event.Event, 0, 1)

	q.mu.Lock()
	if !q.closed {
		q.closed = true
		events = append(events, event.NewQueueClosedEvent(len(q.buffer), len(q.inFlight)))
		q.maybeSignalDrainedLocked()
	}
	buffered := len(q.buffer)
	inFlight := len(q.inFlight)
	overflowing := len(q.overflow)
	done := q.drained
	q.mu.Unlock()

	if len(events) > 0 {
		q.logger.Info("queue closed, draining",
			"buffered", buffered, "in_flight", inFlight, "overflow", overflowing)
		q.publish(events...)
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.NewQueueError("shutdown aborted before drain finished", ctx.Err())
	}
}

// maybeSignalDrainedLocked releases Shutdown waiters once the queue is
// closed and no work remains anywhere. Caller must hold q.mu.
func (q *AdmissionQueue) maybeSignalDrainedLocked() {
	if q.drainedClosed {
		return
	}
	if q.closed && len(q.buffer) == 0 && len(q.inFlight) == 0 && len(q.overflow) == 0 {
		q.drainedClosed = true
		close(q.drained)
	}
}

// publish sends events to the bus outside the queue mutex, so a subscriber
// is free to call back into the queue.
func (q *AdmissionQueue) publish(events ...event.Event) {
	for _, e := range events {
		q.bus.Publish(e)
	}
}
