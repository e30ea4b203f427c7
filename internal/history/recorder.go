package history

import (
	"sync"

	"github.com/gigbase/stagehand/internal/event"
	"github.com/gigbase/stagehand/internal/logging"
)

// Recorder subscribes to the event bus and appends terminal work events and
// scaling decisions to the store. Failed writes are logged and dropped; the
// audit trail must never stall admission.
type Recorder struct {
	mu     sync.Mutex
	store  *Store
	bus    *event.Bus
	logger *logging.Logger
	subIDs []string
}

// NewRecorder creates a Recorder writing to store. Call Start to begin
// recording.
func NewRecorder(store *Store, bus *event.Bus, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Recorder{
		store:  store,
		bus:    bus,
		logger: logger.WithComponent("history"),
	}
}

// Start subscribes to scaling decisions and terminal work events.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.subIDs) > 0 {
		return
	}

	r.subIDs = []string{
		r.bus.Subscribe("scaling.decision", r.onDecision),
		r.bus.Subscribe("work.completed", r.onCompleted),
		r.bus.Subscribe("work.failed", r.onFailed),
	}
}

// Stop unsubscribes. The store stays open; close it separately.
func (r *Recorder) Stop() {
	r.mu.Lock()
	subIDs := r.subIDs
	r.subIDs = nil
	r.mu.Unlock()

	for _, id := range subIDs {
		r.bus.Unsubscribe(id)
	}
}

func (r *Recorder) onDecision(e event.Event) {
	de, ok := e.(event.ScalingDecisionEvent)
	if !ok {
		return
	}
	rec := &DecisionRecord{
		Action:      de.Action,
		Delta:       de.Delta,
		Reason:      de.Reason,
		Utilization: de.Utilization,
		Instances:   de.Instances,
		CreatedAt:   de.Timestamp(),
	}
	if err := r.store.InsertDecision(rec); err != nil {
		r.logger.Warn("failed to record scaling decision", "error", err.Error())
	}
}

func (r *Recorder) onCompleted(e event.Event) {
	we, ok := e.(event.WorkCompletedEvent)
	if !ok {
		return
	}
	rec := &OutcomeRecord{
		ItemID:     we.ItemID,
		OwnerID:    we.OwnerID,
		Category:   we.Category,
		Priority:   we.Priority,
		Status:     "completed",
		Overflowed: we.Overflow,
		WaitMs:     we.WaitTime.Milliseconds(),
		RunMs:      we.RunTime.Milliseconds(),
		CreatedAt:  we.Timestamp(),
	}
	if err := r.store.InsertOutcome(rec); err != nil {
		r.logger.Warn("failed to record work outcome",
			"item_id", we.ItemID, "error", err.Error())
	}
}

func (r *Recorder) onFailed(e event.Event) {
	we, ok := e.(event.WorkFailedEvent)
	if !ok {
		return
	}
	rec := &OutcomeRecord{
		ItemID:     we.ItemID,
		OwnerID:    we.OwnerID,
		Category:   we.Category,
		Priority:   we.Priority,
		Status:     "failed",
		Overflowed: we.Overflow,
		WaitMs:     we.WaitTime.Milliseconds(),
		RunMs:      we.RunTime.Milliseconds(),
		Error:      we.Error,
		CreatedAt:  we.Timestamp(),
	}
	if err := r.store.InsertOutcome(rec); err != nil {
		r.logger.Warn("failed to record work outcome",
			"item_id", we.ItemID, "error", err.Error())
	}
}
