package history

import (
	"path/filepath"
	"testing"
	"time"

	stderrors "errors"

	"github.com/gigbase/stagehand/internal/errors"
	"github.com/gigbase/stagehand/internal/event"
	"github.com/gigbase/stagehand/internal/logging"
)

// openTestStore opens an ephemeral store and closes it with the test.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open(%s) error: %v", path, err)
	}
	defer s.Close()

	// Schema should be usable immediately.
	if err := s.InsertDecision(&DecisionRecord{Action: "hold", Reason: "test"}); err != nil {
		t.Errorf("InsertDecision() on fresh store: %v", err)
	}
}

func TestInsertDecision_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec := &DecisionRecord{
		Action:      "scale_up",
		Delta:       1,
		Reason:      "utilization 85.0% above threshold 70.0%",
		Utilization: 85.0,
		Instances:   3,
	}
	if err := s.InsertDecision(rec); err != nil {
		t.Fatalf("InsertDecision() error: %v", err)
	}
	if rec.ID == 0 {
		t.Error("InsertDecision() should backfill the row ID")
	}
	if rec.CreatedAt.IsZero() {
		t.Error("InsertDecision() should backfill CreatedAt")
	}

	got, err := s.RecentDecisions(10)
	if err != nil {
		t.Fatalf("RecentDecisions() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("RecentDecisions() returned %d records, want 1", len(got))
	}
	if got[0].Action != "scale_up" || got[0].Delta != 1 || got[0].Instances != 3 {
		t.Errorf("round-tripped decision = %+v", got[0])
	}
	if got[0].Utilization != 85.0 {
		t.Errorf("Utilization = %f, want 85.0", got[0].Utilization)
	}
}

func TestRecentDecisions_NewestFirst(t *testing.T) {
	s := openTestStore(t)

	for _, action := range []string{"hold", "scale_up", "scale_down"} {
		if err := s.InsertDecision(&DecisionRecord{Action: action, Reason: "test"}); err != nil {
			t.Fatalf("InsertDecision(%s) error: %v", action, err)
		}
	}

	got, err := s.RecentDecisions(2)
	if err != nil {
		t.Fatalf("RecentDecisions() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("RecentDecisions(2) returned %d records", len(got))
	}
	if got[0].Action != "scale_down" || got[1].Action != "scale_up" {
		t.Errorf("order = [%s, %s], want newest first", got[0].Action, got[1].Action)
	}
}

func TestInsertOutcome_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec := &OutcomeRecord{
		ItemID:     "wi-000042",
		OwnerID:    "acct-9",
		Category:   "write-heavy",
		Priority:   "high",
		Status:     "failed",
		Overflowed: true,
		WaitMs:     100,
		RunMs:      250,
		Error:      "payment declined",
	}
	if err := s.InsertOutcome(rec); err != nil {
		t.Fatalf("InsertOutcome() error: %v", err)
	}

	got, err := s.RecentOutcomes(10)
	if err != nil {
		t.Fatalf("RecentOutcomes() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("RecentOutcomes() returned %d records, want 1", len(got))
	}
	o := got[0]
	if o.ItemID != "wi-000042" || o.OwnerID != "acct-9" || o.Priority != "high" {
		t.Errorf("round-tripped outcome = %+v", o)
	}
	if !o.Overflowed {
		t.Error("Overflowed should survive the round trip")
	}
	if o.WaitMs != 100 || o.RunMs != 250 {
		t.Errorf("timings = wait %d / run %d, want 100 / 250", o.WaitMs, o.RunMs)
	}
	if o.Error != "payment declined" {
		t.Errorf("Error = %q, want %q", o.Error, "payment declined")
	}
}

func TestInsertOutcome_EmptyErrorStoredAsNull(t *testing.T) {
	s := openTestStore(t)

	if err := s.InsertOutcome(&OutcomeRecord{
		ItemID: "wi-000001", OwnerID: "acct-1", Priority: "normal", Status: "completed",
	}); err != nil {
		t.Fatalf("InsertOutcome() error: %v", err)
	}

	got, err := s.RecentOutcomes(1)
	if err != nil {
		t.Fatalf("RecentOutcomes() error: %v", err)
	}
	if got[0].Error != "" {
		t.Errorf("Error = %q, want empty", got[0].Error)
	}
}

func TestCounts(t *testing.T) {
	s := openTestStore(t)

	outcomes := []OutcomeRecord{
		{ItemID: "wi-1", OwnerID: "a", Priority: "normal", Status: "completed"},
		{ItemID: "wi-2", OwnerID: "a", Priority: "normal", Status: "completed", Overflowed: true},
		{ItemID: "wi-3", OwnerID: "b", Priority: "low", Status: "failed"},
	}
	for i := range outcomes {
		if err := s.InsertOutcome(&outcomes[i]); err != nil {
			t.Fatalf("InsertOutcome(%d) error: %v", i, err)
		}
	}

	counts, err := s.Counts()
	if err != nil {
		t.Fatalf("Counts() error: %v", err)
	}
	if counts.Completed != 2 {
		t.Errorf("Completed = %d, want 2", counts.Completed)
	}
	if counts.Failed != 1 {
		t.Errorf("Failed = %d, want 1", counts.Failed)
	}
	if counts.Overflowed != 1 {
		t.Errorf("Overflowed = %d, want 1", counts.Overflowed)
	}
}

func TestRecentDecisions_ScanFailureSurfaces(t *testing.T) {
	s := openTestStore(t)

	if err := s.InsertDecision(&DecisionRecord{Action: "scale_up", Delta: 1, Reason: "ok", Utilization: 80, Instances: 3}); err != nil {
		t.Fatalf("InsertDecision() error: %v", err)
	}
	// Simulate schema drift: SQLite stores whatever it is given, so a text
	// utilization survives the INSERT and fails at Scan time.
	if _, err := s.db.Exec(`
		INSERT INTO scaling_decisions (action, delta, reason, utilization, instances, created_at)
		VALUES ('scale_up', 1, 'bad row', 'not-a-number', 3, ?)
	`, time.Now()); err != nil {
		t.Fatalf("inserting malformed row: %v", err)
	}

	if _, err := s.RecentDecisions(10); err == nil {
		t.Error("RecentDecisions() should fail on an unscannable row, not truncate")
	}
}

func TestInsertAfterClose(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	err = s.InsertDecision(&DecisionRecord{Action: "hold", Reason: "test"})
	if !stderrors.Is(err, errors.ErrHistoryClosed) {
		t.Errorf("InsertDecision() after Close = %v, want ErrHistoryClosed", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestRecorder_PersistsBusEvents(t *testing.T) {
	s := openTestStore(t)
	bus := event.NewBus()
	r := NewRecorder(s, bus, logging.NopLogger())
	r.Start()
	defer r.Stop()

	// The bus is synchronous: Publish returns after the row is written.
	bus.Publish(event.NewScalingDecisionEvent("scale_up", 1, 4, 82.5, "utilization above threshold"))
	bus.Publish(event.NewWorkCompletedEvent("wi-000010", "acct-1", "read-heavy", "normal", false, 40*time.Millisecond, 90*time.Millisecond))
	bus.Publish(event.NewWorkFailedEvent("wi-000011", "acct-2", "write-heavy", "high", true, 0, 30*time.Millisecond, "boom", false))

	decisions, err := s.RecentDecisions(10)
	if err != nil {
		t.Fatalf("RecentDecisions() error: %v", err)
	}
	if len(decisions) != 1 || decisions[0].Action != "scale_up" {
		t.Errorf("decisions = %+v, want one scale_up", decisions)
	}

	outcomes, err := s.RecentOutcomes(10)
	if err != nil {
		t.Fatalf("RecentOutcomes() error: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d rows, want 2", len(outcomes))
	}
	// Newest first: the failed item comes back before the completed one.
	if outcomes[0].Status != "failed" || outcomes[0].Error != "boom" {
		t.Errorf("outcomes[0] = %+v, want the failed item", outcomes[0])
	}
	if outcomes[1].Status != "completed" || outcomes[1].WaitMs != 40 {
		t.Errorf("outcomes[1] = %+v, want the completed item", outcomes[1])
	}
}

func TestRecorder_StartIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	bus := event.NewBus()
	r := NewRecorder(s, bus, nil)
	r.Start()
	r.Start()
	defer r.Stop()

	bus.Publish(event.NewScalingDecisionEvent("hold", 0, 2, 50.0, "within thresholds"))

	decisions, err := s.RecentDecisions(10)
	if err != nil {
		t.Fatalf("RecentDecisions() error: %v", err)
	}
	if len(decisions) != 1 {
		t.Errorf("double Start recorded %d rows, want 1", len(decisions))
	}
}

func TestRecorder_StopDetaches(t *testing.T) {
	s := openTestStore(t)
	bus := event.NewBus()
	r := NewRecorder(s, bus, nil)
	r.Start()
	r.Stop()

	bus.Publish(event.NewScalingDecisionEvent("hold", 0, 2, 50.0, "within thresholds"))

	decisions, err := s.RecentDecisions(10)
	if err != nil {
		t.Fatalf("RecentDecisions() error: %v", err)
	}
	if len(decisions) != 0 {
		t.Errorf("recorder wrote %d rows after Stop, want 0", len(decisions))
	}
}
