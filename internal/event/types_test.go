package event

import (
	"testing"
	"time"
)

// Recorders subscribe by event type string, so a renamed constant would
// silently disconnect them. Pin every constructor to its wire name.
func TestEventTypeNames(t *testing.T) {
	tests := []struct {
		event    Event
		expected string
	}{
		{NewWorkSubmittedEvent("wi-1", "acct-1", "read-heavy", "high", 3), "work.submitted"},
		{NewWorkStartedEvent("wi-1", "high", time.Second, false), "work.started"},
		{NewWorkCompletedEvent("wi-1", "acct-1", "read-heavy", "high", false, time.Second, 2*time.Second), "work.completed"},
		{NewWorkFailedEvent("wi-1", "acct-1", "read-heavy", "high", false, time.Second, time.Second, "boom", false), "work.failed"},
		{NewWorkOverflowedEvent("wi-1", "acct-1", "low", 100, 100*time.Millisecond), "work.overflowed"},
		{NewQueueDepthChangedEvent(5, 2), "queue.depth_changed"},
		{NewCeilingChangedEvent(3, 4), "queue.ceiling_changed"},
		{NewQueueClosedEvent(2, 1), "queue.closed"},
		{NewScalingDecisionEvent("scale_up", 1, 4, 87.5, "utilization above threshold"), "scaling.decision"},
		{NewMetricsSampledEvent(50, 60, 12.5, 80*time.Millisecond, 0.01, 7), "metrics.sampled"},
		{NewMetricsDroppedEvent("cpu reader failed"), "metrics.dropped"},
	}

	for _, tc := range tests {
		if tc.event.EventType() != tc.expected {
			t.Errorf("Expected event type %q, got %q", tc.expected, tc.event.EventType())
		}
		if tc.event.Timestamp().IsZero() {
			t.Errorf("Event %q has zero timestamp", tc.expected)
		}
	}
}

func TestWorkCompletedEvent_TotalTime(t *testing.T) {
	e := NewWorkCompletedEvent("wi-1", "acct-1", "read-heavy", "high", false, 3*time.Second, 2*time.Second)

	if e.TotalTime() != 5*time.Second {
		t.Errorf("Expected total time 5s, got %v", e.TotalTime())
	}
}
