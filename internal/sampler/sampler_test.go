package sampler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	testclock "k8s.io/utils/clock/testing"

	"github.com/gigbase/stagehand/internal/event"
	"github.com/gigbase/stagehand/internal/queue"
)

// fakeSource is a StatsSource returning a fixed snapshot.
type fakeSource struct {
	stats queue.QueueStats
}

func (f *fakeSource) Stats() queue.QueueStats {
	return f.stats
}

func TestSample_QueueLengthFromSource(t *testing.T) {
	bus := event.NewBus()
	source := &fakeSource{stats: queue.QueueStats{QueueLength: 7}}
	s := New(bus, source)

	m, reason := s.Sample()
	if m == nil {
		t.Fatalf("Sample() returned nil, reason: %s", reason)
	}
	if m.QueueLength != 7 {
		t.Errorf("QueueLength = %d, want 7", m.QueueLength)
	}
	if !m.Complete() {
		t.Errorf("default readers should yield a complete snapshot, got %+v", m)
	}
}

func TestSample_NoSource(t *testing.T) {
	s := New(event.NewBus(), nil)

	m, reason := s.Sample()
	if m != nil {
		t.Errorf("Sample() = %+v, want nil without a source", m)
	}
	if reason == "" {
		t.Error("Sample() should explain why it failed")
	}
}

func TestSample_ReaderFailureMarksFieldMissing(t *testing.T) {
	bus := event.NewBus()
	source := &fakeSource{}
	s := New(bus, source,
		WithCPUReader(func() (float64, error) { return 0, errors.New("gauge offline") }),
	)

	m, _ := s.Sample()
	if m == nil {
		t.Fatal("Sample() returned nil")
	}
	if m.CPUUsage >= 0 {
		t.Errorf("CPUUsage = %f, want negative (missing)", m.CPUUsage)
	}
	if m.Complete() {
		t.Error("a snapshot with a failed reader should be partial")
	}
}

func TestSample_InstalledReaders(t *testing.T) {
	bus := event.NewBus()
	source := &fakeSource{}
	s := New(bus, source,
		WithCPUReader(func() (float64, error) { return 42.5, nil }),
		WithMemoryReader(func() (float64, error) { return 61.0, nil }),
	)

	m, _ := s.Sample()
	if m == nil {
		t.Fatal("Sample() returned nil")
	}
	if m.CPUUsage != 42.5 {
		t.Errorf("CPUUsage = %f, want 42.5", m.CPUUsage)
	}
	if m.MemoryUsage != 61.0 {
		t.Errorf("MemoryUsage = %f, want 61.0", m.MemoryUsage)
	}
}

func TestWindowAggregates(t *testing.T) {
	start := time.Now()
	clk := testclock.NewFakeClock(start)
	s := New(event.NewBus(), &fakeSource{},
		WithClock(clk),
		WithWindow(10*time.Second),
	)

	// Three submissions and two completions (one failed) inside the window.
	s.recordSubmission(start)
	s.recordSubmission(start)
	s.recordSubmission(start)
	s.recordCompletion(start, 200*time.Millisecond, false)
	s.recordCompletion(start, 400*time.Millisecond, true)

	rps, avg, errRate := s.windowAggregates(clk.Now())
	if want := 3.0 / 10.0; rps != want {
		t.Errorf("rps = %f, want %f", rps, want)
	}
	if want := 300 * time.Millisecond; avg != want {
		t.Errorf("avgResponse = %v, want %v", avg, want)
	}
	if want := 0.5; errRate != want {
		t.Errorf("errorRate = %f, want %f", errRate, want)
	}
}

func TestWindowAggregates_PrunesOldObservations(t *testing.T) {
	start := time.Now()
	clk := testclock.NewFakeClock(start)
	s := New(event.NewBus(), &fakeSource{},
		WithClock(clk),
		WithWindow(10*time.Second),
	)

	s.recordSubmission(start)
	s.recordCompletion(start, time.Second, true)

	clk.Step(11 * time.Second)

	rps, avg, errRate := s.windowAggregates(clk.Now())
	if rps != 0 {
		t.Errorf("rps = %f, want 0 after window passed", rps)
	}
	if avg != 0 {
		t.Errorf("avgResponse = %v, want 0 after window passed", avg)
	}
	if errRate != 0 {
		t.Errorf("errorRate = %f, want 0 after window passed", errRate)
	}
}

func TestStart_PublishesSampledEventsOnTick(t *testing.T) {
	start := time.Now()
	clk := testclock.NewFakeClock(start)
	bus := event.NewBus()
	source := &fakeSource{stats: queue.QueueStats{QueueLength: 3}}
	s := New(bus, source,
		WithClock(clk),
		WithInterval(5*time.Second),
	)

	var mu sync.Mutex
	var sampled []event.MetricsSampledEvent
	bus.Subscribe("metrics.sampled", func(e event.Event) {
		if me, ok := e.(event.MetricsSampledEvent); ok {
			mu.Lock()
			sampled = append(sampled, me)
			mu.Unlock()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	// Wait for the tick loop to register its ticker with the fake clock.
	deadline := time.After(2 * time.Second)
	for !clk.HasWaiters() {
		select {
		case <-deadline:
			t.Fatal("sampler never created its ticker")
		case <-time.After(time.Millisecond):
		}
	}

	clk.Step(5 * time.Second)

	// The tick is handled on the Start goroutine; wait for the publish.
	deadline = time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(sampled)
		mu.Unlock()
		if n >= 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no metrics.sampled event after tick")
		case <-time.After(time.Millisecond):
		}
	}

	mu.Lock()
	got := sampled[0]
	mu.Unlock()
	if got.QueueLength != 3 {
		t.Errorf("sampled QueueLength = %d, want 3", got.QueueLength)
	}

	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestSampleOnce_DroppedEventWithoutSource(t *testing.T) {
	bus := event.NewBus()
	s := New(bus, nil)

	var mu sync.Mutex
	dropped := 0
	bus.Subscribe("metrics.dropped", func(e event.Event) {
		mu.Lock()
		dropped++
		mu.Unlock()
	})

	s.sampleOnce()

	mu.Lock()
	defer mu.Unlock()
	if dropped != 1 {
		t.Errorf("metrics.dropped events = %d, want 1", dropped)
	}
}

func TestStart_RecordsBusWorkEvents(t *testing.T) {
	start := time.Now()
	clk := testclock.NewFakeClock(start)
	bus := event.NewBus()
	s := New(bus, &fakeSource{},
		WithClock(clk),
		WithWindow(30*time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)
	defer s.Stop()

	deadline := time.After(2 * time.Second)
	for !clk.HasWaiters() {
		select {
		case <-deadline:
			t.Fatal("sampler never created its ticker")
		case <-time.After(time.Millisecond):
		}
	}

	// The bus is synchronous: these return after the sampler recorded them.
	bus.Publish(event.NewWorkSubmittedEvent("wi-000001", "owner", "read-heavy", "normal", 1))
	bus.Publish(event.NewWorkCompletedEvent("wi-000001", "owner", "read-heavy", "normal", false, 100*time.Millisecond, 100*time.Millisecond))
	bus.Publish(event.NewWorkFailedEvent("wi-000002", "owner", "read-heavy", "normal", false, 0, 50*time.Millisecond, "boom", false))

	rps, _, errRate := s.windowAggregates(clk.Now())
	if rps <= 0 {
		t.Errorf("rps = %f, want > 0 after a submission", rps)
	}
	if want := 0.5; errRate != want {
		t.Errorf("errorRate = %f, want %f", errRate, want)
	}
}
