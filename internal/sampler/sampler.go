// Package sampler produces the periodic load snapshots the capacity
// controller consumes. Queue depth comes straight from the admission queue;
// request rate, response time, and error rate are derived from work
// lifecycle events observed over a sliding window; CPU and memory come from
// pluggable reader funcs so the host process can wire in real gauges.
//
// A reader that fails marks its field negative, which makes the snapshot
// partial. Partial snapshots are still published: the controller holds on
// them rather than erroring, so a flaky gauge degrades scaling to a no-op
// instead of crashing anything.
package sampler

import (
	"context"
	"runtime"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/gigbase/stagehand/internal/event"
	"github.com/gigbase/stagehand/internal/logging"
	"github.com/gigbase/stagehand/internal/queue"
	"github.com/gigbase/stagehand/internal/scaling"
)

// Default sampler values.
const (
	DefaultInterval     = 5 * time.Second
	DefaultWindow       = 30 * time.Second
	DefaultMemoryBudget = 512 // MB
)

// Reader reports one gauge as a percentage in [0, 100]. A non-nil error
// marks the reading missing for this cycle.
type Reader func() (float64, error)

// StatsSource supplies the queue depth for each snapshot. The admission
// queue implements it.
type StatsSource interface {
	Stats() queue.QueueStats
}

// completion is one observed terminal work event inside the window.
type completion struct {
	at     time.Time
	total  time.Duration
	failed bool
}

// Sampler assembles scaling metrics snapshots on a fixed interval and
// publishes them on the event bus as metrics.sampled events.
type Sampler struct {
	mu sync.Mutex

	clk      clock.WithTicker
	interval time.Duration
	window   time.Duration

	bus    *event.Bus
	source StatsSource
	logger *logging.Logger

	cpuReader    Reader
	memoryReader Reader
	memoryBudget int // MB, for the default memory reader

	submissions []time.Time
	completions []completion

	subIDs []string
	cancel context.CancelFunc
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithClock injects the clock. Tests use a fake clock to drive ticks.
func WithClock(c clock.WithTicker) Option {
	return func(s *Sampler) { s.clk = c }
}

// WithInterval sets how often a snapshot is produced.
func WithInterval(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithWindow sets the sliding window for rate and latency aggregates.
func WithWindow(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithCPUReader installs the CPU gauge. Without one, CPU reads 0: the
// process has no portable view of host CPU, and a zero reading leaves the
// queue-length term to drive scaling.
func WithCPUReader(r Reader) Option {
	return func(s *Sampler) { s.cpuReader = r }
}

// WithMemoryReader installs the memory gauge, replacing the default
// heap-against-budget reader.
func WithMemoryReader(r Reader) Option {
	return func(s *Sampler) { s.memoryReader = r }
}

// WithMemoryBudget sets the heap budget in MB the default memory reader
// reports usage against.
func WithMemoryBudget(mb int) Option {
	return func(s *Sampler) {
		if mb > 0 {
			s.memoryBudget = mb
		}
	}
}

// WithLogger sets the logger. The sampler logs under the "sampler" component.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Sampler) { s.logger = logger }
}

// New creates a Sampler publishing on bus and reading queue depth from
// source.
func New(bus *event.Bus, source StatsSource, opts ...Option) *Sampler {
	s := &Sampler{
		clk:          clock.RealClock{},
		interval:     DefaultInterval,
		window:       DefaultWindow,
		bus:          bus,
		source:       source,
		memoryBudget: DefaultMemoryBudget,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NopLogger()
	}
	s.logger = s.logger.WithComponent("sampler")
	if s.memoryReader == nil {
		s.memoryReader = s.heapReader
	}
	return s
}

// heapReader is the default memory gauge: live heap against the configured
// budget. It is a stand-in for a host gauge, not an OS-level measurement.
func (s *Sampler) heapReader() (float64, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	budget := float64(s.memoryBudget) * 1024 * 1024
	pct := float64(ms.HeapAlloc) / budget * 100
	if pct > 100 {
		pct = 100
	}
	return pct, nil
}

// Start subscribes to work lifecycle events and begins ticking. It blocks
// until the context is cancelled or Stop is called.
func (s *Sampler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	subIDs := []string{
		s.bus.Subscribe("work.submitted", func(e event.Event) {
			s.recordSubmission(e.Timestamp())
		}),
		s.bus.Subscribe("work.completed", func(e event.Event) {
			if we, ok := e.(event.WorkCompletedEvent); ok {
				s.recordCompletion(we.Timestamp(), we.TotalTime(), false)
			}
		}),
		s.bus.Subscribe("work.failed", func(e event.Event) {
			if we, ok := e.(event.WorkFailedEvent); ok {
				s.recordCompletion(we.Timestamp(), we.WaitTime+we.RunTime, true)
			}
		}),
	}

	s.mu.Lock()
	s.subIDs = subIDs
	s.cancel = cancel
	s.mu.Unlock()

	ticker := s.clk.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C():
			s.sampleOnce()
		case <-ctx.Done():
			return
		}
	}
}

// Stop unsubscribes from work events and unblocks Start.
func (s *Sampler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	subIDs := s.subIDs
	s.subIDs = nil
	s.mu.Unlock()

	for _, id := range subIDs {
		s.bus.Unsubscribe(id)
	}
	if cancel != nil {
		cancel()
	}
}

// sampleOnce assembles one snapshot and publishes it. A snapshot that cannot
// be assembled at all publishes metrics.dropped and skips the cycle.
func (s *Sampler) sampleOnce() {
	m, reason := s.Sample()
	if m == nil {
		s.logger.Warn("metrics sample dropped", "reason", reason)
		s.bus.Publish(event.NewMetricsDroppedEvent(reason))
		return
	}

	s.logger.Debug("metrics sampled",
		"cpu", m.CPUUsage, "memory", m.MemoryUsage,
		"rps", m.RequestsPerSecond, "queue_length", m.QueueLength)
	s.bus.Publish(event.NewMetricsSampledEvent(
		m.CPUUsage, m.MemoryUsage, m.RequestsPerSecond,
		m.AverageResponseTime, m.ErrorRate, m.QueueLength))
}

// Sample assembles one metrics snapshot without publishing it. A nil
// snapshot means assembly failed entirely; the reason says why. Reader
// failures do not fail the sample, they mark the field negative so the
// snapshot is partial.
func (s *Sampler) Sample() (m *scaling.Metrics, reason string) {
	if s.source == nil {
		return nil, "no stats source configured"
	}
	stats := s.source.Stats()

	cpu := 0.0
	if s.cpuReader != nil {
		v, err := s.cpuReader()
		if err != nil {
			s.logger.Warn("cpu reader failed", "error", err.Error())
			v = -1
		}
		cpu = v
	}

	mem, err := s.memoryReader()
	if err != nil {
		s.logger.Warn("memory reader failed", "error", err.Error())
		mem = -1
	}

	rps, avgResponse, errorRate := s.windowAggregates(s.clk.Now())

	return &scaling.Metrics{
		CPUUsage:            cpu,
		MemoryUsage:         mem,
		RequestsPerSecond:   rps,
		AverageResponseTime: avgResponse,
		ErrorRate:           errorRate,
		QueueLength:         stats.QueueLength,
	}, ""
}

// recordSubmission notes one admission for the rate window.
func (s *Sampler) recordSubmission(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = append(s.submissions, at)
	s.pruneLocked(s.clk.Now())
}

// recordCompletion notes one terminal work event for the latency and error
// windows.
func (s *Sampler) recordCompletion(at time.Time, total time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions = append(s.completions, completion{at: at, total: total, failed: failed})
	s.pruneLocked(s.clk.Now())
}

// windowAggregates computes request rate, mean response time, and error rate
// over the sliding window.
func (s *Sampler) windowAggregates(now time.Time) (rps float64, avgResponse time.Duration, errorRate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)

	rps = float64(len(s.submissions)) / s.window.Seconds()

	if len(s.completions) > 0 {
		var total time.Duration
		failed := 0
		for _, c := range s.completions {
			total += c.total
			if c.failed {
				failed++
			}
		}
		avgResponse = total / time.Duration(len(s.completions))
		errorRate = float64(failed) / float64(len(s.completions))
	}
	return rps, avgResponse, errorRate
}

// pruneLocked drops observations older than the window. Caller must hold
// s.mu.
func (s *Sampler) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)

	keep := s.submissions[:0]
	for _, t := range s.submissions {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	s.submissions = keep

	keepC := s.completions[:0]
	for _, c := range s.completions {
		if c.at.After(cutoff) {
			keepC = append(keepC, c)
		}
	}
	s.completions = keepC
}
