package metrics

import (
	"sync"

	"github.com/gigbase/stagehand/internal/event"
)

// Recorder drives the collectors from bus events so instrumentation never
// leaks into the queue or the controller.
type Recorder struct {
	mu     sync.Mutex
	bus    *event.Bus
	subIDs []string
}

// NewRecorder creates a Recorder. Call Start to begin updating collectors.
func NewRecorder(bus *event.Bus) *Recorder {
	return &Recorder{bus: bus}
}

// Start subscribes to the events the collectors track.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.subIDs) > 0 {
		return
	}

	r.subIDs = []string{
		r.bus.Subscribe("work.submitted", func(e event.Event) {
			Submitted.Inc()
			if we, ok := e.(event.WorkSubmittedEvent); ok {
				QueueDepth.Set(float64(we.QueueLength))
			}
		}),
		r.bus.Subscribe("work.completed", func(e event.Event) {
			Completed.WithLabelValues("completed").Inc()
			if we, ok := e.(event.WorkCompletedEvent); ok {
				WaitSeconds.Observe(we.WaitTime.Seconds())
				RunSeconds.Observe(we.RunTime.Seconds())
			}
		}),
		r.bus.Subscribe("work.failed", func(e event.Event) {
			Completed.WithLabelValues("failed").Inc()
			if we, ok := e.(event.WorkFailedEvent); ok {
				WaitSeconds.Observe(we.WaitTime.Seconds())
				RunSeconds.Observe(we.RunTime.Seconds())
			}
		}),
		r.bus.Subscribe("work.overflowed", func(event.Event) {
			Overflowed.Inc()
		}),
		r.bus.Subscribe("queue.depth_changed", func(e event.Event) {
			if qe, ok := e.(event.QueueDepthChangedEvent); ok {
				QueueDepth.Set(float64(qe.Depth))
				Inflight.Set(float64(qe.InFlight))
			}
		}),
		r.bus.Subscribe("queue.ceiling_changed", func(e event.Event) {
			if ce, ok := e.(event.CeilingChangedEvent); ok {
				ConcurrencyCeiling.Set(float64(ce.Current))
			}
		}),
		r.bus.Subscribe("scaling.decision", func(e event.Event) {
			if de, ok := e.(event.ScalingDecisionEvent); ok {
				ScalingDecisions.WithLabelValues(de.Action).Inc()
				Instances.Set(float64(de.Instances))
				Utilization.Set(de.Utilization)
			}
		}),
		r.bus.Subscribe("metrics.dropped", func(event.Event) {
			MetricsDropped.Inc()
		}),
	}
}

// Stop unsubscribes. Collector values freeze at their last observation.
func (r *Recorder) Stop() {
	r.mu.Lock()
	subIDs := r.subIDs
	r.subIDs = nil
	r.mu.Unlock()

	for _, id := range subIDs {
		r.bus.Unsubscribe(id)
	}
}
