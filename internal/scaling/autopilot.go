package scaling

import (
	"context"
	"sync"

	"github.com/gigbase/stagehand/internal/event"
	"github.com/gigbase/stagehand/internal/logging"
)

// CeilingSetter applies a new concurrency ceiling. The admission queue
// implements it.
type CeilingSetter interface {
	SetConcurrencyCeiling(n int)
}

// Autopilot closes the feedback loop: it watches sampled metrics on the
// event bus, runs them through the controller, and applies the resulting
// instance count to the queue's concurrency ceiling. Applied decisions are
// published as scaling.decision events and fanned out to OnDecision
// handlers.
type Autopilot struct {
	mu       sync.Mutex
	bus      *event.Bus
	ctrl     *Controller
	target   CeilingSetter
	logger   *logging.Logger
	handlers []func(Decision)
	subID    string
	cancel   context.CancelFunc

	// evalMu serializes whole evaluations so concurrent metrics events
	// cannot interleave between deciding and applying.
	evalMu sync.Mutex
}

// NewAutopilot creates an Autopilot. A nil logger is replaced with a no-op
// logger.
func NewAutopilot(bus *event.Bus, ctrl *Controller, target CeilingSetter, logger *logging.Logger) *Autopilot {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Autopilot{
		bus:    bus,
		ctrl:   ctrl,
		target: target,
		logger: logger.WithComponent("autopilot"),
	}
}

// OnDecision registers a callback invoked whenever a scale-up or
// scale-down decision is applied. Holds are not reported. Multiple
// handlers may be registered.
func (a *Autopilot) OnDecision(handler func(Decision)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers = append(a.handlers, handler)
}

// Start subscribes to sampled metrics and begins evaluating. It blocks
// until the context is cancelled or Stop is called.
func (a *Autopilot) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	subID := a.bus.Subscribe("metrics.sampled", func(e event.Event) {
		me, ok := e.(event.MetricsSampledEvent)
		if !ok {
			return
		}
		a.evaluate(&Metrics{
			CPUUsage:            me.CPUUsage,
			MemoryUsage:         me.MemoryUsage,
			RequestsPerSecond:   me.RequestsPerSecond,
			AverageResponseTime: me.AverageResponseTime,
			ErrorRate:           me.ErrorRate,
			QueueLength:         me.QueueLength,
		})
	})

	a.mu.Lock()
	a.subID = subID
	a.cancel = cancel
	a.mu.Unlock()

	<-ctx.Done()
}

// evaluate runs one snapshot through the controller and applies any
// resulting change to the target ceiling.
func (a *Autopilot) evaluate(m *Metrics) {
	a.evalMu.Lock()
	defer a.evalMu.Unlock()

	instances := a.ctrl.Evaluate(m)
	decision, ok := a.ctrl.LastDecision()
	if !ok || decision.Action == ActionHold {
		return
	}

	a.target.SetConcurrencyCeiling(instances)
	a.logger.Info("scaling decision applied",
		"action", decision.Action.String(),
		"delta", decision.Delta,
		"instances", instances,
		"utilization", decision.Utilization,
		"reason", decision.Reason)
	a.bus.Publish(event.NewScalingDecisionEvent(
		decision.Action.String(), decision.Delta, instances, decision.Utilization, decision.Reason))

	a.mu.Lock()
	handlers := make([]func(Decision), len(a.handlers))
	copy(handlers, a.handlers)
	a.mu.Unlock()
	for _, h := range handlers {
		h(decision)
	}
}

// Stop unsubscribes from metrics events and unblocks Start.
func (a *Autopilot) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	subID := a.subID
	a.mu.Unlock()

	if subID != "" {
		a.bus.Unsubscribe(subID)
	}
	if cancel != nil {
		cancel()
	}
}
