package scaling

import (
	"math"
	"testing"
	"time"

	"github.com/gigbase/stagehand/internal/errors"
)

func newTestController(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	c, err := NewController(opts...)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

func TestNewController_Defaults(t *testing.T) {
	c := newTestController(t)
	if c.minInstances != defaultMinInstances {
		t.Errorf("minInstances = %d, want %d", c.minInstances, defaultMinInstances)
	}
	if c.maxInstances != defaultMaxInstances {
		t.Errorf("maxInstances = %d, want %d", c.maxInstances, defaultMaxInstances)
	}
	if c.scaleUpThreshold != defaultScaleUpThreshold {
		t.Errorf("scaleUpThreshold = %v, want %v", c.scaleUpThreshold, defaultScaleUpThreshold)
	}
	if c.scaleDownThreshold != defaultScaleDownThreshold {
		t.Errorf("scaleDownThreshold = %v, want %v", c.scaleDownThreshold, defaultScaleDownThreshold)
	}
	if c.cooldownPeriod != defaultCooldownPeriod {
		t.Errorf("cooldownPeriod = %v, want %v", c.cooldownPeriod, defaultCooldownPeriod)
	}
	if c.queueLengthWeight != defaultQueueLengthWeight {
		t.Errorf("queueLengthWeight = %v, want %v", c.queueLengthWeight, defaultQueueLengthWeight)
	}
	if c.current != defaultMinInstances {
		t.Errorf("current = %d, want min %d", c.current, defaultMinInstances)
	}
}

func TestNewController_Options(t *testing.T) {
	c := newTestController(t,
		WithMinInstances(2),
		WithMaxInstances(16),
		WithScaleUpThreshold(80),
		WithScaleDownThreshold(20),
		WithCooldownPeriod(time.Minute),
		WithQueueLengthWeight(2.5),
		WithInitialInstances(4),
	)
	if c.minInstances != 2 {
		t.Errorf("minInstances = %d, want 2", c.minInstances)
	}
	if c.maxInstances != 16 {
		t.Errorf("maxInstances = %d, want 16", c.maxInstances)
	}
	if c.scaleUpThreshold != 80 {
		t.Errorf("scaleUpThreshold = %v, want 80", c.scaleUpThreshold)
	}
	if c.scaleDownThreshold != 20 {
		t.Errorf("scaleDownThreshold = %v, want 20", c.scaleDownThreshold)
	}
	if c.cooldownPeriod != time.Minute {
		t.Errorf("cooldownPeriod = %v, want %v", c.cooldownPeriod, time.Minute)
	}
	if c.queueLengthWeight != 2.5 {
		t.Errorf("queueLengthWeight = %v, want 2.5", c.queueLengthWeight)
	}
	if c.CurrentInstances() != 4 {
		t.Errorf("CurrentInstances() = %d, want 4", c.CurrentInstances())
	}
}

func TestNewController_Validation(t *testing.T) {
	tests := []struct {
		name    string
		options []Option
	}{
		{"negative min", []Option{WithMinInstances(-1)}},
		{"max below min", []Option{WithMinInstances(5), WithMaxInstances(2)}},
		{"thresholds equal", []Option{WithScaleUpThreshold(50), WithScaleDownThreshold(50)}},
		{"thresholds inverted", []Option{WithScaleUpThreshold(30), WithScaleDownThreshold(70)}},
		{"negative cooldown", []Option{WithCooldownPeriod(-time.Second)}},
		{"negative weight", []Option{WithQueueLengthWeight(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewController(tt.options...)
			if err == nil {
				t.Fatal("NewController should reject the policy")
			}
			if !errors.Is(err, errors.ErrPolicyInvalid) {
				t.Errorf("err = %v, want ErrPolicyInvalid", err)
			}
		})
	}
}

func TestNewController_InitialInstancesClamped(t *testing.T) {
	c := newTestController(t, WithMaxInstances(10), WithInitialInstances(50))
	if c.CurrentInstances() != 10 {
		t.Errorf("CurrentInstances() = %d, want 10 (clamped to max)", c.CurrentInstances())
	}

	c = newTestController(t, WithMinInstances(2), WithInitialInstances(0))
	if c.CurrentInstances() != 2 {
		t.Errorf("CurrentInstances() = %d, want 2 (clamped to min)", c.CurrentInstances())
	}
}

func TestController_Evaluate(t *testing.T) {
	tests := []struct {
		name          string
		metrics       Metrics
		initial       int
		options       []Option
		wantInstances int
		wantAction    Action
	}{
		{
			name:          "scale up when utilization above threshold",
			metrics:       Metrics{CPUUsage: 80, MemoryUsage: 80},
			initial:       2,
			wantInstances: 3,
			wantAction:    ActionScaleUp,
		},
		{
			name:          "scale down when utilization below threshold",
			metrics:       Metrics{CPUUsage: 10, MemoryUsage: 10},
			initial:       3,
			wantInstances: 2,
			wantAction:    ActionScaleDown,
		},
		{
			name:          "hold within thresholds",
			metrics:       Metrics{CPUUsage: 50, MemoryUsage: 50},
			initial:       3,
			wantInstances: 3,
			wantAction:    ActionHold,
		},
		{
			name:          "backlog dominates resource usage",
			metrics:       Metrics{CPUUsage: 20, MemoryUsage: 20, QueueLength: 15},
			initial:       2,
			wantInstances: 3,
			wantAction:    ActionScaleUp,
		},
		{
			name:          "no scale up at max instances",
			metrics:       Metrics{CPUUsage: 95, MemoryUsage: 95},
			initial:       4,
			options:       []Option{WithMaxInstances(4)},
			wantInstances: 4,
			wantAction:    ActionHold,
		},
		{
			name:          "no scale down at min instances",
			metrics:       Metrics{CPUUsage: 5, MemoryUsage: 5},
			initial:       2,
			options:       []Option{WithMinInstances(2)},
			wantInstances: 2,
			wantAction:    ActionHold,
		},
		{
			name:          "queue length weight is tunable",
			metrics:       Metrics{CPUUsage: 20, MemoryUsage: 20, QueueLength: 15},
			initial:       2,
			options:       []Option{WithQueueLengthWeight(0)},
			wantInstances: 1,
			wantAction:    ActionScaleDown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{
				WithCooldownPeriod(0),
				WithInitialInstances(tt.initial),
			}, tt.options...)
			c := newTestController(t, opts...)

			got := c.Evaluate(&tt.metrics)
			if got != tt.wantInstances {
				t.Errorf("Evaluate = %d, want %d", got, tt.wantInstances)
			}

			d, ok := c.LastDecision()
			if !ok {
				t.Fatal("LastDecision should be recorded after Evaluate")
			}
			if d.Action != tt.wantAction {
				t.Errorf("Action = %q, want %q", d.Action, tt.wantAction)
			}
			if d.Reason == "" {
				t.Error("Reason should not be empty")
			}
		})
	}
}

func TestController_Evaluate_Cooldown(t *testing.T) {
	c := newTestController(t,
		WithInitialInstances(2),
		WithCooldownPeriod(time.Hour),
	)

	hot := &Metrics{CPUUsage: 80, MemoryUsage: 80}

	// First evaluation scales up and starts the cooldown.
	if got := c.Evaluate(hot); got != 3 {
		t.Fatalf("first Evaluate = %d, want 3", got)
	}

	// Subsequent evaluations within the cooldown hold the same count.
	for range 3 {
		if got := c.Evaluate(hot); got != 3 {
			t.Errorf("Evaluate during cooldown = %d, want 3", got)
		}
	}
	d, ok := c.LastDecision()
	if !ok {
		t.Fatal("LastDecision not recorded")
	}
	if d.Action != ActionHold {
		t.Errorf("Action = %q, want hold", d.Action)
	}
	if d.Reason != "cooldown period active" {
		t.Errorf("Reason = %q, want 'cooldown period active'", d.Reason)
	}
}

func TestController_Evaluate_Hysteresis(t *testing.T) {
	c := newTestController(t,
		WithInitialInstances(3),
		WithScaleUpThreshold(70),
		WithScaleDownThreshold(30),
		WithCooldownPeriod(time.Hour),
	)

	// A stream oscillating across the scale-up boundary faster than the
	// cooldown changes the count at most once.
	low := &Metrics{CPUUsage: 65, MemoryUsage: 65}
	high := &Metrics{CPUUsage: 75, MemoryUsage: 75}

	changes := 0
	previous := c.CurrentInstances()
	for range 10 {
		if got := c.Evaluate(low); got != previous {
			changes++
			previous = got
		}
		if got := c.Evaluate(high); got != previous {
			changes++
			previous = got
		}
	}

	if changes > 1 {
		t.Errorf("instance count changed %d times, want at most 1", changes)
	}
	if c.CurrentInstances() != 4 {
		t.Errorf("CurrentInstances = %d, want 4", c.CurrentInstances())
	}
}

func TestController_Evaluate_BoundsInvariant(t *testing.T) {
	c := newTestController(t,
		WithMinInstances(1),
		WithMaxInstances(5),
		WithInitialInstances(3),
		WithCooldownPeriod(0),
	)

	overload := &Metrics{CPUUsage: 100, MemoryUsage: 100, QueueLength: 50}
	for range 20 {
		got := c.Evaluate(overload)
		if got < 1 || got > 5 {
			t.Fatalf("instances = %d outside [1, 5]", got)
		}
	}
	if c.CurrentInstances() != 5 {
		t.Errorf("CurrentInstances = %d, want max 5", c.CurrentInstances())
	}

	idle := &Metrics{}
	for range 20 {
		got := c.Evaluate(idle)
		if got < 1 || got > 5 {
			t.Fatalf("instances = %d outside [1, 5]", got)
		}
	}
	if c.CurrentInstances() != 1 {
		t.Errorf("CurrentInstances = %d, want min 1", c.CurrentInstances())
	}
}

func TestController_Evaluate_NilMetrics(t *testing.T) {
	c := newTestController(t, WithInitialInstances(3), WithCooldownPeriod(0))

	if got := c.Evaluate(nil); got != 3 {
		t.Errorf("Evaluate(nil) = %d, want 3 (hold)", got)
	}
	d, ok := c.LastDecision()
	if !ok {
		t.Fatal("LastDecision not recorded")
	}
	if d.Action != ActionHold {
		t.Errorf("Action = %q, want hold", d.Action)
	}
	if d.Reason != "metrics unavailable" {
		t.Errorf("Reason = %q, want 'metrics unavailable'", d.Reason)
	}
	if len(c.History()) != 0 {
		t.Errorf("history length = %d, want 0 for nil snapshot", len(c.History()))
	}
}

func TestController_Evaluate_PartialMetrics(t *testing.T) {
	tests := []struct {
		name    string
		metrics Metrics
	}{
		{"negative cpu", Metrics{CPUUsage: -1, MemoryUsage: 50}},
		{"negative memory", Metrics{CPUUsage: 50, MemoryUsage: -1}},
		{"NaN cpu", Metrics{CPUUsage: math.NaN(), MemoryUsage: 50}},
		{"negative queue length", Metrics{CPUUsage: 90, MemoryUsage: 90, QueueLength: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(t, WithInitialInstances(3), WithCooldownPeriod(0))

			if got := c.Evaluate(&tt.metrics); got != 3 {
				t.Errorf("Evaluate = %d, want 3 (hold)", got)
			}
			d, _ := c.LastDecision()
			if d.Action != ActionHold {
				t.Errorf("Action = %q, want hold", d.Action)
			}
			// Partial snapshots still land in the history for diagnosis.
			if len(c.History()) != 1 {
				t.Errorf("history length = %d, want 1", len(c.History()))
			}
		})
	}
}

func TestController_HistoryCapped(t *testing.T) {
	c := newTestController(t, WithCooldownPeriod(0))

	for i := range 15 {
		c.Evaluate(&Metrics{CPUUsage: 50, MemoryUsage: 50, QueueLength: i})
	}

	h := c.History()
	if len(h) != historySize {
		t.Fatalf("history length = %d, want %d", len(h), historySize)
	}
	if h[0].QueueLength != 5 {
		t.Errorf("oldest retained QueueLength = %d, want 5", h[0].QueueLength)
	}
	if h[len(h)-1].QueueLength != 14 {
		t.Errorf("newest retained QueueLength = %d, want 14", h[len(h)-1].QueueLength)
	}

	// History returns a copy.
	h[0].QueueLength = 999
	if c.History()[0].QueueLength == 999 {
		t.Error("History should return a copy")
	}
}

func TestController_Recommend_SideEffectFree(t *testing.T) {
	c := newTestController(t, WithInitialInstances(2), WithCooldownPeriod(0))

	d := c.Recommend(&Metrics{CPUUsage: 90, MemoryUsage: 90})
	if d.Action != ActionScaleUp {
		t.Fatalf("Action = %q, want scale_up", d.Action)
	}
	if d.Delta != 1 {
		t.Errorf("Delta = %d, want 1", d.Delta)
	}

	if c.CurrentInstances() != 2 {
		t.Errorf("CurrentInstances = %d, want 2 (Recommend must not apply)", c.CurrentInstances())
	}
	if _, ok := c.LastDecision(); ok {
		t.Error("Recommend must not record a decision")
	}
	if len(c.History()) != 0 {
		t.Error("Recommend must not append to history")
	}
	if c.CooldownRemaining() != 0 {
		t.Error("Recommend must not start a cooldown")
	}
}

func TestController_Recommend_DuringCooldown(t *testing.T) {
	c := newTestController(t, WithInitialInstances(2), WithCooldownPeriod(time.Hour))

	c.Evaluate(&Metrics{CPUUsage: 90, MemoryUsage: 90})

	d := c.Recommend(&Metrics{CPUUsage: 90, MemoryUsage: 90})
	if d.Action != ActionHold {
		t.Errorf("Action = %q, want hold during cooldown", d.Action)
	}
	if d.Reason != "cooldown period active" {
		t.Errorf("Reason = %q, want 'cooldown period active'", d.Reason)
	}
}

func TestController_CooldownRemaining(t *testing.T) {
	c := newTestController(t, WithInitialInstances(2), WithCooldownPeriod(time.Hour))

	if got := c.CooldownRemaining(); got != 0 {
		t.Errorf("CooldownRemaining before any action = %v, want 0", got)
	}

	c.Evaluate(&Metrics{CPUUsage: 90, MemoryUsage: 90})

	got := c.CooldownRemaining()
	if got <= 0 || got > time.Hour {
		t.Errorf("CooldownRemaining = %v, want within (0, 1h]", got)
	}
}

func TestController_Bounds(t *testing.T) {
	c := newTestController(t, WithMinInstances(2), WithMaxInstances(7))
	min, max := c.Bounds()
	if min != 2 || max != 7 {
		t.Errorf("Bounds = (%d, %d), want (2, 7)", min, max)
	}
}

func TestAction_String(t *testing.T) {
	tests := []struct {
		action Action
		want   string
	}{
		{ActionScaleUp, "scale_up"},
		{ActionScaleDown, "scale_down"},
		{ActionHold, "hold"},
	}
	for _, tt := range tests {
		if got := tt.action.String(); got != tt.want {
			t.Errorf("Action(%q).String() = %q, want %q", tt.action, got, tt.want)
		}
	}
}

func TestMetrics_Complete(t *testing.T) {
	tests := []struct {
		name    string
		metrics *Metrics
		want    bool
	}{
		{"nil", nil, false},
		{"zero value", &Metrics{}, true},
		{"typical", &Metrics{CPUUsage: 40, MemoryUsage: 60, QueueLength: 3}, true},
		{"negative cpu", &Metrics{CPUUsage: -1}, false},
		{"negative memory", &Metrics{MemoryUsage: -1}, false},
		{"NaN memory", &Metrics{MemoryUsage: math.NaN()}, false},
		{"negative queue length", &Metrics{QueueLength: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.metrics.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}
