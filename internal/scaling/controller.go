package scaling

import (
	"fmt"
	"sync"
	"time"

	"github.com/gigbase/stagehand/internal/errors"
)

// Default controller values.
const (
	defaultMinInstances       = 1
	defaultMaxInstances       = 10
	defaultScaleUpThreshold   = 70.0
	defaultScaleDownThreshold = 30.0
	defaultCooldownPeriod     = 30 * time.Second
	defaultQueueLengthWeight  = 5.0
)

// historySize bounds the retained metrics history.
const historySize = 10

// Option configures a Controller.
type Option func(*Controller)

// WithMinInstances sets the minimum instance count to maintain.
func WithMinInstances(n int) Option {
	return func(c *Controller) { c.minInstances = n }
}

// WithMaxInstances sets the maximum instance count allowed.
func WithMaxInstances(n int) Option {
	return func(c *Controller) { c.maxInstances = n }
}

// WithScaleUpThreshold sets the utilization percentage above which to grow.
func WithScaleUpThreshold(pct float64) Option {
	return func(c *Controller) { c.scaleUpThreshold = pct }
}

// WithScaleDownThreshold sets the utilization percentage below which to
// shrink.
func WithScaleDownThreshold(pct float64) Option {
	return func(c *Controller) { c.scaleDownThreshold = pct }
}

// WithCooldownPeriod sets the quiet period after a scaling action during
// which further actions are held.
func WithCooldownPeriod(d time.Duration) Option {
	return func(c *Controller) { c.cooldownPeriod = d }
}

// WithQueueLengthWeight sets the per-item utilization penalty for backlog.
// The default of 5 makes a growing queue dominate raw resource usage, since
// backlog is the earliest signal of overload.
func WithQueueLengthWeight(w float64) Option {
	return func(c *Controller) { c.queueLengthWeight = w }
}

// WithInitialInstances sets the starting instance count. It is clamped into
// [min, max] at construction.
func WithInitialInstances(n int) Option {
	return func(c *Controller) { c.current = n }
}

// Controller decides when the system should grow or shrink. It consumes
// load snapshots and recommends, or applies, single-step instance count
// changes subject to min/max bounds, a cooldown period, and a hysteresis
// gap between the two thresholds. It is safe for concurrent use; calls to
// Evaluate are serialized.
type Controller struct {
	mu                 sync.Mutex
	minInstances       int
	maxInstances       int
	scaleUpThreshold   float64
	scaleDownThreshold float64
	cooldownPeriod     time.Duration
	queueLengthWeight  float64

	current      int
	lastActionAt time.Time
	lastDecision *Decision
	history      []Metrics
}

// NewController creates a Controller with the given options. Unset options
// use defaults. It returns an error matching errors.ErrPolicyInvalid when
// the options do not form a usable policy: bounds out of order, a missing
// hysteresis gap (scale-down threshold must stay below scale-up), or a
// negative cooldown or weight.
func NewController(opts ...Option) (*Controller, error) {
	c := &Controller{
		minInstances:       defaultMinInstances,
		maxInstances:       defaultMaxInstances,
		scaleUpThreshold:   defaultScaleUpThreshold,
		scaleDownThreshold: defaultScaleDownThreshold,
		cooldownPeriod:     defaultCooldownPeriod,
		queueLengthWeight:  defaultQueueLengthWeight,
		current:            -1,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.minInstances < 0 {
		return nil, errors.NewScalingError(
			fmt.Sprintf("min instances %d must not be negative", c.minInstances),
			errors.ErrPolicyInvalid)
	}
	if c.maxInstances < c.minInstances {
		return nil, errors.NewScalingError(
			fmt.Sprintf("max instances %d below min instances %d", c.maxInstances, c.minInstances),
			errors.ErrPolicyInvalid)
	}
	if c.scaleDownThreshold >= c.scaleUpThreshold {
		return nil, errors.NewScalingError(
			fmt.Sprintf("scale-down threshold %.1f must be below scale-up threshold %.1f",
				c.scaleDownThreshold, c.scaleUpThreshold),
			errors.ErrPolicyInvalid)
	}
	if c.cooldownPeriod < 0 {
		return nil, errors.NewScalingError("cooldown period must not be negative", errors.ErrPolicyInvalid)
	}
	if c.queueLengthWeight < 0 {
		return nil, errors.NewScalingError("queue length weight must not be negative", errors.ErrPolicyInvalid)
	}

	if c.current < c.minInstances {
		c.current = c.minInstances
	}
	if c.current > c.maxInstances {
		c.current = c.maxInstances
	}
	return c, nil
}

// Evaluate folds one snapshot into the controller and returns the new
// instance count. The snapshot joins the history first, cooldown included.
// Then: during cooldown the count is held; otherwise utilization above the
// scale-up threshold grows the count by one, utilization below the
// scale-down threshold shrinks it by one, always bounded by [min, max]. A
// change starts the cooldown. A nil or partial snapshot holds the previous
// state and is never an error.
func (c *Controller) Evaluate(m *Metrics) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m != nil {
		c.appendHistoryLocked(*m)
	}

	now := time.Now()
	d := c.decideLocked(m, now)
	if d.Action != ActionHold {
		c.current += d.Delta
		c.lastActionAt = now
	}
	c.lastDecision = &d
	return c.current
}

// Recommend previews what Evaluate would decide for the snapshot, without
// touching the instance count, the cooldown timer, the history, or the
// recorded last decision.
func (c *Controller) Recommend(m *Metrics) Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decideLocked(m, time.Now())
}

// decideLocked computes the decision for one snapshot. Caller must hold
// c.mu.
func (c *Controller) decideLocked(m *Metrics, now time.Time) Decision {
	if !m.Complete() {
		return Decision{Action: ActionHold, Reason: "metrics unavailable"}
	}

	util := c.utilizationLocked(m)

	if !c.lastActionAt.IsZero() && now.Sub(c.lastActionAt) < c.cooldownPeriod {
		return Decision{Action: ActionHold, Reason: "cooldown period active", Utilization: util}
	}

	switch {
	case util > c.scaleUpThreshold:
		if c.current >= c.maxInstances {
			return Decision{
				Action:      ActionHold,
				Reason:      fmt.Sprintf("already at max instances (%d)", c.maxInstances),
				Utilization: util,
			}
		}
		return Decision{
			Action: ActionScaleUp,
			Delta:  1,
			Reason: fmt.Sprintf("utilization %.1f above scale-up threshold %.1f",
				util, c.scaleUpThreshold),
			Utilization: util,
		}
	case util < c.scaleDownThreshold:
		if c.current <= c.minInstances {
			return Decision{
				Action:      ActionHold,
				Reason:      fmt.Sprintf("already at min instances (%d)", c.minInstances),
				Utilization: util,
			}
		}
		return Decision{
			Action: ActionScaleDown,
			Delta:  -1,
			Reason: fmt.Sprintf("utilization %.1f below scale-down threshold %.1f",
				util, c.scaleDownThreshold),
			Utilization: util,
		}
	default:
		return Decision{
			Action:      ActionHold,
			Reason:      "utilization within thresholds",
			Utilization: util,
		}
	}
}

// utilizationLocked computes the weighted load heuristic: mean of cpu and
// memory percent plus a per-item backlog penalty. Caller must hold c.mu.
func (c *Controller) utilizationLocked(m *Metrics) float64 {
	return (m.CPUUsage+m.MemoryUsage)/2 + float64(m.QueueLength)*c.queueLengthWeight
}

// appendHistoryLocked keeps the most recent snapshots, oldest first.
// Caller must hold c.mu.
func (c *Controller) appendHistoryLocked(m Metrics) {
	c.history = append(c.history, m)
	if len(c.history) > historySize {
		c.history = c.history[len(c.history)-historySize:]
	}
}

// CurrentInstances returns the instance count as of the last evaluation.
func (c *Controller) CurrentInstances() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Bounds returns the configured min and max instance counts.
func (c *Controller) Bounds() (min, max int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.minInstances, c.maxInstances
}

// History returns a copy of the retained metrics snapshots, oldest first.
func (c *Controller) History() []Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Metrics, len(c.history))
	copy(out, c.history)
	return out
}

// LastDecision returns the decision recorded by the most recent Evaluate
// call. ok is false before the first evaluation.
func (c *Controller) LastDecision() (Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastDecision == nil {
		return Decision{}, false
	}
	return *c.lastDecision, true
}

// CooldownRemaining returns how long the active cooldown has left, or zero
// when no cooldown is active.
func (c *Controller) CooldownRemaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastActionAt.IsZero() {
		return 0
	}
	remaining := c.cooldownPeriod - time.Since(c.lastActionAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}
