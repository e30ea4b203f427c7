package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/gigbase/stagehand/internal/config"
	"github.com/gigbase/stagehand/internal/event"
	"github.com/gigbase/stagehand/internal/priority"
	"github.com/gigbase/stagehand/internal/queue"
	"github.com/gigbase/stagehand/internal/sampler"
	"github.com/gigbase/stagehand/internal/scaling"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a synthetic workload through the admission pipeline",
	Long: `Simulate builds the full admission pipeline in-process, pushes a
synthetic mix of gigbase traffic through it, and reports what happened:
priority ordering, overflow behavior, and the scaling decisions the
capacity controller made along the way.

Useful for trying out queue and scaling settings before deploying them.`,
	RunE: runSimulate,
}

var (
	simItems  int   // Work items to submit
	simRate   int   // Submissions per second
	simTaskMs int   // Mean task duration
	simSeed   int64 // RNG seed, 0 picks one
)

func init() {
	simulateCmd.Flags().IntVar(&simItems, "items", 200, "number of work items to submit")
	simulateCmd.Flags().IntVar(&simRate, "rate", 50, "submissions per second")
	simulateCmd.Flags().IntVar(&simTaskMs, "task-ms", 50, "mean task duration in milliseconds")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "random seed (0 picks one)")
	rootCmd.AddCommand(simulateCmd)
}

// Synthetic traffic mix: operation names seen at the gigbase API edge, and
// the tier distribution of accounts sending them.
var (
	simOperations = []string{
		"search.artists", "search.venues", "bookings.create", "bookings.update",
		"bookings.cancel", "messages.send", "availability.check", "reviews.list",
	}
	simTiers = []string{
		priority.TierFree, priority.TierFree, priority.TierFree,
		priority.TierStandard, priority.TierStandard,
		priority.TierPro, priority.TierEnterprise,
	}
)

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	seed := simSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	rules := make([]priority.Rule, 0, len(cfg.Priority.Rules))
	for _, r := range cfg.Priority.Rules {
		rules = append(rules, priority.Rule{Pattern: r.Pattern, Category: r.Category})
	}
	categorizer, err := priority.NewRules(rules, cfg.Priority.DefaultCategory)
	if err != nil {
		return fmt.Errorf("compiling priority rules: %w", err)
	}

	bus := event.NewBus()
	q := queue.New(
		queue.WithMaxBufferSize(cfg.Queue.MaxBufferSize),
		queue.WithConcurrencyCeiling(cfg.Queue.ConcurrencyCeiling),
		queue.WithOverflowDelay(cfg.Queue.OverflowDelay()),
		queue.WithAssumedTaskDuration(cfg.Queue.AssumedTaskDuration()),
		queue.WithBus(bus),
	)

	ctrl, err := scaling.NewController(
		scaling.WithMinInstances(cfg.Scaling.MinInstances),
		scaling.WithMaxInstances(cfg.Scaling.MaxInstances),
		scaling.WithScaleUpThreshold(cfg.Scaling.ScaleUpThreshold),
		scaling.WithScaleDownThreshold(cfg.Scaling.ScaleDownThreshold),
		// A short cooldown suits a run measured in seconds.
		scaling.WithCooldownPeriod(2*time.Second),
		scaling.WithQueueLengthWeight(cfg.Scaling.QueueLengthWeight),
		scaling.WithInitialInstances(cfg.Queue.ConcurrencyCeiling),
	)
	if err != nil {
		return fmt.Errorf("building capacity controller: %w", err)
	}

	autopilot := scaling.NewAutopilot(bus, ctrl, q, nil)
	var decisionsMu sync.Mutex
	var decisions []scaling.Decision
	autopilot.OnDecision(func(d scaling.Decision) {
		if d.Action == scaling.ActionHold {
			return
		}
		decisionsMu.Lock()
		decisions = append(decisions, d)
		decisionsMu.Unlock()
		fmt.Printf("  [scaling] %s -> %d instances (%s)\n",
			d.Action, ctrl.CurrentInstances(), d.Reason)
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go autopilot.Start(ctx)
	defer autopilot.Stop()

	smp := sampler.New(bus, q,
		sampler.WithInterval(time.Second),
		sampler.WithWindow(cfg.Sampler.Window()),
	)
	go smp.Start(ctx)
	defer smp.Stop()

	fmt.Printf("Submitting %d items at %d/s (seed %d)...\n\n", simItems, simRate, seed)

	byLevel := map[priority.Level]int{}
	futures := make([]*queue.Future, 0, simItems)
	interval := time.Second / time.Duration(simRate)
	start := time.Now()

	for i := 0; i < simItems; i++ {
		op := simOperations[rng.Intn(len(simOperations))]
		tier := simTiers[rng.Intn(len(simTiers))]
		category := categorizer.Categorize(op)
		level := priority.ScoreLevel(tier, category)
		byLevel[level]++

		taskTime := time.Duration(simTaskMs) * time.Millisecond
		// Jitter keeps the run from being lockstep.
		taskTime += time.Duration(rng.Intn(simTaskMs+1)) * time.Millisecond / 2

		f, err := q.Submit(&queue.WorkItem{
			OwnerID:  fmt.Sprintf("acct-%03d", rng.Intn(40)),
			Category: category,
			Priority: level,
			Task: func() (any, error) {
				time.Sleep(taskTime)
				return nil, nil
			},
		})
		if err != nil {
			return fmt.Errorf("submitting item %d: %w", i, err)
		}
		futures = append(futures, f)
		time.Sleep(interval)
	}

	for _, f := range futures {
		if _, err := f.Wait(ctx); err != nil {
			// Synthetic tasks never fail; a context error means interrupt.
			break
		}
	}
	elapsed := time.Since(start)

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer drainCancel()
	if err := q.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("draining: %w", err)
	}

	stats := q.Stats()
	fmt.Printf("\nDone in %s\n", elapsed.Round(10*time.Millisecond))
	fmt.Printf("  Submitted:   %d (high %d / normal %d / low %d)\n",
		simItems, byLevel[priority.LevelHigh], byLevel[priority.LevelNormal], byLevel[priority.LevelLow])
	fmt.Printf("  Overflowed:  %d\n", stats.OverflowCount)
	fmt.Printf("  Throughput:  %.1f items/s\n", float64(simItems)/elapsed.Seconds())
	fmt.Printf("  Final ceiling: %d (started at %d)\n",
		stats.ConcurrencyCeiling, cfg.Queue.ConcurrencyCeiling)
	decisionsMu.Lock()
	actions := len(decisions)
	decisionsMu.Unlock()
	fmt.Printf("  Scaling actions: %d\n", actions)
	return nil
}
