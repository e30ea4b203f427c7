// Package scaling provides utilization-based capacity decisions for the
// admission queue.
//
// Under load, the queue's concurrency ceiling may need to grow or shrink.
// The scaling package folds periodic load snapshots into a single-step
// controller and, through the autopilot, applies the resulting target to
// the queue.
//
// The core types are:
//
//   - [Controller]: Evaluates snapshots against thresholds, bounds, and a
//     cooldown, one step at a time
//   - [Autopilot]: Watches metrics.sampled events on the event bus and
//     applies controller output to the queue's ceiling
//   - [Decision]: The output of an evaluation (scale up, scale down, or hold)
//
// # Usage
//
//	ctrl, err := scaling.NewController(
//	    scaling.WithMinInstances(1),
//	    scaling.WithMaxInstances(10),
//	    scaling.WithScaleUpThreshold(70),
//	    scaling.WithScaleDownThreshold(30),
//	    scaling.WithCooldownPeriod(30 * time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//
//	pilot := scaling.NewAutopilot(bus, ctrl, queue, logger)
//	pilot.OnDecision(func(d scaling.Decision) {
//	    log.Printf("scaling: %s delta=%d reason=%s", d.Action, d.Delta, d.Reason)
//	})
//	go pilot.Start(ctx)
//	defer pilot.Stop()
//
// # Thread Safety
//
// All types in this package are safe for concurrent use.
package scaling
