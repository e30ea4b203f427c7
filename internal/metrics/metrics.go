// Package metrics exposes admission and scaling metrics as Prometheus
// collectors. Collectors are plain package values registered explicitly by
// the caller; nothing touches the default registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Queue gauges, refreshed from metrics.sampled and queue.depth_changed
	// events.
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "stagehand_queue_depth", Help: "Buffered work items awaiting dispatch"},
	)
	Inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "stagehand_inflight", Help: "Work items currently executing"},
	)
	ConcurrencyCeiling = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "stagehand_concurrency_ceiling", Help: "Current concurrency ceiling"},
	)
	Utilization = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "stagehand_utilization_percent", Help: "Composite utilization driving scaling"},
	)
	Instances = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "stagehand_instances", Help: "Instance count tracked by the capacity controller"},
	)

	// Work lifecycle counters.
	Submitted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stagehand_submitted_total", Help: "Work items admitted"},
	)
	Completed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stagehand_completed_total", Help: "Work items finished, by outcome"},
		[]string{"status"},
	)
	Overflowed = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stagehand_overflowed_total", Help: "Work items routed through the overflow path"},
	)
	ScalingDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stagehand_scaling_decisions_total", Help: "Scaling decisions, by action"},
		[]string{"action"},
	)
	MetricsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stagehand_metrics_dropped_total", Help: "Metrics samples that could not be assembled"},
	)

	// Timings.
	WaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stagehand_wait_seconds",
			Help:    "Time spent buffered before dispatch",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms .. ~8s
		},
	)
	RunSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stagehand_run_seconds",
			Help:    "Task execution time",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
)

// Collectors returns every collector for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		QueueDepth, Inflight, ConcurrencyCeiling, Utilization, Instances,
		Submitted, Completed, Overflowed, ScalingDecisions, MetricsDropped,
		WaitSeconds, RunSeconds,
	}
}

// NewRegistry returns a registry with all collectors registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(Collectors()...)
	return reg
}
