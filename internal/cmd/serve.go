package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gigbase/stagehand/internal/config"
	"github.com/gigbase/stagehand/internal/event"
	"github.com/gigbase/stagehand/internal/history"
	"github.com/gigbase/stagehand/internal/logging"
	"github.com/gigbase/stagehand/internal/metrics"
	"github.com/gigbase/stagehand/internal/queue"
	"github.com/gigbase/stagehand/internal/sampler"
	"github.com/gigbase/stagehand/internal/scaling"
	"github.com/gigbase/stagehand/internal/server"
)

// shutdownTimeout bounds how long serve waits for in-flight work on exit.
const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admission service",
	Long: `Serve wires the full admission pipeline and runs until interrupted:
the priority queue, the metrics sampler, the capacity controller with
its autopilot loop, the audit trail, and the diagnostics HTTP server.

On SIGINT or SIGTERM the service stops admitting, drains outstanding
work, and shuts the diagnostics server down.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := event.NewBus()

	// Prometheus collectors follow the bus; nothing else knows about them.
	metricsRec := metrics.NewRecorder(bus)
	metricsRec.Start()
	defer metricsRec.Stop()

	var store *history.Store
	var historyRec *history.Recorder
	if cfg.History.Enabled {
		path := cfg.History.ResolvePath()
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating history directory: %w", err)
			}
		}
		store, err = history.Open(path)
		if err != nil {
			return fmt.Errorf("opening history store: %w", err)
		}
		defer store.Close()
		historyRec = history.NewRecorder(store, bus, logger)
		historyRec.Start()
		defer historyRec.Stop()
		logger.Info("audit trail enabled", "path", path)
	}

	q := queue.New(
		queue.WithMaxBufferSize(cfg.Queue.MaxBufferSize),
		queue.WithConcurrencyCeiling(cfg.Queue.ConcurrencyCeiling),
		queue.WithOverflowDelay(cfg.Queue.OverflowDelay()),
		queue.WithAssumedTaskDuration(cfg.Queue.AssumedTaskDuration()),
		queue.WithBus(bus),
		queue.WithLogger(logger),
	)

	ctrl, err := scaling.NewController(
		scaling.WithMinInstances(cfg.Scaling.MinInstances),
		scaling.WithMaxInstances(cfg.Scaling.MaxInstances),
		scaling.WithScaleUpThreshold(cfg.Scaling.ScaleUpThreshold),
		scaling.WithScaleDownThreshold(cfg.Scaling.ScaleDownThreshold),
		scaling.WithCooldownPeriod(cfg.Scaling.CooldownPeriod()),
		scaling.WithQueueLengthWeight(cfg.Scaling.QueueLengthWeight),
		scaling.WithInitialInstances(cfg.Queue.ConcurrencyCeiling),
	)
	if err != nil {
		return fmt.Errorf("building capacity controller: %w", err)
	}

	autopilot := scaling.NewAutopilot(bus, ctrl, q, logger)
	go autopilot.Start(ctx)
	defer autopilot.Stop()

	smp := sampler.New(bus, q,
		sampler.WithInterval(cfg.Sampler.Interval()),
		sampler.WithWindow(cfg.Sampler.Window()),
		sampler.WithMemoryBudget(cfg.Sampler.MemoryBudgetMB),
		sampler.WithLogger(logger),
	)
	go smp.Start(ctx)
	defer smp.Stop()

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(cfg.Server.Addr, q, ctrl,
			server.WithHistory(store),
			server.WithRegistry(metrics.NewRegistry()),
			server.WithMetricsSource(smp),
			server.WithBus(bus),
			server.WithPushInterval(cfg.Server.PushInterval()),
			server.WithLogger(logger),
		)
		srv.Start(ctx)
	}

	watcher := startConfigWatcher(logger)
	if watcher != nil {
		defer watcher.Stop()
	}

	logger.Info("stagehand running",
		"ceiling", cfg.Queue.ConcurrencyCeiling,
		"buffer", cfg.Queue.MaxBufferSize,
		"server_enabled", cfg.Server.Enabled)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("diagnostics server shutdown failed", "error", err.Error())
		}
	}
	if err := q.Shutdown(shutdownCtx); err != nil {
		logger.Warn("queue drain incomplete", "error", err.Error())
		return err
	}
	logger.Info("drained cleanly")
	return nil
}

// buildLogger creates the service logger from config, or a no-op logger when
// logging is disabled.
func buildLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	logDir := filepath.Join(config.ConfigDir(), "logs")
	return logging.NewLoggerWithRotation(logDir, cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   true,
	})
}

// startConfigWatcher watches the loaded config file, if any. Reloads are
// logged; most sections take effect on restart, so the watcher's job is to
// tell operators their edit parsed and validated.
func startConfigWatcher(logger *logging.Logger) *config.Watcher {
	path := viper.ConfigFileUsed()
	if path == "" {
		return nil
	}
	watcher, err := config.NewWatcher(path)
	if err != nil {
		logger.Warn("config watcher unavailable", "error", err.Error())
		return nil
	}
	watcher.OnReload(func(cfg *config.Config) {
		logger.Info("configuration reloaded; restart to apply structural changes",
			"path", path, "log_level", cfg.Logging.Level)
	})
	watcher.OnError(func(err error) {
		logger.Warn("configuration change rejected", "error", err.Error())
	})
	watcher.Start()
	return watcher
}
