// Package server exposes a read-only diagnostics API over HTTP: queue
// statistics, wait estimates, scaling state, the audit trail, Prometheus
// metrics, and a WebSocket stream pushing live snapshots. It never mutates
// the queue or the controller; operators act through configuration, not the
// API.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gigbase/stagehand/internal/event"
	"github.com/gigbase/stagehand/internal/history"
	"github.com/gigbase/stagehand/internal/logging"
	"github.com/gigbase/stagehand/internal/priority"
	"github.com/gigbase/stagehand/internal/queue"
	"github.com/gigbase/stagehand/internal/scaling"
)

// DefaultPushInterval is how often the WebSocket stream pushes a stats
// snapshot when no interval is configured.
const DefaultPushInterval = time.Second

// QueueInfo is the read-only queue surface the API serves.
type QueueInfo interface {
	Stats() queue.QueueStats
	EstimateWait(level priority.Level) time.Duration
}

// MetricsSource supplies on-demand load snapshots for dry-run scaling
// recommendations. The sampler implements it.
type MetricsSource interface {
	Sample() (*scaling.Metrics, string)
}

// Server is the diagnostics HTTP server.
type Server struct {
	addr         string
	queue        QueueInfo
	controller   *scaling.Controller
	source       MetricsSource
	store        *history.Store
	registry     *prometheus.Registry
	bus          *event.Bus
	hub          *Hub
	pushInterval time.Duration
	logger       *logging.Logger

	upgrader websocket.Upgrader
	httpSrv  *http.Server
	subID    string
	cancel   context.CancelFunc
}

// Option configures a Server.
type Option func(*Server)

// WithHistory serves the audit trail from store. Without it the history
// endpoints return 404.
func WithHistory(store *history.Store) Option {
	return func(s *Server) { s.store = store }
}

// WithRegistry serves Prometheus metrics from reg at /metrics. Without it
// the endpoint returns 404.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithMetricsSource enables dry-run scaling recommendations.
func WithMetricsSource(src MetricsSource) Option {
	return func(s *Server) { s.source = src }
}

// WithBus streams scaling decisions to WebSocket clients as they happen.
func WithBus(bus *event.Bus) Option {
	return func(s *Server) { s.bus = bus }
}

// WithPushInterval sets the WebSocket stats push cadence.
func WithPushInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pushInterval = d
		}
	}
}

// WithLogger sets the logger. The server logs under the "server" component.
func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a Server listening on addr, serving q's statistics and ctrl's
// scaling state.
func New(addr string, q QueueInfo, ctrl *scaling.Controller, opts ...Option) *Server {
	s := &Server{
		addr:         addr,
		queue:        q,
		controller:   ctrl,
		pushInterval: DefaultPushInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NopLogger()
	}
	s.logger = s.logger.WithComponent("server")
	s.hub = NewHub(s.logger)
	return s
}

// Handler returns the routed handler. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/estimate", s.handleEstimate)
	mux.HandleFunc("/api/scaling", s.handleScaling)
	mux.HandleFunc("/api/scaling/recommendation", s.handleRecommendation)
	mux.HandleFunc("/api/history/decisions", s.handleDecisions)
	mux.HandleFunc("/api/history/outcomes", s.handleOutcomes)
	mux.HandleFunc("/api/history/summary", s.handleSummary)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/ws", s.handleWS)
	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start begins listening and pushing WebSocket updates. It returns once the
// listener is running; errors from the listener are logged, not returned,
// because the diagnostics server must never take admission down with it.
func (s *Server) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.bus != nil {
		s.subID = s.bus.Subscribe("scaling.decision", func(e event.Event) {
			if de, ok := e.(event.ScalingDecisionEvent); ok {
				s.hub.Broadcast(map[string]any{"type": "decision", "decision": de})
			}
		})
	}

	s.httpSrv = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go s.pushLoop(ctx)
	go func() {
		s.logger.Info("diagnostics server listening", "addr", s.addr)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("diagnostics server failed", "error", err.Error())
		}
	}()
}

// pushLoop broadcasts a stats snapshot to WebSocket clients on the push
// interval.
func (s *Server) pushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.hub.ClientCount() == 0 {
				continue
			}
			s.hub.Broadcast(map[string]any{"type": "stats", "stats": s.queue.Stats()})
		case <-ctx.Done():
			return
		}
	}
}

// Shutdown stops the listener and disconnects WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.bus != nil && s.subID != "" {
		s.bus.Unsubscribe(s.subID)
		s.subID = ""
	}
	s.hub.CloseAll()
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.queue.Stats())
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	level, err := priority.ParseLevel(r.URL.Query().Get("priority"))
	if err != nil {
		http.Error(w, "priority must be high, normal, or low", http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{
		"priority":          level.String(),
		"estimated_wait_ms": s.queue.EstimateWait(level).Milliseconds(),
	})
}

func (s *Server) handleScaling(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	min, max := s.controller.Bounds()
	resp := map[string]any{
		"instances":             s.controller.CurrentInstances(),
		"min_instances":         min,
		"max_instances":         max,
		"cooldown_remaining_ms": s.controller.CooldownRemaining().Milliseconds(),
	}
	if last, ok := s.controller.LastDecision(); ok {
		resp["last_decision"] = last
	}
	writeJSON(w, resp)
}

// handleRecommendation is a dry run: it samples current load and reports
// what the controller would do, without applying anything or consuming the
// cooldown.
func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.source == nil {
		http.Error(w, "no metrics source configured", http.StatusNotFound)
		return
	}
	m, reason := s.source.Sample()
	if m == nil {
		http.Error(w, "metrics unavailable: "+reason, http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{
		"metrics":  m,
		"decision": s.controller.Recommend(m),
	})
}

func (s *Server) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	records, err := s.store.RecentDecisions(parseLimit(r))
	if err != nil {
		s.logger.Error("history query failed", "error", err.Error())
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

func (s *Server) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	records, err := s.store.RecentOutcomes(parseLimit(r))
	if err != nil {
		s.logger.Error("history query failed", "error", err.Error())
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	counts, err := s.store.Counts()
	if err != nil {
		s.logger.Error("history query failed", "error", err.Error())
		http.Error(w, "history query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, counts)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err.Error())
		return
	}
	s.hub.Add(conn)

	// Initial snapshot so dashboards render without waiting for a tick. Must
	// go through the hub: once Add registers the connection, a concurrent
	// Broadcast may write it, and a second unserialized writer panics.
	s.hub.Send(conn, map[string]any{"type": "stats", "stats": s.queue.Stats()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// parseLimit reads the limit query parameter, defaulting to 50.
func parseLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 50
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 50
	}
	return n
}
