package components

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/harunnryd/seiri/internal/concurrency"
	"github.com/harunnryd/seiri/internal/config"
	"github.com/harunnryd/seiri/internal/daemon"
	"github.com/harunnryd/seiri/internal/dedup"
	"github.com/harunnryd/seiri/internal/event"
	"github.com/harunnryd/seiri/internal/pending"
	"github.com/harunnryd/seiri/internal/pipeline"
	"github.com/harunnryd/seiri/internal/stream"
)

// HTTPComponent serves the local introspection API: health, pipeline
// stats and the synchronized session list. It binds loopback only.
type HTTPComponent struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	stores   pipeline.Stores
	stream   *StreamComponent
	server   *http.Server
	started  time.Time
}

// StatsResponse is the /stats payload. The stats subcommand decodes it
// back for rendering, so the shape is shared here.
type StatsResponse struct {
	Uptime   string                   `json:"uptime"`
	Stream   stream.Stats             `json:"stream"`
	Ordering map[string]OrderingStats `json:"ordering"`
	Dedup    dedup.Stats              `json:"dedup"`
	Pending  pending.Stats            `json:"pending"`
	Sessions int                      `json:"sessions"`
	Messages int                      `json:"messages"`
	Parts    int                      `json:"parts"`
}

type OrderingStats struct {
	Cursor      int64  `json:"cursor"`
	Established bool   `json:"established"`
	HeldCount   int    `json:"held_count"`
	GapAge      string `json:"gap_age"`
}

// SessionList is the /sessions payload.
type SessionList struct {
	Count    int              `json:"count"`
	Sessions []*event.Session `json:"sessions"`
}

func NewHTTPComponent(cfg *config.Config, p *pipeline.Pipeline, stores pipeline.Stores, streamComp *StreamComponent) *HTTPComponent {
	return &HTTPComponent{
		cfg:      cfg,
		pipeline: p,
		stores:   stores,
		stream:   streamComp,
	}
}

func (h *HTTPComponent) Name() string {
	return "http"
}

func (h *HTTPComponent) Dependencies() []string {
	return []string{"stream"}
}

func (h *HTTPComponent) Init(ctx context.Context) error {
	readTimeout, err := config.DurationOrDefault(h.cfg.Server.ReadTimeout, config.DefaultServerReadTimeout)
	if err != nil {
		return err
	}
	writeTimeout, err := config.DurationOrDefault(h.cfg.Server.WriteTimeout, config.DefaultServerWriteTimeout)
	if err != nil {
		return err
	}
	idleTimeout, err := config.DurationOrDefault(h.cfg.Server.IdleTimeout, config.DefaultServerIdleTimeout)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /stats", h.handleStats)
	mux.HandleFunc("GET /sessions", h.handleSessions)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", h.cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}
	return nil
}

func (h *HTTPComponent) Start(ctx context.Context) error {
	h.started = time.Now()

	concurrency.SafeGo(func() {
		slog.Info("Introspection API listening", "addr", h.server.Addr)
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Introspection API failed", "error", err)
		}
	}, nil)
	return nil
}

func (h *HTTPComponent) Stop(ctx context.Context) error {
	if h.server == nil {
		return nil
	}

	shutdownTimeout, err := config.DurationOrDefault(h.cfg.Server.ShutdownTimeout, config.DefaultServerShutdownTimeout)
	if err != nil {
		shutdownTimeout = 5 * time.Second
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return h.server.Shutdown(shutdownCtx)
}

func (h *HTTPComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	return &daemon.ComponentHealth{Name: h.Name(), Healthy: h.server != nil}, nil
}

func (h *HTTPComponent) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	}
	if h.stream != nil && h.stream.Client() != nil {
		if err := h.stream.Client().Health(r.Context()); err != nil {
			status["status"] = "degraded"
			status["stream"] = err.Error()
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *HTTPComponent) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		Dedup:    h.pipeline.DedupStats(),
		Pending:  h.pipeline.PendingStats(),
		Ordering: make(map[string]OrderingStats),
		Sessions: h.stores.Sessions.Len(),
		Messages: h.stores.Messages.Len(),
		Parts:    h.stores.Parts.Len(),
	}
	for sessionID, stats := range h.pipeline.AllOrderingStats() {
		resp.Ordering[sessionID] = OrderingStats{
			Cursor:      stats.Cursor,
			Established: stats.Established,
			HeldCount:   stats.HeldCount,
			GapAge:      stats.GapAge.Round(time.Millisecond).String(),
		}
	}
	if h.stream != nil && h.stream.Client() != nil {
		resp.Stream = h.stream.Client().GetStats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPComponent) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.stores.Sessions.List()
	writeJSON(w, http.StatusOK, SessionList{
		Count:    len(sessions),
		Sessions: sessions,
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}
