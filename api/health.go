package api

import (
	"context"
	"net/http"

	"github.com/mnemo-ai/mnemo/internal/log"
)

// Pinger is a dependency the readiness probe can check.
// *pgxpool.Pool and *kv.Client both satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db     Pinger
	kv     Pinger
	logger log.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db, kv Pinger, logger log.Logger) *HealthHandler {
	return &HealthHandler{db: db, kv: kv, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness returns 200 OK if the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness returns 200 OK only when both backing stores answer a ping.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.db == nil || h.kv == nil {
		http.Error(w, "dependencies not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "dependency", "postgres", "error", err)
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	if err := h.kv.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "dependency", "redis", "error", err)
		http.Error(w, "key-value store not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
