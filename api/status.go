package api

import (
	"net/http"

	"github.com/mnemo-ai/mnemo/internal/cache"
	"github.com/mnemo-ai/mnemo/internal/log"
)

// StatusHandler exposes rate-limit standing and cache statistics.
type StatusHandler struct {
	cache  *cache.Store
	logger log.Logger
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(cacheStore *cache.Store, logger log.Logger) *StatusHandler {
	return &StatusHandler{cache: cacheStore, logger: logger}
}

// RegisterRoutes registers status routes on the given mux.
func (h *StatusHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/limits", h.limits)
	mux.HandleFunc("GET /api/cache/stats", h.cacheStats)
}

// limits reports the caller's current rate-limit standing. The middleware
// already ran the check for this very request, so the result comes from
// the request context rather than a second counter increment.
func (h *StatusHandler) limits(w http.ResponseWriter, r *http.Request) {
	result, ok := limitFrom(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "rate limit state unavailable")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *StatusHandler) cacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.cache.Stats(r.Context())
	if err != nil {
		h.logger.Error("cache stats failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "cache_unavailable", "cache statistics are unavailable")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
