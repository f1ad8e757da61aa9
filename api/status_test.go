package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemo-ai/mnemo/internal/cache"
	"github.com/mnemo-ai/mnemo/internal/log"
	"github.com/mnemo-ai/mnemo/internal/ratelimit"
)

func TestLimits(t *testing.T) {
	h := NewStatusHandler(cache.New(newMemoryKV(), log.NewNop()), log.NewNop())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	t.Run("reports the middleware result", func(t *testing.T) {
		result := ratelimit.Result{Allowed: true, Limit: 100, Remaining: 73, ResetAt: 1_900_000_000}
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, withLimit(httptest.NewRequest(http.MethodGet, "/api/limits", nil), result))

		require.Equal(t, http.StatusOK, w.Code)
		var got ratelimit.Result
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, result, got)
	})

	t.Run("missing result is an internal error", func(t *testing.T) {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/limits", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCacheStats(t *testing.T) {
	t.Run("reports hit rate", func(t *testing.T) {
		h := NewStatusHandler(cache.New(newMemoryKV(), log.NewNop()), log.NewNop())
		mux := http.NewServeMux()
		h.RegisterRoutes(mux)

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))

		require.Equal(t, http.StatusOK, w.Code)
		var stats cache.Stats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, "75.0%", stats.HitRate)
		assert.Equal(t, int64(3), stats.KeyspaceHits)
	})

	t.Run("store outage returns 503", func(t *testing.T) {
		kv := newMemoryKV()
		kv.infoErr = errors.New("connection refused")
		h := NewStatusHandler(cache.New(kv, log.NewNop()), log.NewNop())
		mux := http.NewServeMux()
		h.RegisterRoutes(mux)

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
