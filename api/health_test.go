package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mnemo-ai/mnemo/internal/log"
)

func healthMux(db, kv Pinger) *http.ServeMux {
	mux := http.NewServeMux()
	NewHealthHandler(db, kv, log.NewNop()).RegisterRoutes(mux)
	return mux
}

func TestLiveness(t *testing.T) {
	mux := healthMux(okPinger{}, okPinger{})

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestReadiness(t *testing.T) {
	t.Run("all dependencies up", func(t *testing.T) {
		mux := healthMux(okPinger{}, okPinger{})

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ready", w.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		mux := healthMux(okPinger{err: errors.New("refused")}, okPinger{})

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "database")
	})

	t.Run("key-value store down", func(t *testing.T) {
		mux := healthMux(okPinger{}, okPinger{err: errors.New("refused")})

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "key-value")
	})

	t.Run("unconfigured dependencies", func(t *testing.T) {
		mux := healthMux(nil, nil)

		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
