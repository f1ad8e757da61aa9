// Package api provides the HTTP REST API for mnemo.
//
// Endpoints:
//
//	POST   /api/auth/register  →  create an account, returns a token
//	POST   /api/auth/login     →  exchange credentials for a token
//	GET    /api/entries        →  list entries (cached)
//	POST   /api/entries        →  create an entry
//	GET    /api/entries/{id}   →  fetch one entry (cached)
//	PUT    /api/entries/{id}   →  update an entry
//	DELETE /api/entries/{id}   →  delete an entry
//	POST   /api/chat           →  ask the assistant (cached per question)
//	GET    /api/limits         →  current rate-limit standing
//	GET    /api/cache/stats    →  cache statistics
//	GET    /health             →  liveness probe
//	GET    /ready              →  readiness probe (Postgres + Redis)
//
// Everything under /api/ except the auth endpoints requires a Bearer token
// and passes through the per-user rate limiter.
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: recovery, logging, auth, rate limiting
//   - auth.go: registration and login
//   - entries.go: knowledge entry CRUD with read-through caching
//   - chat.go: assistant endpoint
//   - status.go: rate-limit and cache introspection
//   - health.go: probes
//   - response.go: JSON response helpers
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/mnemo-ai/mnemo/internal/auth"
	"github.com/mnemo-ai/mnemo/internal/cache"
	"github.com/mnemo-ai/mnemo/internal/log"
	"github.com/mnemo-ai/mnemo/internal/ratelimit"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads to stop Slowloris-style
	// connection hoarding.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Chat responses wait on the model, so this is generous.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second
)

// Deps carries everything the server's handlers and middleware need.
type Deps struct {
	Logger    log.Logger
	Tokens    *auth.Tokens
	Limiter   *ratelimit.Limiter
	Users     UserService
	Entries   EntryStore
	Assistant Assistant
	Cache     *cache.Store

	// DB and KV back the readiness probe.
	DB Pinger
	KV Pinger

	// Cache TTLs for the entry endpoints.
	CollectionTTL time.Duration
	ItemTTL       time.Duration

	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string
}

// Server is the HTTP server for mnemo's REST API.
type Server struct {
	mux         *http.ServeMux
	logger      log.Logger
	corsOrigins []string
}

// NewServer creates a new HTTP server with all routes registered.
// Protected routes are wrapped with auth and rate-limit middleware here;
// recovery and logging wrap the whole mux in Handler.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()

	NewHealthHandler(deps.DB, deps.KV, logger).RegisterRoutes(mux)
	NewAuthHandler(deps.Users, deps.Tokens, logger).RegisterRoutes(mux)

	protected := http.NewServeMux()
	NewEntriesHandler(deps.Entries, deps.Cache, deps.CollectionTTL, deps.ItemTTL, logger).RegisterRoutes(protected)
	NewChatHandler(deps.Assistant, deps.Cache, deps.ItemTTL, logger).RegisterRoutes(protected)
	NewStatusHandler(deps.Cache, logger).RegisterRoutes(protected)

	// auth endpoints are registered with more specific patterns, so they
	// win over this subtree
	mux.Handle("/api/", chain(protected,
		requireAuth(deps.Tokens, logger),
		rateLimitMiddleware(deps.Limiter, logger)))

	return &Server{mux: mux, logger: logger, corsOrigins: deps.CORSOrigins}
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery, logging, CORS, then the mux. CORS sits
// before routing so preflight OPTIONS requests are answered without
// needing a matching route.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
		corsMiddleware(s.corsOrigins))
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
