package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/mnemo-ai/mnemo/api"
	"github.com/mnemo-ai/mnemo/db"
	"github.com/mnemo-ai/mnemo/internal/assistant"
	"github.com/mnemo-ai/mnemo/internal/auth"
	"github.com/mnemo-ai/mnemo/internal/cache"
	"github.com/mnemo-ai/mnemo/internal/config"
	"github.com/mnemo-ai/mnemo/internal/database"
	"github.com/mnemo-ai/mnemo/internal/knowledge"
	"github.com/mnemo-ai/mnemo/internal/kv"
	"github.com/mnemo-ai/mnemo/internal/ratelimit"
)

// startupTimeout bounds the initial Postgres and Redis connections.
const startupTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := newLogger()
	logger.Info("starting mnemo", "version", AppVersion)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	startupCtx, startupCancel := context.WithTimeout(ctx, startupTimeout)
	defer startupCancel()

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database migrations applied")

	pool, err := database.NewPool(startupCtx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	kvClient, err := kv.Open(startupCtx, kv.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger.With("component", "kv"))
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if closeErr := kvClient.Close(); closeErr != nil {
			logger.Warn("closing redis client", "error", closeErr)
		}
	}()

	cacheStore := cache.New(kvClient, logger.With("component", "cache"))
	limiter := ratelimit.New(kvClient, ratelimit.Config{
		Limit:    cfg.RateLimit,
		Window:   cfg.RateWindow(),
		FailOpen: cfg.RateLimitFailOpen,
	}, logger.With("component", "ratelimit"))

	entries := knowledge.New(pool, logger.With("component", "knowledge"))
	users := auth.NewUserStore(pool, logger.With("component", "auth"))
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL())

	model := assistant.NewAnthropicModel(os.Getenv("ANTHROPIC_API_KEY"), cfg.ModelName, cfg.MaxTokens)
	orchestrator := assistant.New(model, entries, assistant.Config{
		MaxTurns: cfg.MaxTurns,
		CallRate: rate.Limit(2),
	}, logger.With("component", "assistant"))

	server := api.NewServer(api.Deps{
		Logger:        logger.With("component", "api"),
		Tokens:        tokens,
		Limiter:       limiter,
		Users:         users,
		Entries:       entries,
		Assistant:     orchestrator,
		Cache:         cacheStore,
		DB:            pool,
		KV:            kvClient,
		CollectionTTL: cfg.CollectionTTL(),
		ItemTTL:       cfg.ItemTTL(),
		CORSOrigins:   cfg.CORSOrigins,
	})

	return server.Run(ctx, cfg.ListenAddr)
}
