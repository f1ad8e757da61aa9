// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, MNEMO_* plus DATABASE_URL
//     and REDIS_URL for cloud deployments)
//  2. Config file (~/.mnemo/config.yaml or ./config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Server: listen address, request timeouts
//   - Storage: PostgreSQL connection (see storage.go), Redis connection
//   - Auth: JWT secret and token lifetime
//   - Assistant: Anthropic model, token budget, turn cap
//   - Governance: rate limit window/size and cache TTLs
//
// Security: sensitive data (passwords, secrets, API keys) is masked in
// MarshalJSON and never logged.
// Validation: range checks in validation.go with sentinel errors for
// Go-idiomatic checking via errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the Anthropic API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrMissingJWTSecret indicates the JWT signing secret is not set.
	ErrMissingJWTSecret = errors.New("missing JWT secret")

	// ErrInvalidJWTSecret indicates the JWT signing secret is too short.
	ErrInvalidJWTSecret = errors.New("invalid JWT secret")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidMaxTurns indicates the assistant turn cap is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidRedisAddr indicates the Redis address is invalid.
	ErrInvalidRedisAddr = errors.New("invalid Redis address")

	// ErrInvalidRateLimit indicates the rate limit parameters are out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidCacheTTL indicates a cache TTL is out of range.
	ErrInvalidCacheTTL = errors.New("invalid cache TTL")
)

// Defaults for the assistant loop and request governance.
const (
	// DefaultModelName is the Anthropic model used for the chat endpoint.
	DefaultModelName = "claude-sonnet-4-5"

	// DefaultMaxTurns bounds the agentic loop. A misbehaving endpoint that
	// keeps requesting tools is cut off after this many dispatches.
	DefaultMaxTurns = 8

	// MaxAllowedTurns is the absolute cap accepted from configuration.
	MaxAllowedTurns = 32

	// DefaultRateLimit is the number of requests allowed per window.
	DefaultRateLimit = 100

	// DefaultRateWindowSeconds is the fixed rate-limit window length.
	DefaultRateWindowSeconds = 60

	// DefaultCollectionTTLSeconds is the cache TTL for entry collections.
	DefaultCollectionTTLSeconds = 900

	// DefaultItemTTLSeconds is the cache TTL for single entries and chat
	// responses.
	DefaultItemTTLSeconds = 300
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update
// MarshalJSON.
type Config struct {
	// HTTP server
	ListenAddr  string   `mapstructure:"listen_addr" json:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`

	// Assistant configuration
	ModelName string `mapstructure:"model_name" json:"model_name"`
	MaxTokens int    `mapstructure:"max_tokens" json:"max_tokens"`
	MaxTurns  int    `mapstructure:"max_turns" json:"max_turns"`

	// Auth configuration
	JWTSecret       string `mapstructure:"jwt_secret" json:"jwt_secret"` // SENSITIVE: masked in MarshalJSON
	TokenTTLMinutes int    `mapstructure:"token_ttl_minutes" json:"token_ttl_minutes"`

	// Rate limit configuration
	RateLimit         int  `mapstructure:"rate_limit" json:"rate_limit"`
	RateWindowSeconds int  `mapstructure:"rate_window_seconds" json:"rate_window_seconds"`
	RateLimitFailOpen bool `mapstructure:"rate_limit_fail_open" json:"rate_limit_fail_open"`

	// Cache configuration
	CollectionTTLSeconds int `mapstructure:"collection_ttl_seconds" json:"collection_ttl_seconds"`
	ItemTTLSeconds       int `mapstructure:"item_ttl_seconds" json:"item_ttl_seconds"`

	// PostgreSQL configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Redis configuration
	RedisAddr     string `mapstructure:"redis_addr" json:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" json:"redis_password"` // SENSITIVE: masked in MarshalJSON
	RedisDB       int    `mapstructure:"redis_db" json:"redis_db"`
}

// TokenTTL returns the JWT lifetime as a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// RateWindow returns the rate-limit window as a duration.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSeconds) * time.Second
}

// CollectionTTL returns the collection cache TTL as a duration.
func (c *Config) CollectionTTL() time.Duration {
	return time.Duration(c.CollectionTTLSeconds) * time.Second
}

// ItemTTL returns the single-item cache TTL as a duration.
func (c *Config) ItemTTL() time.Duration {
	return time.Duration(c.ItemTTLSeconds) * time.Second
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".mnemo")

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL and REDIS_URL override individual settings (cloud
	// platforms set these as single connection strings).
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}
	if err := cfg.parseRedisURL(); err != nil {
		return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Server defaults
	viper.SetDefault("listen_addr", "127.0.0.1:8000")

	// CORS default (the frontend dev server)
	viper.SetDefault("cors_origins", []string{"http://localhost:3000"})

	// Assistant defaults
	viper.SetDefault("model_name", DefaultModelName)
	viper.SetDefault("max_tokens", 1024)
	viper.SetDefault("max_turns", DefaultMaxTurns)

	// Auth defaults (24h tokens)
	viper.SetDefault("token_ttl_minutes", 1440)

	// Governance defaults
	viper.SetDefault("rate_limit", DefaultRateLimit)
	viper.SetDefault("rate_window_seconds", DefaultRateWindowSeconds)
	viper.SetDefault("rate_limit_fail_open", false)
	viper.SetDefault("collection_ttl_seconds", DefaultCollectionTTLSeconds)
	viper.SetDefault("item_ttl_seconds", DefaultItemTTLSeconds)

	// PostgreSQL defaults for local development
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "mnemo")
	viper.SetDefault("postgres_password", "mnemo_dev_password")
	viper.SetDefault("postgres_db_name", "mnemo")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Redis defaults
	viper.SetDefault("redis_addr", "localhost:6379")
	viper.SetDefault("redis_password", "")
	viper.SetDefault("redis_db", 0)
}

// bindEnvVariables binds environment variables explicitly.
// DATABASE_URL, REDIS_URL and ANTHROPIC_API_KEY are handled outside Viper:
// the URLs in parseDatabaseURL/parseRedisURL, the API key directly by the
// Anthropic client (its presence is checked in Validate).
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("listen_addr", "MNEMO_LISTEN_ADDR")
	mustBind("cors_origins", "MNEMO_CORS_ORIGINS")
	mustBind("model_name", "MNEMO_MODEL_NAME")
	mustBind("max_turns", "MNEMO_MAX_TURNS")
	mustBind("jwt_secret", "MNEMO_JWT_SECRET")
	mustBind("rate_limit", "MNEMO_RATE_LIMIT")
	mustBind("rate_window_seconds", "MNEMO_RATE_WINDOW_SECONDS")
	mustBind("rate_limit_fail_open", "MNEMO_RATE_LIMIT_FAIL_OPEN")
}

// maskedValue is the placeholder for masked sensitive data.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets show
// the first and last 2 characters for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked: JWTSecret, PostgresPassword, RedisPassword.
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.JWTSecret = maskSecret(c.JWTSecret)
	a.PostgresPassword = maskSecret(c.PostgresPassword)
	a.RedisPassword = maskSecret(c.RedisPassword)
	return json.Marshal(a)
}
