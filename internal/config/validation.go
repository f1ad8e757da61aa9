package config

import (
	"fmt"
	"log/slog"
	"os"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Assistant configuration
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	if c.MaxTokens < 1 || c.MaxTokens > 64000 {
		return fmt.Errorf("%w: must be between 1 and 64,000, got %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.MaxTurns < 1 || c.MaxTurns > MaxAllowedTurns {
		return fmt.Errorf("%w: must be between 1 and %d, got %d", ErrInvalidMaxTurns, MaxAllowedTurns, c.MaxTurns)
	}

	// PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	// Redis configuration
	if c.RedisAddr == "" {
		return fmt.Errorf("%w: address cannot be empty", ErrInvalidRedisAddr)
	}

	// Governance configuration
	if c.RateLimit < 1 {
		return fmt.Errorf("%w: rate_limit must be positive, got %d", ErrInvalidRateLimit, c.RateLimit)
	}
	if c.RateWindowSeconds < 1 {
		return fmt.Errorf("%w: rate_window_seconds must be positive, got %d", ErrInvalidRateLimit, c.RateWindowSeconds)
	}
	if c.CollectionTTLSeconds < 1 {
		return fmt.Errorf("%w: collection_ttl_seconds must be positive, got %d", ErrInvalidCacheTTL, c.CollectionTTLSeconds)
	}
	if c.ItemTTLSeconds < 1 {
		return fmt.Errorf("%w: item_ttl_seconds must be positive, got %d", ErrInvalidCacheTTL, c.ItemTTLSeconds)
	}

	return nil
}

// ValidateServe performs the additional checks required before starting the
// HTTP server. Split from Validate so offline commands (migrate, version)
// do not demand the serving secrets.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return fmt.Errorf("%w: ANTHROPIC_API_KEY environment variable is required", ErrMissingAPIKey)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("%w: set MNEMO_JWT_SECRET or jwt_secret in config.yaml", ErrMissingJWTSecret)
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("%w: must be at least 32 characters (got %d)", ErrInvalidJWTSecret, len(c.JWTSecret))
	}

	if c.PostgresPassword == "mnemo_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}

	return nil
}
