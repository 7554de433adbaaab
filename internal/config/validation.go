package config

import (
	"fmt"
	"log/slog"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidServerPort, c.Server.Port)
	}

	// 2. PostgreSQL validation
	if c.Database.Host == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.Database.Port)
	}

	if c.Database.DBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.Database.Password == "" {
		return fmt.Errorf("%w: database.password must be set", ErrInvalidPostgresPassword)
	}

	// Warn on the default dev password but don't block local development
	if c.Database.Password == "tasknest_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"hint", "change database.password for production deployments")
	}

	if c.Database.PoolMaxConns < 1 || c.Database.PoolMaxConns > 1000 {
		return fmt.Errorf("%w: must be between 1 and 1000, got %d", ErrInvalidPoolMaxConns, c.Database.PoolMaxConns)
	}

	// Modern SSL modes only; allow/prefer are deprecated (MITM vulnerable).
	// Reference: https://www.postgresql.org/docs/current/libpq-ssl.html
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.Database.SSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.Database.SSLMode, validSSLModes)
	}

	// 3. Auth validation
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: set JWT_SECRET or auth.jwt_secret", ErrMissingJWTSecret)
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("%w: must be at least 32 bytes, got %d", ErrInvalidJWTSecret, len(c.Auth.JWTSecret))
	}
	if c.Auth.TokenLifetime <= 0 {
		return fmt.Errorf("%w: must be positive, got %v", ErrInvalidTokenLifetime, c.Auth.TokenLifetime)
	}

	// 4. AI validation. Empty provider disables chat; a named provider must be
	// known and carry its API key so a misconfiguration fails at startup, not
	// on the first chat request.
	switch c.AI.Provider {
	case "":
		// chat disabled
	case ProviderGroq, ProviderOpenAI, ProviderGemini:
		if c.AI.APIKey() == "" {
			slog.Warn("chat provider selected but no API key set, chat will be unavailable",
				"provider", c.AI.Provider)
		}
	default:
		return fmt.Errorf("%w: %q is not valid, must be one of: groq, openai, gemini (or empty to disable chat)",
			ErrInvalidProvider, c.AI.Provider)
	}

	if c.AI.MaxTokens < 1 || c.AI.MaxTokens > 32768 {
		return fmt.Errorf("%w: must be between 1 and 32768, got %d", ErrInvalidMaxTokens, c.AI.MaxTokens)
	}

	if c.AI.MaxToolRounds < 1 || c.AI.MaxToolRounds > 20 {
		return fmt.Errorf("%w: must be between 1 and 20, got %d", ErrInvalidMaxToolRounds, c.AI.MaxToolRounds)
	}

	return nil
}
