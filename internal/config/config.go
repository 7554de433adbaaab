// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.tasknest/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Server: HTTP listen address, CORS, rate limiting (see ServerConfig)
//   - Database: PostgreSQL connection (see storage.go)
//   - Auth: JWT secret and token lifetime
//   - AI: chat provider selection, API keys, models, loop bounds
//   - MCP: stdio server user binding
//   - Tracing: OTLP trace export
//
// Security: sensitive fields (passwords, API keys, JWT secret) are masked in
// MarshalJSON and String. Validation uses sentinel errors checked with
// errors.Is(); Load fails fast on the first invalid value.
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

	// ErrInvalidServerPort indicates the HTTP port is out of range.
	ErrInvalidServerPort = errors.New("invalid server port")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidPoolMaxConns indicates the connection pool cap is out of range.
	ErrInvalidPoolMaxConns = errors.New("invalid PostgreSQL pool size")

	// ErrMissingJWTSecret indicates the JWT signing secret is not set.
	ErrMissingJWTSecret = errors.New("missing JWT secret")

	// ErrInvalidJWTSecret indicates the JWT signing secret is too short.
	ErrInvalidJWTSecret = errors.New("invalid JWT secret")

	// ErrInvalidTokenLifetime indicates the JWT lifetime is out of range.
	ErrInvalidTokenLifetime = errors.New("invalid token lifetime")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrMissingAPIKey indicates the selected AI provider has no API key.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidMaxToolRounds indicates the tool round bound is out of range.
	ErrInvalidMaxToolRounds = errors.New("invalid max tool rounds")
)

// AI provider identifiers used in AIConfig.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
)

// Default chat-completions endpoints for the OpenAI-compatible providers.
const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultGroqBaseURL   = "https://api.groq.com/openai/v1"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host        string   `mapstructure:"host" json:"host"`
	Port        int      `mapstructure:"port" json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // Trust X-Real-IP/X-Forwarded-For (set true behind reverse proxy)
	RateBurst   int      `mapstructure:"rate_burst" json:"rate_burst"`   // Per-IP token bucket burst (0 = default 60)
	MaxConns    int      `mapstructure:"max_conns" json:"max_conns"`     // Concurrent connection cap on the listener
	DevMode     bool     `mapstructure:"dev_mode" json:"dev_mode"`       // Drops HSTS for plain-HTTP local development
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the PostgreSQL settings (see storage.go for the DSN
// and URL builders).
type DatabaseConfig struct {
	Host         string `mapstructure:"host" json:"host"`
	Port         int    `mapstructure:"port" json:"port"`
	User         string `mapstructure:"user" json:"user"`
	Password     string `mapstructure:"password" json:"password"` // SENSITIVE: masked in MarshalJSON
	DBName       string `mapstructure:"db_name" json:"db_name"`
	SSLMode      string `mapstructure:"ssl_mode" json:"ssl_mode"`
	AutoMigrate  bool   `mapstructure:"auto_migrate" json:"auto_migrate"`     // Run pending migrations on serve startup
	PoolMaxConns int    `mapstructure:"pool_max_conns" json:"pool_max_conns"` // Connection pool size cap
}

// AuthConfig holds JWT issuance settings.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret" json:"jwt_secret"` // SENSITIVE: masked in MarshalJSON
	TokenLifetime time.Duration `mapstructure:"token_lifetime" json:"token_lifetime"`
}

// AIConfig holds the chat provider settings. Provider may be empty, in which
// case the chat endpoints degrade gracefully (503) and the rest of the API is
// unaffected.
type AIConfig struct {
	Provider string `mapstructure:"provider" json:"provider"` // "groq" (default), "openai", "gemini" or "" to disable

	GroqAPIKey   string `mapstructure:"groq_api_key" json:"groq_api_key"`     // SENSITIVE
	OpenAIAPIKey string `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE
	GeminiAPIKey string `mapstructure:"gemini_api_key" json:"gemini_api_key"` // SENSITIVE

	GroqModel   string `mapstructure:"groq_model" json:"groq_model"`
	OpenAIModel string `mapstructure:"openai_model" json:"openai_model"`
	GeminiModel string `mapstructure:"gemini_model" json:"gemini_model"`

	// Base URL overrides for the OpenAI-compatible providers. Defaults cover
	// the hosted endpoints; override for proxies or self-hosted gateways.
	OpenAIBaseURL string `mapstructure:"openai_base_url" json:"openai_base_url"`
	GroqBaseURL   string `mapstructure:"groq_base_url" json:"groq_base_url"`

	MaxTokens      int           `mapstructure:"max_tokens" json:"max_tokens"`
	MaxToolRounds  int           `mapstructure:"max_tool_rounds" json:"max_tool_rounds"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
}

// Configured reports whether a usable provider is selected: a known provider
// name with its API key present.
func (a AIConfig) Configured() bool {
	return a.Provider != "" && a.APIKey() != ""
}

// APIKey returns the API key for the selected provider.
func (a AIConfig) APIKey() string {
	switch a.Provider {
	case ProviderGroq:
		return a.GroqAPIKey
	case ProviderOpenAI:
		return a.OpenAIAPIKey
	case ProviderGemini:
		return a.GeminiAPIKey
	default:
		return ""
	}
}

// Model returns the model identifier for the selected provider.
func (a AIConfig) Model() string {
	switch a.Provider {
	case ProviderGroq:
		return a.GroqModel
	case ProviderOpenAI:
		return a.OpenAIModel
	case ProviderGemini:
		return a.GeminiModel
	default:
		return ""
	}
}

// BaseURL returns the chat-completions base URL for the OpenAI-compatible
// providers. Empty for Gemini, which speaks its own protocol.
func (a AIConfig) BaseURL() string {
	switch a.Provider {
	case ProviderGroq:
		if a.GroqBaseURL != "" {
			return a.GroqBaseURL
		}
		return DefaultGroqBaseURL
	case ProviderOpenAI:
		if a.OpenAIBaseURL != "" {
			return a.OpenAIBaseURL
		}
		return DefaultOpenAIBaseURL
	default:
		return ""
	}
}

// MCPConfig binds the stdio MCP server to one user's task list.
type MCPConfig struct {
	UserEmail string `mapstructure:"user_email" json:"user_email"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" json:"level"`
	JSON  bool   `mapstructure:"json" json:"json"`
}

// TracingConfig holds OTLP trace export settings.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" json:"enabled"`
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"`
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" json:"server"`
	Database DatabaseConfig `mapstructure:"database" json:"database"`
	Auth     AuthConfig     `mapstructure:"auth" json:"auth"`
	AI       AIConfig       `mapstructure:"ai" json:"ai"`
	MCP      MCPConfig      `mapstructure:"mcp" json:"mcp"`
	Log      LogConfig      `mapstructure:"log" json:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values
func Load() (*Config, error) {
	// Configuration directory: ~/.tasknest/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".tasknest")

	// Ensure directory exists (0750 keeps group access, blocks others)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	// Read configuration file (if exists)
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

	// DATABASE_URL overrides the individual database.* settings when set
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.trust_proxy", false)
	viper.SetDefault("server.rate_burst", 60)
	viper.SetDefault("server.max_conns", 512)
	viper.SetDefault("server.dev_mode", false)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "tasknest")
	viper.SetDefault("database.password", "tasknest_dev_password")
	viper.SetDefault("database.db_name", "tasknest")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.auto_migrate", true)
	viper.SetDefault("database.pool_max_conns", 10)

	// Auth defaults (jwt_secret has no default: it must be provided)
	viper.SetDefault("auth.token_lifetime", 168*time.Hour)

	// AI defaults
	viper.SetDefault("ai.provider", ProviderGroq)
	viper.SetDefault("ai.groq_model", "llama-3.3-70b-versatile")
	viper.SetDefault("ai.openai_model", "gpt-4o-mini")
	viper.SetDefault("ai.gemini_model", "gemini-2.0-flash")
	viper.SetDefault("ai.max_tokens", 1000)
	viper.SetDefault("ai.max_tool_rounds", 5)
	viper.SetDefault("ai.request_timeout", 60*time.Second)

	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.json", false)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.endpoint", "localhost:4318")
	viper.SetDefault("tracing.service_name", "tasknest")
	viper.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds environment variables explicitly. Secrets use their
// conventional names (GROQ_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY,
// JWT_SECRET, DATABASE_URL); operational overrides use the TASKNEST_ prefix.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key string, envVars ...string) {
		if err := viper.BindEnv(append([]string{key}, envVars...)...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %v: %v", key, envVars, err))
		}
	}

	// Provider API keys
	mustBind("ai.groq_api_key", "GROQ_API_KEY")
	mustBind("ai.openai_api_key", "OPENAI_API_KEY")
	mustBind("ai.gemini_api_key", "GEMINI_API_KEY")
	mustBind("ai.provider", "TASKNEST_AI_PROVIDER")

	// JWT signing secret
	mustBind("auth.jwt_secret", "JWT_SECRET")

	// Server overrides
	mustBind("server.host", "TASKNEST_HOST")
	mustBind("server.port", "TASKNEST_PORT")
	mustBind("server.cors_origins", "TASKNEST_CORS_ORIGINS")
	mustBind("server.trust_proxy", "TASKNEST_TRUST_PROXY")
	mustBind("server.dev_mode", "TASKNEST_DEV_MODE")

	// MCP user binding
	mustBind("mcp.user_email", "TASKNEST_MCP_USER")

	// Log overrides
	mustBind("log.level", "TASKNEST_LOG_LEVEL")
	mustBind("log.json", "TASKNEST_LOG_JSON")

	// NOTE: DATABASE_URL is parsed separately in parseDatabaseURL (it carries
	// several database.* fields in one value).
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid substring matching against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked; longer secrets keep the
// first and last 2 characters for debug utility.
//
// THREAT MODEL: defends against accidental logging of real secrets. It is not
// cryptographically secure; if logs are compromised, rotate secrets.
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
// Sensitive fields masked: Database.Password, Auth.JWTSecret, the three
// AI API keys. When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.Database.Password = maskSecret(a.Database.Password)
	a.Auth.JWTSecret = maskSecret(a.Auth.JWTSecret)
	a.AI.GroqAPIKey = maskSecret(a.AI.GroqAPIKey)
	a.AI.OpenAIAPIKey = maskSecret(a.AI.OpenAIAPIKey)
	a.AI.GeminiAPIKey = maskSecret(a.AI.GeminiAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
