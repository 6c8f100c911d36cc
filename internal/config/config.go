// Package config provides process configuration management with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.brandloom/config.yaml)
//  3. Default values
//
// This is the bootstrap configuration only: database connection, embedding
// provider selection, and the HTTP surface. Runtime engine tunables (quotas,
// cleanup policy, similarity threshold, context budget) live in the database
// and are served by the sysconfig package with its own TTL cache.
//
// Security: sensitive fields (password, HMAC secret) are masked in
// MarshalJSON/String; the config directory uses 0750 permissions.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Embedding provider identifiers used in Config.Provider.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

const (
	// DefaultEmbedderModel is the fallback embedding model when the runtime
	// system configuration has no embedding section yet.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultAPIAddr is the default listen address for serve mode.
	DefaultAPIAddr = "127.0.0.1:3600"
)

// Config stores process configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// Embedding provider configuration
	Provider      string `mapstructure:"provider" json:"provider"` // "gemini" (default), "ollama", "openai"
	EmbedderModel string `mapstructure:"embedder_model" json:"embedder_model"`
	OllamaHost    string `mapstructure:"ollama_host" json:"ollama_host"`

	// Outbound embedding call throttle (requests per second, 0 = unlimited)
	EmbedRPS float64 `mapstructure:"embed_rps" json:"embed_rps"`

	// Storage configuration (see storage.go for DSN helpers)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP API configuration (serve mode only)
	APIAddr     string   `mapstructure:"api_addr" json:"api_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // trust X-Real-IP/X-Forwarded-For (set true behind reverse proxy)

	// Cleanup scheduler interval in hours (serve mode). 0 disables the
	// in-process scheduler; an external cron can drive `brandloom cleanup`.
	CleanupIntervalHours int `mapstructure:"cleanup_interval_hours" json:"cleanup_interval_hours"`

	// Tracing configuration (serve mode only)
	OTLPEndpoint string `mapstructure:"otlp_endpoint" json:"otlp_endpoint"`
	Environment  string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".brandloom")

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

	// DATABASE_URL takes priority over individual postgres_* settings
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
	// Provider defaults
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("ollama_host", "http://localhost:11434")
	viper.SetDefault("embed_rps", 10.0)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "brandloom")
	viper.SetDefault("postgres_password", "brandloom_dev_password")
	viper.SetDefault("postgres_db_name", "brandloom")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// API defaults
	viper.SetDefault("api_addr", DefaultAPIAddr)
	viper.SetDefault("cors_origins", []string{"http://localhost:4200"})
	viper.SetDefault("trust_proxy", false)

	// Cleanup scheduler: weekly by default (168h), matching the original
	// external trigger cadence.
	viper.SetDefault("cleanup_interval_hours", 168)

	// Tracing defaults (empty endpoint = tracing disabled)
	viper.SetDefault("otlp_endpoint", "")
	viper.SetDefault("environment", "dev")
}

// bindEnvVariables binds environment variables explicitly.
// GEMINI_API_KEY / OPENAI_API_KEY are read directly by the Genkit provider
// plugins, not via viper; validation checks their presence per provider.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail).
	// If this panics, it's a BUG in our code, not a runtime error.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "BRANDLOOM_PROVIDER")
	mustBind("embedder_model", "BRANDLOOM_EMBEDDER_MODEL")
	mustBind("ollama_host", "BRANDLOOM_OLLAMA_HOST")
	mustBind("api_addr", "BRANDLOOM_API_ADDR")
	mustBind("cors_origins", "BRANDLOOM_CORS_ORIGINS")
	mustBind("trust_proxy", "BRANDLOOM_TRUST_PROXY")
	mustBind("otlp_endpoint", "BRANDLOOM_OTLP_ENDPOINT")
	mustBind("environment", "BRANDLOOM_ENVIRONMENT")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid substring matching against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Secrets of 8 characters or fewer are fully masked to prevent substring
// matching; longer secrets show the first and last 2 characters.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
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
