// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// defaultModels is the allow-list of selectable completion models.
const defaultModels = "mixtral-8x7b-32768," +
	"llama-3.3-70b-specdec," +
	"llama-3.3-70b-versatile," +
	"llama3-8b-8192," +
	"llama-guard-3-8b," +
	"llama3-70b-8192," +
	"llama-3.2-1b-preview," +
	"whisper-large-v3-turbo," +
	"llama-3.2-3b-preview," +
	"gemma2-9b-it," +
	"distil-whisper-large-v3-en"

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Session tokens
	SecretKey    string        `env:"SECRET_KEY,required"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"true"`

	// External completion API
	CompletionAPIURL  string        `env:"COMPLETION_API_URL" envDefault:"https://api.groq.com/openai/v1"`
	CompletionAPIKey  string        `env:"COMPLETION_API_KEY,required"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"30s"`

	// Comma-separated allow-list of selectable model names.
	ModelAllowList string `env:"MODEL_ALLOW_LIST"`

	// Conversation history sizing
	// ContextWindow bounds the exchanges replayed to the model per ask;
	// HistoryLimit bounds what GET /chat/get_conversation returns.
	ContextWindow int `env:"CONTEXT_WINDOW" envDefault:"5"`
	HistoryLimit  int `env:"HISTORY_LIMIT" envDefault:"10"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "http://localhost:3000")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Models parses the model allow-list into a slice.
func (c *Config) Models() []string {
	raw := c.ModelAllowList
	if raw == "" {
		raw = defaultModels
	}
	return splitTrimmed(raw)
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	return splitTrimmed(c.CORSAllowedOrigins)
}

func splitTrimmed(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// A .env file in the working directory is applied first when present.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
