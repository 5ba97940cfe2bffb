package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Devext    DevextConfig
	LLM       LLMConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// DevextConfig holds extension session supervisor configuration.
type DevextConfig struct {
	EditorBin    string        `envconfig:"DEVEXT_EDITOR_BIN" default:"code"`
	GracePeriod  time.Duration `envconfig:"DEVEXT_GRACE_PERIOD" default:"5s"`
	OutputBudget int           `envconfig:"DEVEXT_OUTPUT_BUDGET" default:"1000"`
	DebugTools   bool          `envconfig:"DEVEXT_DEBUG_TOOLS" default:"false"`
}

// LLMConfig holds LLM query tool configuration.
// APIKey may be empty; the tools fail at call time instead of at startup.
type LLMConfig struct {
	APIKey       string        `envconfig:"LLM_API_KEY"`
	DefaultModel string        `envconfig:"LLM_DEFAULT_MODEL" default:"openai/gpt-4o-mini"`
	BaseURL      string        `envconfig:"LLM_BASE_URL" default:"https://openrouter.ai/api/v1"`
	PanelFile    string        `envconfig:"LLM_PANEL_FILE"`
	Timeout      time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	RateLimit    float64       `envconfig:"LLM_RATE_LIMIT" default:"5"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
		Devext: DevextConfig{
			EditorBin:    "code",
			GracePeriod:  5 * time.Second,
			OutputBudget: 1000,
			DebugTools:   false,
		},
		LLM: LLMConfig{
			DefaultModel: "openai/gpt-4o-mini",
			BaseURL:      "https://openrouter.ai/api/v1",
			Timeout:      60 * time.Second,
			RateLimit:    5,
		},
	}
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
