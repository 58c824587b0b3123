package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all PIE Fitness service configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// HTTP server
	Server ServerConfig `yaml:"server"`

	// LLM backend chain
	Backends BackendsConfig `yaml:"backends"`

	// Chatbot behavior
	Chat ChatConfig `yaml:"chat"`

	// Persistence
	Store StoreConfig `yaml:"store"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int    `yaml:"port"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// ChatConfig configures orchestrator behavior.
type ChatConfig struct {
	// Maximum stored length of one message; longer bot replies are chunked.
	MaxMessageLen int `yaml:"max_message_len"`

	// How many recent messages are fed to the model as history.
	HistoryWindow int `yaml:"history_window"`

	// Optional YAML file holding scope/truncation pattern catalogs.
	// When set, the file is watched and hot-reloaded.
	CatalogPath string `yaml:"catalog_path"`
}

// StoreConfig configures SQLite persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	DataDir      string `yaml:"data_dir"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, text
	DebugMode  bool            `yaml:"debug_mode"` // Master toggle - false = no category logs
	Categories map[string]bool `yaml:"categories"` // Per-category toggles
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "PIE Fitness Assistant",
		Version: "1.0.0",

		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: "10s",
		},

		Backends: BackendsConfig{
			Preferred: "groq",
			Groq: ProviderConfig{
				Model:   "llama-3.1-8b-instant",
				BaseURL: "https://api.groq.com/openai/v1",
				Timeout: "30s",
			},
			OpenAI: ProviderConfig{
				Model:   "gpt-3.5-turbo",
				BaseURL: "https://api.openai.com/v1",
				Timeout: "30s",
			},
			Gemini: ProviderConfig{
				Model:   "gemini-2.0-flash",
				Timeout: "30s",
			},
		},

		Chat: ChatConfig{
			MaxMessageLen: 2000,
			HistoryWindow: 6,
		},

		Store: StoreConfig{
			DatabasePath: "data/piefitness.db",
			DataDir:      "data",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides overrides config values from environment variables.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Backends.Groq.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Backends.OpenAI.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Backends.Gemini.APIKey = key
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		c.Backends.Preferred = provider
	}
	if model := os.Getenv("GROQ_MODEL"); model != "" {
		c.Backends.Groq.Model = model
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		c.Backends.OpenAI.Model = model
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if path := os.Getenv("PIEFITNESS_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// ShutdownTimeout parses the configured shutdown timeout.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
