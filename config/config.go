// Package config loads server configuration from YAML with
// environment fallbacks for secrets.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the chatty server configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `yaml:"addr"`

	// JWTSecret verifies session tokens. Issuance happens elsewhere.
	JWTSecret string `yaml:"jwt_secret"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Upstream UpstreamConfig `yaml:"upstream"`
	Database DatabaseConfig `yaml:"database"`
}

// UpstreamConfig points at the completion service.
type UpstreamConfig struct {
	// BaseURL of an OpenAI-compatible endpoint. Empty uses the
	// default OpenAI API.
	BaseURL string `yaml:"base_url"`

	// APIKey falls back to OPENAI_API_KEY when empty.
	APIKey string `yaml:"api_key"`

	Model        string `yaml:"model"`
	MaxTokens    int    `yaml:"max_tokens"`
	SystemPrompt string `yaml:"system_prompt"`
}

// DatabaseConfig selects the persistence backend. An empty DSN runs
// the in-memory store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr:     ":8080",
		LogLevel: "info",
	}
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Parse loads a Config from YAML, applying defaults and env
// fallbacks.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalWithOptions(data, cfg, yaml.Strict()); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() {
	if c.Upstream.APIKey == "" {
		c.Upstream.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.JWTSecret == "" {
		c.JWTSecret = os.Getenv("CHATTY_JWT_SECRET")
	}
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required (or set CHATTY_JWT_SECRET)")
	}
	return nil
}
