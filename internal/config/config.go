// Package config loads service configuration from a YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Listen   string         `yaml:"listen"`
	LogLevel string         `yaml:"logLevel"`
	LLM      LLMConfig      `yaml:"llm"`
	Maps     MapsConfig     `yaml:"maps"`
	Chat     ChatConfig     `yaml:"chat"`
	Sessions SessionsConfig `yaml:"sessions"`
}

// LLMConfig selects and configures the completion backend.
type LLMConfig struct {
	// Provider is "anthropic" or "openai". The openai provider also
	// covers Azure OpenAI style deployments via BaseURL.
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseURL"`
}

// MapsConfig configures the mapping provider client.
type MapsConfig struct {
	APIKey        string `yaml:"apiKey"`
	GeocodeURL    string `yaml:"geocodeURL"`
	TextSearchURL string `yaml:"textSearchURL"`
}

// ChatConfig tunes conversation behavior.
type ChatConfig struct {
	// AutoRunTools is the default when a request does not set its own
	// autoRun flag.
	AutoRunTools bool `yaml:"autoRunTools"`
}

// SessionsConfig tunes the in-memory session store.
type SessionsConfig struct {
	// MaxIdle evicts sessions idle longer than this. Zero disables
	// eviction.
	MaxIdle Duration `yaml:"maxIdle"`
	// SweepSchedule is a cron expression for the eviction sweeper.
	SweepSchedule string `yaml:"sweepSchedule"`
}

// Duration unmarshals YAML values like "30m" or "2h" via
// time.ParseDuration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:   ":8080",
		LogLevel: "info",
		LLM: LLMConfig{
			Provider: "anthropic",
			Model:    "claude-sonnet-4-20250514",
		},
		Chat: ChatConfig{
			AutoRunTools: true,
		},
		Sessions: SessionsConfig{
			MaxIdle:       Duration(2 * time.Hour),
			SweepSchedule: "@every 15m",
		},
	}
}

// Load reads the file at path (when non-empty), layers environment
// overrides on top of the defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "anthropic", "openai":
	default:
		return fmt.Errorf("llm.provider must be anthropic or openai, got %q", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	return nil
}

// applyEnv overrides file values with PLACECHAT_* environment
// variables. Provider API keys also honor their conventional names.
func applyEnv(cfg *Config) {
	setString(&cfg.Listen, "PLACECHAT_LISTEN")
	setString(&cfg.LogLevel, "PLACECHAT_LOG_LEVEL")

	setString(&cfg.LLM.Provider, "PLACECHAT_LLM_PROVIDER")
	setString(&cfg.LLM.Model, "PLACECHAT_LLM_MODEL")
	setString(&cfg.LLM.APIKey, "PLACECHAT_LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "PLACECHAT_LLM_BASE_URL")
	if cfg.LLM.APIKey == "" && cfg.LLM.Provider == "anthropic" {
		setString(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
	}

	setString(&cfg.Maps.APIKey, "PLACECHAT_MAPS_API_KEY")
	if cfg.Maps.APIKey == "" {
		setString(&cfg.Maps.APIKey, "GOOGLE_MAPS_API_KEY")
	}

	setBool(&cfg.Chat.AutoRunTools, "PLACECHAT_AUTO_RUN_TOOLS")
	if v, ok := os.LookupEnv("PLACECHAT_SESSION_MAX_IDLE"); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sessions.MaxIdle = Duration(d)
		}
	}
	setString(&cfg.Sessions.SweepSchedule, "PLACECHAT_SESSION_SWEEP_SCHEDULE")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
