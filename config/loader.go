// Package config loads the provider fallback chain and dispatcher settings
// from YAML, with environment-variable expansion, falling back to a
// single-provider chain built from environment variables when no file is
// present.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tutor.chat/providers"
)

// Config is the complete chat configuration.
type Config struct {
	Providers []ProviderConfig `yaml:"providers"`
	Fallback  FallbackConfig   `yaml:"fallback"`
}

// ProviderConfig is one chain entry from YAML. Order in the file is
// preference order: most capable first, cheapest-working last.
type ProviderConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

// FallbackConfig tunes the dispatcher.
type FallbackConfig struct {
	AttemptTimeout string `yaml:"attempt_timeout"`
	RateLimitDelay string `yaml:"rate_limit_delay"`
}

// Load reads the chat configuration from path. A missing file is not an
// error; the env-based fallback chain is used instead.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fromEnv()
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	for i := range config.Providers {
		config.Providers[i].BaseURL = expandEnv(config.Providers[i].BaseURL)
		config.Providers[i].APIKey = expandEnv(config.Providers[i].APIKey)
	}

	if len(config.Providers) == 0 {
		return nil, fmt.Errorf("no providers configured in %s", path)
	}
	return config, nil
}

// fromEnv builds a single-provider chain from OPENAI_API_KEY / API_URL /
// MODEL_NAME, the minimal deployment shape.
func fromEnv() (*Config, error) {
	baseURL := os.Getenv("API_URL")
	model := os.Getenv("MODEL_NAME")
	if baseURL == "" || model == "" {
		return nil, fmt.Errorf("no provider config file and API_URL/MODEL_NAME not set")
	}

	return &Config{
		Providers: []ProviderConfig{{
			Model:   model,
			BaseURL: baseURL,
			APIKey:  os.Getenv("OPENAI_API_KEY"),
		}},
	}, nil
}

// Chain converts the configured providers into dispatcher chain entries.
func (c *Config) Chain() []providers.Config {
	chain := make([]providers.Config, 0, len(c.Providers))
	for _, p := range c.Providers {
		timeout, _ := time.ParseDuration(p.Timeout)
		chain = append(chain, providers.Config{
			Model:   p.Model,
			BaseURL: p.BaseURL,
			APIKey:  p.APIKey,
			Timeout: timeout,
		})
	}
	return chain
}

// AttemptTimeout returns the configured per-attempt timeout, or fallback.
func (c *Config) AttemptTimeout(fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(c.Fallback.AttemptTimeout); err == nil && d > 0 {
		return d
	}
	return fallback
}

// RateLimitDelay returns the configured post-429 delay, or fallback.
func (c *Config) RateLimitDelay(fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(c.Fallback.RateLimitDelay); err == nil && d > 0 {
		return d
	}
	return fallback
}

// expandEnv expands ${VAR} and ${VAR:-default} references.
func expandEnv(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, func(key string) string {
		parts := strings.SplitN(key, ":-", 2)
		value := os.Getenv(parts[0])
		if value == "" && len(parts) > 1 {
			return parts[1]
		}
		return value
	})
}
