package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadChainOrderPreserved(t *testing.T) {
	t.Setenv("TEST_PRIMARY_KEY", "sk-primary")

	path := writeConfig(t, `
providers:
  - model: gpt-4o-mini
    base_url: https://api.example.com
    api_key: ${TEST_PRIMARY_KEY}
    timeout: 20s
  - model: llama-3-8b
    base_url: ${TEST_FALLBACK_URL:-http://localhost:3000}
fallback:
  attempt_timeout: 15s
  rate_limit_delay: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	chain := cfg.Chain()
	require.Len(t, chain, 2)
	assert.Equal(t, "gpt-4o-mini", chain[0].Model)
	assert.Equal(t, "sk-primary", chain[0].APIKey)
	assert.Equal(t, 20*time.Second, chain[0].Timeout)
	assert.Equal(t, "llama-3-8b", chain[1].Model)
	assert.Equal(t, "http://localhost:3000", chain[1].BaseURL)

	assert.Equal(t, 15*time.Second, cfg.AttemptTimeout(30*time.Second))
	assert.Equal(t, 3*time.Second, cfg.RateLimitDelay(2*time.Second))
}

func TestLoadDefaultsWhenUnset(t *testing.T) {
	path := writeConfig(t, `
providers:
  - model: m
    base_url: http://localhost:3000
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.AttemptTimeout(30*time.Second))
	assert.Equal(t, 2*time.Second, cfg.RateLimitDelay(2*time.Second))
}

func TestLoadEmptyProviders(t *testing.T) {
	path := writeConfig(t, "providers: []\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("API_URL", "http://localhost:3000")
	t.Setenv("MODEL_NAME", "llama-3-8b")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	chain := cfg.Chain()
	require.Len(t, chain, 1)
	assert.Equal(t, "llama-3-8b", chain[0].Model)
	assert.Equal(t, "sk-env", chain[0].APIKey)
}

func TestLoadMissingFileNoEnv(t *testing.T) {
	t.Setenv("API_URL", "")
	t.Setenv("MODEL_NAME", "")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
