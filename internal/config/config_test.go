package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 512, cfg.Model.MaxNewTokens)
	assert.Equal(t, 2048, cfg.Model.MaxPromptTokens)
	assert.InDelta(t, 0.2, cfg.Model.Temperature, 1e-9)
	assert.InDelta(t, 0.95, cfg.Model.TopP, 1e-9)
	assert.Equal(t, "metrics_log.csv", cfg.Metrics.File)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"empty model base url", func(c *Config) { c.Model.BaseURL = "" }},
		{"empty model name", func(c *Config) { c.Model.Model = "" }},
		{"zero max new tokens", func(c *Config) { c.Model.MaxNewTokens = 0 }},
		{"zero max prompt tokens", func(c *Config) { c.Model.MaxPromptTokens = 0 }},
		{"negative temperature", func(c *Config) { c.Model.Temperature = -0.1 }},
		{"top_p above one", func(c *Config) { c.Model.TopP = 1.5 }},
		{"empty embedding base url", func(c *Config) { c.Embedding.BaseURL = "" }},
		{"empty metrics file", func(c *Config) { c.Metrics.File = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9999
model:
  model: codellama-7b
corpus:
  dir: /var/lib/remedyd/recipes
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "codellama-7b", cfg.Model.Model)
	assert.Equal(t, "/var/lib/remedyd/recipes", cfg.Corpus.Dir)
	// Untouched fields keep defaults.
	assert.Equal(t, 512, cfg.Model.MaxNewTokens)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o600))

	t.Setenv("REMEDYD_SERVER_PORT", "7777")
	t.Setenv("REMEDYD_MODEL_BASE_URL", "http://inference:8080/v1")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "http://inference:8080/v1", cfg.Model.BaseURL)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	t.Setenv("REMEDYD_MODEL_MAX_NEW_TOKENS", "-1")

	_, err := Load("")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
