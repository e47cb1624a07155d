// Package config provides configuration loading for remedyd.
package config

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig indicates invalid configuration.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration for remedyd.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Model     ModelConfig     `koanf:"model"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Corpus    CorpusConfig    `koanf:"corpus"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// ModelConfig holds generation backend configuration.
//
// The backend speaks the OpenAI-compatible completion API, which covers
// local inference servers (llama.cpp, vLLM, Ollama) as well as hosted
// endpoints.
type ModelConfig struct {
	// BaseURL is the inference server endpoint.
	BaseURL string `koanf:"base_url"`

	// Model is the model identifier, possibly namespaced
	// (e.g. "deepseek-ai/deepseek-coder-1.3b-base").
	Model string `koanf:"model"`

	// APIKey is optional for local servers.
	APIKey string `koanf:"api_key"`

	// MaxNewTokens caps generated tokens per request.
	MaxNewTokens int `koanf:"max_new_tokens"`

	// MaxPromptTokens caps the prompt length; longer prompts are
	// truncated before inference.
	MaxPromptTokens int `koanf:"max_prompt_tokens"`

	// Temperature and TopP are sampling parameters. Generation is
	// stochastic; callers must not assume determinism.
	Temperature float64 `koanf:"temperature"`
	TopP        float64 `koanf:"top_p"`
}

// EmbeddingConfig holds embedding service configuration.
type EmbeddingConfig struct {
	// BaseURL is the TEI (Text Embeddings Inference) endpoint.
	BaseURL string `koanf:"base_url"`

	// Model is the embedding model name (informational; the TEI
	// server decides which model it serves).
	Model string `koanf:"model"`
}

// CorpusConfig holds guidance corpus configuration.
type CorpusConfig struct {
	// Dir is the directory of plain-text guidance documents, read
	// once at first retrieval use.
	Dir string `koanf:"dir"`
}

// MetricsConfig holds request metrics persistence configuration.
type MetricsConfig struct {
	// File is the CSV file metrics rows are appended to.
	File string `koanf:"file"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DefaultConfig returns configuration with production-ready defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8000,
		},
		Model: ModelConfig{
			BaseURL:         "http://localhost:8080/v1",
			Model:           "deepseek-ai/deepseek-coder-1.3b-base",
			MaxNewTokens:    512,
			MaxPromptTokens: 2048,
			Temperature:     0.2,
			TopP:            0.95,
		},
		Embedding: EmbeddingConfig{
			BaseURL: "http://localhost:8081",
			Model:   "BAAI/bge-small-en-v1.5",
		},
		Corpus: CorpusConfig{
			Dir: "recipes",
		},
		Metrics: MetricsConfig{
			File: "metrics_log.csv",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Model.BaseURL == "" {
		return fmt.Errorf("%w: model base URL required", ErrInvalidConfig)
	}
	if c.Model.Model == "" {
		return fmt.Errorf("%w: model name required", ErrInvalidConfig)
	}
	if c.Model.MaxNewTokens <= 0 {
		return fmt.Errorf("%w: max_new_tokens must be positive", ErrInvalidConfig)
	}
	if c.Model.MaxPromptTokens <= 0 {
		return fmt.Errorf("%w: max_prompt_tokens must be positive", ErrInvalidConfig)
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v out of range [0, 2]", ErrInvalidConfig, c.Model.Temperature)
	}
	if c.Model.TopP <= 0 || c.Model.TopP > 1 {
		return fmt.Errorf("%w: top_p %v out of range (0, 1]", ErrInvalidConfig, c.Model.TopP)
	}
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("%w: embedding base URL required", ErrInvalidConfig)
	}
	if c.Metrics.File == "" {
		return fmt.Errorf("%w: metrics file required", ErrInvalidConfig)
	}
	return nil
}
