package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// envPrefix is stripped from environment variables before mapping.
const envPrefix = "REMEDYD_"

// envKeyMap maps environment variable names (after the prefix) to
// config paths. An explicit table avoids ambiguity between section
// separators and compound field names like base_url.
var envKeyMap = map[string]string{
	"SERVER_HOST":             "server.host",
	"SERVER_PORT":             "server.port",
	"MODEL_BASE_URL":          "model.base_url",
	"MODEL_NAME":              "model.model",
	"MODEL_API_KEY":           "model.api_key",
	"MODEL_MAX_NEW_TOKENS":    "model.max_new_tokens",
	"MODEL_MAX_PROMPT_TOKENS": "model.max_prompt_tokens",
	"MODEL_TEMPERATURE":       "model.temperature",
	"MODEL_TOP_P":             "model.top_p",
	"EMBEDDING_BASE_URL":      "embedding.base_url",
	"EMBEDDING_MODEL":         "embedding.model",
	"CORPUS_DIR":              "corpus.dir",
	"METRICS_FILE":            "metrics.file",
	"LOGGING_LEVEL":           "logging.level",
	"LOGGING_FORMAT":          "logging.format",
}

// Load loads configuration with the following precedence
// (highest to lowest):
//
//  1. Environment variables (REMEDYD_MODEL_BASE_URL, ...)
//  2. YAML config file (configPath, skipped when empty or absent)
//  3. Hardcoded defaults
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			content, err := readConfigFile(configPath)
			if err != nil {
				return nil, err
			}
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToUpper(strings.TrimPrefix(s, envPrefix))
		if path, ok := envKeyMap[key]; ok {
			return path
		}
		// Unknown variables are dropped rather than guessed at.
		return ""
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := DefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readConfigFile reads the config file with a size cap to guard
// against accidental huge inputs.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%w: config file exceeds %d bytes", ErrInvalidConfig, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
