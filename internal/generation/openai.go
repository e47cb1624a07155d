package generation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/remedyd/internal/config"
)

// OpenAIBackend is a Backend over an OpenAI-compatible inference
// server (llama.cpp, vLLM, Ollama, or a hosted endpoint).
type OpenAIBackend struct {
	cfg    config.ModelConfig
	logger *zap.Logger

	// mu serializes generations: the inference server runs one heavy
	// model and concurrent requests queue on this mutex.
	mu     sync.Mutex
	llm    *openai.LLM
	loaded bool
}

// NewOpenAIBackend creates an unloaded backend. Call Load before
// serving requests.
func NewOpenAIBackend(cfg config.ModelConfig, logger *zap.Logger) (*OpenAIBackend, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	if cfg.MaxPromptTokens <= 0 {
		return nil, fmt.Errorf("%w: max_prompt_tokens must be positive", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OpenAIBackend{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Load constructs the client and verifies the inference server is
// reachable with a one-token completion. Safe to call more than once.
func (b *OpenAIBackend) Load(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.loaded {
		return nil
	}

	token := b.cfg.APIKey
	if token == "" {
		// langchaingo requires a token even for local servers.
		token = "unused"
	}

	llm, err := openai.New(
		openai.WithBaseURL(b.cfg.BaseURL),
		openai.WithModel(b.cfg.Model),
		openai.WithToken(token),
	)
	if err != nil {
		return fmt.Errorf("creating inference client: %w", err)
	}

	// Fail fast at startup rather than on the first user request.
	if _, err := llms.GenerateFromSinglePrompt(ctx, llm, "ping", llms.WithMaxTokens(1)); err != nil {
		return fmt.Errorf("probing inference server %s: %w", b.cfg.BaseURL, err)
	}

	b.llm = llm
	b.loaded = true
	b.logger.Info("generation backend ready",
		zap.String("model", b.cfg.Model),
		zap.String("base_url", b.cfg.BaseURL),
	)
	return nil
}

// GenerateFix runs one blocking inference against the backend.
func (b *OpenAIBackend) GenerateFix(ctx context.Context, prompt string, maxNewTokens int) (string, TokenUsage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.loaded {
		return "", TokenUsage{}, ErrNotLoaded
	}
	if maxNewTokens <= 0 {
		maxNewTokens = 512
	}

	prompt = truncateToTokens(b.cfg.Model, prompt, b.cfg.MaxPromptTokens)
	inputTokens := llms.CountTokens(b.cfg.Model, prompt)

	output, err := llms.GenerateFromSinglePrompt(ctx, b.llm, prompt,
		llms.WithTemperature(b.cfg.Temperature),
		llms.WithTopP(b.cfg.TopP),
		llms.WithMaxTokens(maxNewTokens),
	)
	if err != nil {
		return "", TokenUsage{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	text := strings.TrimSpace(output)
	outputTokens := llms.CountTokens(b.cfg.Model, text)
	if outputTokens > maxNewTokens {
		outputTokens = maxNewTokens
	}

	return text, TokenUsage{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}

// ModelName returns the last path segment of the configured model id.
func (b *OpenAIBackend) ModelName() string {
	return shortModelName(b.cfg.Model)
}

func shortModelName(model string) string {
	if idx := strings.LastIndex(model, "/"); idx >= 0 {
		return model[idx+1:]
	}
	return model
}

// truncateToTokens trims text until it tokenizes to at most maxTokens.
// Trimming is proportional to the overshoot, so it converges in a few
// passes even for long prompts.
func truncateToTokens(model, text string, maxTokens int) string {
	count := llms.CountTokens(model, text)
	for count > maxTokens && len(text) > 0 {
		runes := []rune(text)
		keep := len(runes) * maxTokens / count
		if keep >= len(runes) {
			keep = len(runes) - 1
		}
		text = string(runes[:keep])
		count = llms.CountTokens(model, text)
	}
	return text
}
