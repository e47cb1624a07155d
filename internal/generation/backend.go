// Package generation adapts a text-generation backend for code
// remediation.
//
// The backend is a single heavy shared resource. The production
// implementation serializes concurrent generations behind a mutex; no
// two inferences run at once against one backend instance.
package generation

import (
	"context"
	"errors"
)

var (
	// ErrNotLoaded indicates a generation call before Load.
	ErrNotLoaded = errors.New("generation backend not loaded")

	// ErrGenerationFailed indicates the backend errored during
	// inference.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrInvalidConfig indicates invalid backend configuration.
	ErrInvalidConfig = errors.New("invalid backend configuration")
)

// TokenUsage reports token counts for one generation.
type TokenUsage struct {
	// InputTokens is the tokenized prompt length after truncation.
	InputTokens int

	// OutputTokens is the generated token count, never exceeding the
	// requested maximum.
	OutputTokens int
}

// Backend turns a prompt into generated text plus token counts.
type Backend interface {
	// Load performs one-time heavy initialization. A failure here is
	// fatal: the process must not begin serving requests.
	Load(ctx context.Context) error

	// GenerateFix runs one blocking inference. The prompt is
	// truncated before counting; generation is stochastic, so
	// callers must not assume determinism. Returns the trimmed
	// generated text and token usage.
	GenerateFix(ctx context.Context, prompt string, maxNewTokens int) (string, TokenUsage, error)

	// ModelName returns a short model identifier (the last path
	// segment when the full identifier is namespaced).
	ModelName() string
}
