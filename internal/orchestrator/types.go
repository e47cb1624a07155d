package orchestrator

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors visible to callers. Retrieval failures are absorbed
// inside the pipeline and never surface.
var (
	// ErrValidation indicates a malformed inbound request, rejected
	// before any pipeline work.
	ErrValidation = errors.New("invalid request")
)

// FixRequest is one remediation request. Immutable once received.
type FixRequest struct {
	// Language is the programming language of the fragment
	// (e.g. "python", "java").
	Language string

	// CWE is the vulnerability classification (e.g. "CWE-89").
	CWE string

	// Code is the vulnerable fragment to remediate.
	Code string

	// UseRAG enables semantic retrieval of remediation guidance.
	UseRAG bool
}

// Validate rejects malformed requests.
func (r *FixRequest) Validate() error {
	if strings.TrimSpace(r.Language) == "" {
		return fmt.Errorf("%w: language is required", ErrValidation)
	}
	if strings.TrimSpace(r.CWE) == "" {
		return fmt.Errorf("%w: cwe is required", ErrValidation)
	}
	if strings.TrimSpace(r.Code) == "" {
		return fmt.Errorf("%w: code is required", ErrValidation)
	}
	return nil
}

// TokenUsage reports token counts for one response.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// FixResponse is the complete remediation result. There is no
// partial response: a request yields either this or an error.
type FixResponse struct {
	FixedCode   string     `json:"fixed_code"`
	Diff        string     `json:"diff"`
	Explanation string     `json:"explanation"`
	ModelUsed   string     `json:"model_used"`
	TokenUsage  TokenUsage `json:"token_usage"`
	LatencyMS   int64      `json:"latency_ms"`
}
