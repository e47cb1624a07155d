// Package postprocess turns raw model output into the response
// artifacts: extracted code, unified diff, and explanation.
package postprocess

import (
	"github.com/fyrsmithlabs/remedyd/internal/prompt"
)

// Result holds the postprocessed artifacts for one request.
type Result struct {
	// FixedCode is the remediated fragment. When the model produced
	// nothing usable this is the original input, never an
	// altered-but-ineffective fragment.
	FixedCode string

	// Diff is the unified diff, or NoChanges when nothing changed.
	Diff string

	// Explanation describes the applied fix.
	Explanation string
}

// Postprocessor extracts code from generated text and derives the
// diff and explanation.
type Postprocessor struct {
	strategy ExplanationStrategy
}

// New creates a Postprocessor. A nil strategy defaults to the keyword
// heuristic.
func New(strategy ExplanationStrategy) *Postprocessor {
	if strategy == nil {
		strategy = KeywordStrategy{}
	}
	return &Postprocessor{strategy: strategy}
}

// Process postprocesses one generation. rawOutput is the backend's
// generated text; originalCode is the request's code fragment.
//
// When extraction yields nothing or code identical to the original,
// the result carries the original code, the NoChanges diff, and a
// fallback explanation referencing the cwe.
func (p *Postprocessor) Process(originalCode, language, cwe, rawOutput string) (*Result, error) {
	fixed := prompt.ExtractCodeFromResponse(rawOutput, language)

	if fixed == "" || fixed == originalCode {
		return &Result{
			FixedCode:   originalCode,
			Diff:        NoChanges,
			Explanation: fallbackExplanation(cwe),
		}, nil
	}

	diff, err := unifiedDiff(originalCode, fixed, language)
	if err != nil {
		return nil, err
	}
	if diff == "" {
		diff = NoChanges
	}

	return &Result{
		FixedCode:   fixed,
		Diff:        diff,
		Explanation: p.strategy.Explain(language, cwe, fixed),
	}, nil
}
