package postprocess

import (
	"fmt"
	"strings"
)

// ExplanationStrategy synthesizes a human-readable explanation for a
// fix. It is an explicit interface so the keyword heuristic can be
// swapped for a classifier without touching the pipeline.
type ExplanationStrategy interface {
	Explain(language, cwe, fixedCode string) string
}

// keywordRule matches one remediation technique by substring.
type keywordRule struct {
	keywords []string
	clause   string
}

// keywordRules are evaluated in order; every matching rule appends
// its clause. Matching is case-insensitive.
var keywordRules = []keywordRule{
	{
		keywords: []string{"parameter", "%s", "?"},
		clause:   "Applied parameterized queries to prevent injection. ",
	},
	{
		keywords: []string{"environ", "getenv"},
		clause:   "Replaced hardcoded credentials with environment variables. ",
	},
	{
		keywords: []string{"escape", "textcontent"},
		clause:   "Applied proper output escaping to prevent XSS. ",
	},
}

const genericClause = "Applied security best practices according to the CWE guidelines."

// KeywordStrategy explains fixes by scanning the fixed code for
// remediation markers.
type KeywordStrategy struct{}

// Explain builds the explanation: a fixed prefix naming the cwe and
// language, then one clause per matched keyword group in rule order.
// When no group matches, a single generic clause is used instead; the
// generic clause never co-occurs with specific ones.
func (KeywordStrategy) Explain(language, cwe, fixedCode string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fixed %s vulnerability in %s code. ", cwe, language)

	lower := strings.ToLower(fixedCode)
	matched := false
	for _, rule := range keywordRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, strings.ToLower(keyword)) {
				b.WriteString(rule.clause)
				matched = true
				break
			}
		}
	}

	if !matched {
		b.WriteString(genericClause)
	}

	return strings.TrimSpace(b.String())
}

// fallbackExplanation is used when the model produced no usable fix.
func fallbackExplanation(cwe string) string {
	return fmt.Sprintf("The model could not generate a fix. Please review %s guidelines manually.", cwe)
}
