// Package prompt builds remediation prompts and extracts code from
// model responses.
package prompt

import (
	"fmt"
	"strings"
)

// BuildRemediationPrompt assembles the remediation prompt. The
// assembly is fully deterministic: role framing, task statement, the
// vulnerable code fenced with a language tag, an optional Security
// Guidelines section (present only when context is non-empty), fixed
// instructions, and a trailing opening fence that primes the model to
// answer with code.
func BuildRemediationPrompt(language, cwe, vulnerableCode, context string) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a security expert specialized in fixing vulnerable code.

**Task**: Fix the security vulnerability in the following %s code.

**Vulnerability Type**: %s

**Vulnerable Code**:
`+"```%s\n%s\n```\n", language, cwe, language, vulnerableCode)

	if context != "" {
		fmt.Fprintf(&b, "\n**Security Guidelines**:\n%s\n", context)
	}

	b.WriteString(`
**Instructions**:
1. Provide ONLY the fixed code without explanations
2. Maintain the original code structure and variable names
3. Fix the security vulnerability completely
4. Ensure the code is production-ready

**Fixed Code**:
` + "```")

	return b.String()
}

// BuildExplanationPrompt assembles a prompt asking the model to
// explain a fix. The default pipeline synthesizes explanations
// heuristically instead; this prompt exists for callers that want a
// model-written explanation as a second generation pass.
func BuildExplanationPrompt(language, cwe, originalCode, fixedCode string) string {
	return fmt.Sprintf(`You are a security expert. Explain the security fix applied to the code.

**Original Vulnerable Code** (%s, %s):
`+"```%s\n%s\n```"+`

**Fixed Secure Code**:
`+"```%s\n%s\n```"+`

**Instructions**:
Provide a concise 2-3 sentence explanation of:
1. What vulnerability existed
2. How the fix addresses it
3. Why this approach is secure

**Explanation**:`, language, cwe, language, originalCode, language, fixedCode)
}
