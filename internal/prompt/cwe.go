package prompt

import "fmt"

// cweContexts holds static guidance for the CWE categories remedyd
// sees most. It is the fallback when semantic retrieval is disabled
// or unavailable.
var cweContexts = map[string]string{
	"CWE-89":  "SQL Injection - Use parameterized queries or prepared statements",
	"CWE-79":  "Cross-Site Scripting (XSS) - Sanitize and escape user input",
	"CWE-78":  "OS Command Injection - Avoid shell execution, use safe APIs",
	"CWE-798": "Hardcoded Credentials - Use environment variables or secret managers",
	"CWE-862": "Missing Authorization - Implement proper access control checks",
	"CWE-918": "SSRF - Validate and whitelist URLs before making requests",
	"CWE-502": "Deserialization - Validate input, use safe deserialization",
	"CWE-327": "Broken Crypto - Use strong, modern cryptographic algorithms",
	"CWE-22":  "Path Traversal - Validate and sanitize file paths",
	"CWE-352": "CSRF - Implement anti-CSRF tokens",
}

// CWEContext returns static guidance for a CWE identifier. Unknown
// identifiers map to a generic best-practices string.
func CWEContext(cwe string) string {
	if context, ok := cweContexts[cwe]; ok {
		return context
	}
	return fmt.Sprintf("%s - Apply security best practices", cwe)
}
