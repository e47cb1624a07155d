package prompt

import "strings"

// ExtractCodeFromResponse extracts the code fragment from a raw model
// response.
//
// Preference order: the first fence tagged with the exact language
// marker, then the first fence of any kind, then the trimmed raw text.
// Fenced blocks beyond the first matching one are ignored. Text
// already free of fences passes through unchanged apart from
// whitespace trimming, so the function is idempotent.
func ExtractCodeFromResponse(response, language string) string {
	tagged := "```" + language
	if idx := strings.Index(response, tagged); idx >= 0 {
		rest := response[idx+len(tagged):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}

	if strings.Contains(response, "```") {
		parts := strings.Split(response, "```")
		if len(parts) >= 3 {
			return strings.TrimSpace(parts[1])
		}
	}

	return strings.TrimSpace(response)
}
