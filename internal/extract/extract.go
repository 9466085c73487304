// Package extract locates JSON embedded in free-form model replies.
//
// Model output is rarely clean JSON: replies arrive wrapped in markdown
// fences, prefixed with prose, or followed by commentary. Extract finds
// the first syntactically plausible JSON object or array span; it does
// not validate the content — callers still parse and may reject it.
package extract

import "strings"

const (
	fenceJSON  = "```json"
	fencePlain = "```"
)

// Extract returns the first plausible JSON object or array substring of
// raw, and whether one was found. A fenced ```json block takes priority
// over bare JSON. Extraction is positional: the outermost balanced
// {...} or [...] span, with brace counting that skips braces inside
// quoted strings.
func Extract(raw string) (string, bool) {
	if body, ok := fencedBlock(raw); ok {
		// The fence wins even if bare JSON appears earlier. Content
		// inside the fence still has to look like JSON.
		if span, ok := balancedSpan(body); ok {
			return span, true
		}
	}

	return balancedSpan(raw)
}

// fencedBlock returns the contents of the first ```json fence, falling
// back to a plain ``` fence whose body starts with a JSON opener.
func fencedBlock(raw string) (string, bool) {
	if body, ok := fenceBody(raw, fenceJSON); ok {
		return body, true
	}

	body, ok := fenceBody(raw, fencePlain)
	if !ok {
		return "", false
	}
	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return body, true
	}
	return "", false
}

// fenceBody returns the text between marker and the next closing fence.
func fenceBody(raw, marker string) (string, bool) {
	start := strings.Index(raw, marker)
	if start < 0 {
		return "", false
	}
	rest := raw[start+len(marker):]

	end := strings.Index(rest, fencePlain)
	if end < 0 {
		// Unterminated fence: take everything after the marker.
		return rest, true
	}
	return rest[:end], true
}

// balancedSpan scans for the first balanced {...} or [...] span. The
// scanner tracks nesting depth, string state, and escape state so that
// brackets inside quoted values do not miscount.
func balancedSpan(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if start < 0 {
			if c == '{' || c == '[' {
				start = i
				depth = 1
			}
			continue
		}

		if escaped {
			escaped = false
			continue
		}

		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				depth++
			}
		case '}', ']':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
