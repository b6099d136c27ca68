package analyses

import (
	"encoding/json"
	"strings"
)

// ParseVerdict interprets a provider's raw text as a Verdict. LLMs frequently
// wrap the JSON payload in prose or markdown fences, so after a failed direct
// decode the first top-level brace-delimited span is tried. A false return is
// a legitimate outcome, not an error: the provider's contribution is dropped
// from the merge.
func ParseVerdict(raw string) (Verdict, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Verdict{}, false
	}

	if v, ok := decodeVerdict(trimmed); ok {
		return v, true
	}

	span, ok := firstJSONObject(trimmed)
	if !ok {
		return Verdict{}, false
	}
	return decodeVerdict(span)
}

func decodeVerdict(s string) (Verdict, bool) {
	if !strings.HasPrefix(strings.TrimSpace(s), "{") {
		return Verdict{}, false
	}
	var v Verdict
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return Verdict{}, false
	}
	return v, true
}

// firstJSONObject returns the first balanced top-level {...} span in s,
// honoring string literals and escapes while counting braces.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
