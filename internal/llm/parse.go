package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls the first JSON object or array out of a model response,
// tolerating markdown code fences and surrounding prose. It reports ok=false
// for responses containing no parseable JSON; callers treat that as "no data
// from this stage", never as a fatal error.
func ExtractJSON(response string) (string, bool) {
	s := strings.TrimSpace(response)

	// Strip a markdown code fence if the whole response is wrapped in one.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	if json.Valid([]byte(s)) {
		return s, true
	}

	// Fall back to the outermost brace/bracket span inside prose.
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(s, pair[0])
		end := strings.LastIndex(s, pair[1])
		if start >= 0 && end > start {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
	}

	return "", false
}

// UnmarshalResponse extracts JSON from a model response and decodes it into
// out. A malformed response leaves out untouched and reports false.
func UnmarshalResponse(response string, out any) bool {
	raw, ok := ExtractJSON(response)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}
