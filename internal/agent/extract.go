package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a response contains nothing that looks like JSON.
var ErrNoJSON = errors.New("no JSON found in response")

// ExtractJSON decodes the first JSON document found in an agent's text
// into v. A ```json fence is preferred, then any fence, then the first
// balanced object or array. Callers use this on agent output they chose
// to structure; the engine itself never parses content.
func ExtractJSON(content string, v any) error {
	raw := findJSON(content)
	if raw == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode extracted JSON: %w", err)
	}
	return nil
}

func findJSON(s string) string {
	if start := strings.Index(s, "```json"); start != -1 {
		start += len("```json")
		if end := strings.Index(s[start:], "```"); end != -1 {
			return strings.TrimSpace(s[start : start+end])
		}
	}

	if start := strings.Index(s, "```"); start != -1 {
		start += 3
		if end := strings.Index(s[start:], "```"); end != -1 {
			body := strings.TrimSpace(s[start : start+end])
			if strings.HasPrefix(body, "{") || strings.HasPrefix(body, "[") {
				return body
			}
		}
	}

	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return ""
	}
	open, closing := s[start], byte('}')
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closing:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
