// internal/llmutil/parser.go
package llmutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Regex definitions use \x60 for backticks because Go raw strings cannot contain backticks.
var (
	fencedObject = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
	fencedArray  = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\[.*\\])\\s*\x60\x60\x60")
)

// ParseJSONResponse parses an LLM response string into a target Go type,
// tolerating the formatting quirks models produce: markdown code fences and
// conversational text surrounding the JSON payload.
func ParseJSONResponse[T any](response string) (*T, error) {
	payload := extractJSON(strings.TrimSpace(response))

	var result T
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w. Extracted JSON (truncated): %s", err, truncateString(payload, 500))
	}
	return &result, nil
}

// extractJSON isolates the JSON object or array inside a model response.
func extractJSON(s string) string {
	if strings.HasPrefix(s, "```") {
		if m := fencedObject.FindStringSubmatch(s); len(m) > 1 {
			return m[1]
		}
		if m := fencedArray.FindStringSubmatch(s); len(m) > 1 {
			return m[1]
		}
		return s
	}

	// Already bare JSON.
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return s
	}

	// JSON buried in prose: take the widest object span, then the widest
	// array span.
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			return s[start : end+1]
		}
	}
	if start := strings.Index(s, "["); start >= 0 {
		if end := strings.LastIndex(s, "]"); end > start {
			return s[start : end+1]
		}
	}
	return s
}

// truncateString truncates a string to a maximum length for error messages.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
