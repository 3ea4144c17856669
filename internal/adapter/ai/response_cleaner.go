package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fairyhunter13/trendpulse/internal/domain"
)

// ResponseCleaner normalises model output that was asked to be JSON but may
// arrive wrapped in markdown fences, prefixed with prose, or carrying
// trailing commas.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

// CleanJSONResponse strips fences, extracts the outermost JSON value and
// removes trailing commas. It does not validate the result.
func (rc *ResponseCleaner) CleanJSONResponse(response string) string {
	response = rc.removeMarkdownBlocks(response)
	response = rc.extractJSON(response)
	return removeTrailingCommas(response)
}

// removeMarkdownBlocks drops ``` / ```json fence lines wherever they appear.
func (rc *ResponseCleaner) removeMarkdownBlocks(response string) string {
	response = strings.TrimSpace(response)
	if !strings.Contains(response, "```") {
		return response
	}
	lines := strings.Split(response, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// extractJSON returns the first balanced object or array, ignoring brackets
// inside string literals. Input without one is returned unchanged.
func (rc *ResponseCleaner) extractJSON(response string) string {
	start := strings.IndexAny(response, "{[")
	if start == -1 {
		return response
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(response); i++ {
		ch := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return response[start:]
}

// removeTrailingCommas deletes a comma that directly precedes } or ],
// leaving string contents untouched.
func removeTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			b.WriteByte(ch)
			continue
		}
		if ch == '"' {
			inString = true
		}
		if ch == ',' {
			j := i + 1
			for j < len(s) && strings.ContainsRune(" \t\r\n", rune(s[j])) {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(ch)
	}
	return b.String()
}

// IsValidJSON checks if a string is valid JSON.
func (rc *ResponseCleaner) IsValidJSON(response string) bool {
	return json.Valid([]byte(response))
}

// Decode cleans response and unmarshals it into dst. Anything that still
// fails to parse is reported as domain.ErrSchemaInvalid.
func (rc *ResponseCleaner) Decode(response string, dst any) error {
	cleaned := rc.CleanJSONResponse(response)
	if cleaned == "" {
		return fmt.Errorf("%w: empty model response", domain.ErrSchemaInvalid)
	}
	if err := json.Unmarshal([]byte(cleaned), dst); err != nil {
		return &JSONValidationError{Original: response, Cleaned: cleaned, Message: err.Error()}
	}
	return nil
}

// JSONValidationError is returned when cleaned output still does not decode.
type JSONValidationError struct {
	Original string
	Cleaned  string
	Message  string
}

func (e *JSONValidationError) Error() string {
	return "model returned invalid JSON: " + e.Message
}

func (e *JSONValidationError) Unwrap() error { return domain.ErrSchemaInvalid }
