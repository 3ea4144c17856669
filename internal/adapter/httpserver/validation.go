package httpserver

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fairyhunter13/trendpulse/pkg/textx"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

const (
	maxArchiveLimit = 100
	maxCategoryLen  = 100
	maxFieldRunes   = 4000
)

// ValidateArchiveQuery validates the category and limit query parameters of
// the archive endpoint. Both are optional.
func ValidateArchiveQuery(category, limit string) ValidationResult {
	var errs []ValidationError
	if utf8.RuneCountInString(category) > maxCategoryLen {
		errs = append(errs, ValidationError{
			Field:   "category",
			Code:    "TOO_LONG",
			Message: "Category must be 100 characters or less",
		})
	}
	if limit != "" {
		n, err := strconv.Atoi(limit)
		switch {
		case err != nil:
			errs = append(errs, ValidationError{
				Field:   "limit",
				Code:    "INVALID_FORMAT",
				Message: "Limit must be a number",
			})
		case n < 1 || n > maxArchiveLimit:
			errs = append(errs, ValidationError{
				Field:   "limit",
				Code:    "OUT_OF_RANGE",
				Message: "Limit must be between 1 and 100",
			})
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// SanitizeString strips control characters, trims whitespace and caps the
// length of free-text input before it is placed into a prompt.
func SanitizeString(input string) string {
	input = strings.ToValidUTF8(input, "")
	input = textx.SanitizeText(input)
	if utf8.RuneCountInString(input) > maxFieldRunes {
		input = string([]rune(input)[:maxFieldRunes])
	}
	return input
}
