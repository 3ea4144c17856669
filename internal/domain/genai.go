package domain

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Schema is the OpenAPI subset the model accepts as a response schema.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// Schema type names.
const (
	TypeObject  = "OBJECT"
	TypeArray   = "ARRAY"
	TypeString  = "STRING"
	TypeInteger = "INTEGER"
	TypeNumber  = "NUMBER"
)

// InlineImage is raw image data sent alongside a prompt.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// TextRequest describes one generateContent call.
type TextRequest struct {
	Model             string
	SystemInstruction string
	History           []ChatMessage
	Prompt            string
	Images            []InlineImage
	ResponseMIMEType  string
	ResponseSchema    *Schema
	GoogleSearch      bool
}

// TextResponse is the concatenated candidate text plus grounding sources.
type TextResponse struct {
	Text    string
	Sources []Source
}

type ImageRequest struct {
	Model       string
	Prompt      string
	AspectRatio string
	MIMEType    string
}

type GeneratedImage struct {
	MIMEType string
	Data     []byte
}

type VideoRequest struct {
	Model       string
	Prompt      string
	AspectRatio string
	Resolution  string
}

// VideoOperation is the state of a long-running video job.
type VideoOperation struct {
	Name string
	Done bool
	URI  string
}

// UpstreamError is a non-2xx answer from the generative model API.
type UpstreamError struct {
	Operation  string
	StatusCode int
	Status     string
	Message    string
}

func (e *UpstreamError) Error() string {
	status := e.Status
	if status == "" {
		status = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("op=%s: upstream status %d %s: %s", e.Operation, e.StatusCode, status, e.Message)
}

// IsQuota reports whether the upstream rejected the call for quota reasons.
func (e *UpstreamError) IsQuota() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED"
}

func (e *UpstreamError) Unwrap() error {
	if e.IsQuota() {
		return ErrUpstreamRateLimit
	}
	return ErrUpstream
}

// quotaText matches a 429 that is labelled as a status or code, so ports
// and offsets that happen to contain the digits are not mistaken for quota.
var quotaText = regexp.MustCompile(`(?i)\b(?:status|code|http)\b"?\s*[:=]?\s*429\b`)

// IsQuotaError reports whether err carries a quota or rate-limit signal:
// a typed upstream 429, the rate-limit sentinel, the RESOURCE_EXHAUSTED
// marker, or a labelled 429 status in the message chain.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var ue *UpstreamError
	if errors.As(err, &ue) && ue.IsQuota() {
		return true
	}
	if errors.Is(err, ErrUpstreamRateLimit) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "RESOURCE_EXHAUSTED") || quotaText.MatchString(msg)
}
