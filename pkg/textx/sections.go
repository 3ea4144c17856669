package textx

import (
	"regexp"
	"strings"
)

// ExtractSection returns the trimmed text between the first "[NAME]" and the
// next "[/NAME]". Matching is case-sensitive. ok is false when either marker
// is missing.
func ExtractSection(text, name string) (string, bool) {
	open := "[" + name + "]"
	start := strings.Index(text, open)
	if start < 0 {
		return "", false
	}
	rest := text[start+len(open):]
	end := strings.Index(rest, "[/"+name+"]")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

// SectionOr is ExtractSection with a fallback for absent sections.
func SectionOr(text, name, def string) string {
	if s, ok := ExtractSection(text, name); ok {
		return s
	}
	return def
}

// ExtractLabeledList collects the bullet lines that follow "label:" up to the
// next "L:" for any of labels, or the end of section. Bullet markers are
// stripped and blank lines dropped; order is preserved. A missing label
// yields an empty, non-nil slice.
func ExtractLabeledList(section, label string, labels ...string) []string {
	out := []string{}
	marker := label + ":"
	start := strings.Index(section, marker)
	if start < 0 {
		return out
	}
	body := section[start+len(marker):]

	end := len(body)
	for _, l := range append([]string{label}, labels...) {
		if l == "" {
			continue
		}
		if i := strings.Index(body, l+":"); i >= 0 && i < end {
			end = i
		}
	}
	body = body[:end]

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(stripBullet(strings.TrimRight(line, "\r")))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

var bulletPrefix = regexp.MustCompile(`^\s*[-*•]\s*`)

func stripBullet(line string) string {
	return bulletPrefix.ReplaceAllString(line, "")
}

// ExtractField returns the rest of the line after "label:", matched
// case-insensitively. ok is false when the label is missing or its value
// is blank.
func ExtractField(section, label string) (string, bool) {
	re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(label) + `:\s*(.*)`)
	if err != nil {
		return "", false
	}
	m := re.FindStringSubmatch(section)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}

// FieldOr is ExtractField with a fallback for absent or blank values.
func FieldOr(section, label, def string) string {
	if v, ok := ExtractField(section, label); ok {
		return v
	}
	return def
}
