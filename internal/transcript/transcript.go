// Package transcript normalizes recognized text and damps interim updates.
package transcript

import (
	"strings"
	"unicode/utf8"
)

// InterimThreshold is the default character-count change that forces an
// interim hypothesis to replace the displayed text.
const InterimThreshold = 5

// Clean trims and collapses whitespace runs to single spaces.
func Clean(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return strings.Join(strings.Fields(raw), " ")
}

// ShouldReplaceInterim decides whether an interim hypothesis replaces the
// displayed text. It does when the length (in characters) changes by more
// than threshold, or when the candidate no longer begins with the current
// text. Empty candidates never replace; an empty display always accepts.
func ShouldReplaceInterim(current string, candidate string, threshold int) bool {
	candidate = Clean(candidate)
	if candidate == "" {
		return false
	}
	current = Clean(current)
	if current == "" {
		return true
	}
	if threshold < 0 {
		threshold = 0
	}

	delta := utf8.RuneCountInString(candidate) - utf8.RuneCountInString(current)
	if delta < 0 {
		delta = -delta
	}
	if delta > threshold {
		return true
	}
	return !strings.HasPrefix(candidate, current)
}
