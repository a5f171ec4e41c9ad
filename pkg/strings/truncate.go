package strings

import (
	"strings"
)

// DefaultLineMaxLen is the default maximum length for single-line messages
// derived from backend bodies and failure reasons.
const DefaultLineMaxLen = 120

// MinTruncateLen is the minimum maxLen value for TruncateLine.
const MinTruncateLen = 4

// TruncateLine collapses s to a single line and truncates it to maxLen
// runes, adding "..." when truncated. maxLen below MinTruncateLen is clamped.
func TruncateLine(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}

// LooksLikeMarkup reports whether s starts like an HTML or XML document.
// Such bodies are not useful as one-line messages.
func LooksLikeMarkup(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "<")
}
