package validators

import "strings"

// SanitizeString trims surrounding whitespace and enforces a byte length cap.
// A maxLen of zero means uncapped.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 || len(trimmed) <= maxLen {
		return trimmed
	}
	return trimmed[:maxLen]
}
