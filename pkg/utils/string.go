package utils

// Truncate caps s at maxLen bytes, marking the cut with an ellipsis.
// Conversation ids are opaque ASCII tokens, so byte length is the right
// measure here.
func Truncate(s string, maxLen int) string {
	if maxLen >= len(s) {
		return s
	}
	return s[:maxLen] + "..."
}
