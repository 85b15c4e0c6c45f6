package utils

// Truncate clips a string to maxLen bytes with an ellipsis. Used to keep
// logged queries and page titles to a sane width.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
