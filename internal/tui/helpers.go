package tui

import "strings"

// truncate shortens a string to max runes with ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if max < 4 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// splitPaths splits the upload input on whitespace
func splitPaths(s string) []string {
	return strings.Fields(s)
}

// bar draws a similarity gauge ten cells wide
func bar(percent int) string {
	n := percent / 10
	if n < 0 {
		n = 0
	}
	if n > 10 {
		n = 10
	}
	return strings.Repeat("█", n) + strings.Repeat("░", 10-n)
}
