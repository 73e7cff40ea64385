package utils

import "strings"

// Truncate shortens s to at most maxLen runes, appending "..." when cut.
// Whitespace left dangling before the ellipsis is dropped.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 0 {
		return "..."
	}
	return strings.TrimRight(string(runes[:maxLen]), " \t\n") + "..."
}

// OneLine collapses every run of whitespace, newlines included, into a
// single space so multi-line text fits a list row.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Preview is OneLine followed by Truncate.
func Preview(s string, maxLen int) string {
	return Truncate(OneLine(s), maxLen)
}
