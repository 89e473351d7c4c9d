// Package text counts and truncates strings by rune. The articles
// are Russian, so byte-based lengths overshoot by roughly a factor
// of two and byte-based slicing can cut a character in half.
package text

import "unicode/utf8"

// CountRunes returns the number of Unicode characters in s.
func CountRunes(s string) int {
	return utf8.RuneCountInString(s)
}

// TruncateRunes shortens s to at most max runes, appending "..."
// when anything was cut. The ellipsis is not counted against max.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
