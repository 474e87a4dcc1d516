package text

import "unicode/utf8"

// Cut returns the longest prefix of s that fits in max bytes without splitting a rune.
func Cut(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// Truncate 超出 max 字节时按 rune 边界截断并追加省略号。
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return Cut(s, max) + "..."
}
