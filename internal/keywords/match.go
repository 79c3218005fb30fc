package keywords

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CountMentions counts non-overlapping, case-insensitive occurrences of term in
// text. An occurrence must not be glued to a letter or digit on either side, so
// "python-driven" mentions python while "javascript" does not mention java.
func CountMentions(text, term string) int {
	term = Normalize(term)
	if term == "" {
		return 0
	}
	lower := strings.ToLower(text)
	count := 0
	for i := 0; i <= len(lower)-len(term); {
		idx := strings.Index(lower[i:], term)
		if idx < 0 {
			break
		}
		start := i + idx
		end := start + len(term)
		if isBoundary(lower, start, end) {
			count++
			i = end
			continue
		}
		i = start + 1
	}
	return count
}

// ContainsTerm reports whether text mentions term at least once.
func ContainsTerm(text, term string) bool {
	return CountMentions(text, term) > 0
}

func isBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
