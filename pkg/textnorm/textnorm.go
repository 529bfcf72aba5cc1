// Package textnorm holds the normalization shared by question extraction and
// knowledge-base matching. Both sides must normalize identically or phrase
// containment stops being symmetric.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKC, Unicode case folding and whitespace collapsing.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s) // a Caser is stateful and cannot be shared
	return strings.Join(strings.Fields(s), " ")
}

// Tokens splits normalized text into word tokens; punctuation separates words
// and is dropped.
func Tokens(s string) []string {
	return strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
}

// CountAlnum counts letters and digits.
func CountAlnum(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
