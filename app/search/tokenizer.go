// Package search keeps an in-memory inverted index over post titles and
// bodies and answers keyword queries against it.
package search

import (
	"sort"
	"strings"
	"unicode"
)

// Tokenize lower-cases text and splits it on every rune that is not a letter
// or a digit. Order and duplicates are preserved.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Terms returns the distinct tokens of text in sorted order.
func Terms(text string) []string {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	sort.Strings(terms)
	return terms
}
