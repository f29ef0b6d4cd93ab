// Package token turns chunk text into a normalized bag of terms for the
// inverted index: identifiers are split on case and delimiter boundaries
// the way source-code search engines in the retrieval pack do it, so that
// a query for "user" matches a chunk containing "getUserById".
package token

import (
	"strings"
	"unicode"
)

// stopWords are discarded after splitting; they're common enough in code
// (both language keywords and filler words) that keeping them would flood
// every chunk's term vector without adding discriminating power.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "day": true,
	"has": true, "him": true, "his": true, "how": true,
	"man": true, "new": true, "now": true, "old": true, "see": true,
	"two": true, "way": true, "who": true, "boy": true, "did": true,
	"its": true, "let": true, "put": true, "say": true, "she": true,
	"too": true, "use": true,
	"var": true,
}

// numericClass replaces any token that is purely numeric (after split)
// with a single shared placeholder, so that "v1", "v2", "retry3" style
// identifiers don't each mint a unique, useless numeric term alongside
// their real identifier part. Numbers still contribute their sibling
// identifier parts (from camel/snake splitting) as normal terms.
const numericClass = "<num>"

// Tokenize returns the multiset of normalized terms in text as a slice
// (duplicates preserved, order deterministic) so callers can derive raw
// term frequencies directly from slice contents.
//
// Algorithm: split on non-identifier characters, then split each
// resulting identifier on camelCase/snake_case boundaries, emitting both
// the whole identifier (lowercased) and its parts. Single-character parts
// and stop words are discarded. Purely numeric parts fold into one class.
// Pure function: no I/O, no shared mutable state.
func Tokenize(text string) []string {
	var terms []string
	for _, word := range splitIdentifiers(text) {
		if word == "" {
			continue
		}
		if isNumeric(word) {
			terms = append(terms, numericClass)
			continue
		}
		lower := strings.ToLower(word)
		if len(lower) > 1 && !stopWords[lower] {
			terms = append(terms, lower)
		}

		for _, part := range splitCamelSnake(word) {
			if part == "" || part == word {
				continue
			}
			if isNumeric(part) {
				terms = append(terms, numericClass)
				continue
			}
			lp := strings.ToLower(part)
			if len(lp) <= 1 || stopWords[lp] {
				continue
			}
			terms = append(terms, lp)
		}
	}
	return terms
}

// splitIdentifiers splits text on any run of non-identifier characters
// (anything that isn't a letter, digit, or underscore).
func splitIdentifiers(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}

// splitCamelSnake splits an identifier into its camelCase and
// snake_case parts, e.g. "getUserByID" -> ["get", "User", "By", "ID"],
// "max_chunk_size" -> ["max", "chunk", "size"].
func splitCamelSnake(word string) []string {
	// snake_case first.
	segments := strings.Split(word, "_")

	var parts []string
	for _, seg := range segments {
		parts = append(parts, splitCamel(seg)...)
	}
	return parts
}

// splitCamel splits a single snake-segment on camelCase boundaries,
// treating runs of uppercase letters followed by a lowercase letter as
// the start of a new word (so "HTTPServer" splits into "HTTP", "Server",
// and "parseIDs" splits into "parse", "I", "Ds").
func splitCamel(seg string) []string {
	if seg == "" {
		return nil
	}
	runes := []rune(seg)
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsLetter(prev) && unicode.IsDigit(cur):
			boundary = true
		case unicode.IsDigit(prev) && unicode.IsLetter(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Join renders a term multiset back into whitespace-separated text,
// useful for the tokenizer-idempotence property: tokenizing the joined
// identifier-only terms reproduces the same multiset.
func Join(terms []string) string {
	return strings.Join(terms, " ")
}
