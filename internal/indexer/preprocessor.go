package indexer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ExcerptLength is the number of characters of the answer body kept for search.
const ExcerptLength = 200

// MinTermLength is the shortest token kept in an entry's search terms.
const MinTermLength = 2

var numericTerm = regexp.MustCompile(`^\d+$`)

// Preprocess normalizes text for indexing (trim, collapse whitespace).
func Preprocess(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// StripMarkdown removes markdown control characters (#*_`[]()) from text.
func StripMarkdown(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '#', '*', '_', '`', '[', ']', '(', ')':
			return -1
		}
		return r
	}, text)
}

// Excerpt returns the first n characters of text. Counting is by rune so
// Arabic text is never cut inside a character.
func Excerpt(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}

// ExtractTerms returns the sorted, deduplicated lowercase tokens of text that are
// at least MinTermLength characters and not purely numeric.
func ExtractTerms(text string) []string {
	normalized := strings.ToLower(Preprocess(StripMarkdown(text)))
	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		if utf8.RuneCountInString(tok) < MinTermLength {
			continue
		}
		if numericTerm.MatchString(tok) {
			continue
		}
		seen[tok] = struct{}{}
	}
	terms := make([]string, 0, len(seen))
	for tok := range seen {
		terms = append(terms, tok)
	}
	sort.Strings(terms)
	return terms
}
