package search

import (
	"html"
	"strings"
	"unicode/utf8"
)

// Highlight markers wrapped around each query occurrence.
const (
	MarkOpen  = "<mark>"
	MarkClose = "</mark>"
)

// MinHighlightLength is the shortest query that is highlighted.
const MinHighlightLength = 2

// Highlight wraps every non-overlapping, case-insensitive occurrence of query in text
// with MarkOpen/MarkClose. Scanning resumes after the end of each match.
// Queries shorter than MinHighlightLength leave text unchanged.
func Highlight(text, query string) string {
	return highlight(text, query, func(s string) string { return s })
}

// HighlightHTML is Highlight for text that will be rendered as HTML. Every segment of
// text is escaped, so the result is always a safe fragment whose only markup is the
// highlight markers.
func HighlightHTML(text, query string) string {
	return highlight(text, query, html.EscapeString)
}

func highlight(text, query string, escape func(string) string) string {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinHighlightLength || text == "" {
		return escape(text)
	}
	tr := []rune(text)
	n := utf8.RuneCountInString(query)

	var b strings.Builder
	last := 0
	found := false
	for i := 0; i+n <= len(tr); {
		window := string(tr[i : i+n])
		if !strings.EqualFold(window, query) {
			i++
			continue
		}
		if !found {
			b.Grow(len(text) + 16)
			found = true
		}
		b.WriteString(escape(string(tr[last:i])))
		b.WriteString(MarkOpen)
		b.WriteString(escape(window))
		b.WriteString(MarkClose)
		i += n
		last = i
	}
	if !found {
		return escape(text)
	}
	b.WriteString(escape(string(tr[last:])))
	return b.String()
}
