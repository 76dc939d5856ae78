// Package ranking provides the heuristic relevance scorer for question records.
package ranking

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/ajwiba/internal/models"
)

// Query is a search string prepared once and scored against many entries.
type Query struct {
	// Original is the trimmed query as typed.
	Original string
	// Text is the lowercased form used for containment tests.
	Text string

	boundary *regexp.Regexp
}

// NewQuery prepares raw for scoring.
// Word boundaries use ASCII word semantics: queries in Arabic script never earn the boundary bonus.
func NewQuery(raw string) *Query {
	original := strings.TrimSpace(raw)
	q := &Query{
		Original: original,
		Text:     strings.ToLower(original),
	}
	if q.Text != "" {
		q.boundary = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(q.Text))
	}
	return q
}

// Len returns the query length in characters.
func (q *Query) Len() int {
	return utf8.RuneCountInString(q.Text)
}

// AtWordBoundary reports whether the query starts a word in text.
func (q *Query) AtWordBoundary(text string) bool {
	return q.boundary != nil && q.boundary.MatchString(text)
}

// Match is the best-scoring field match of one entry.
type Match struct {
	Type  models.MatchType
	Score float64
	// TokenOnly is set when only the search-term set matched.
	TokenOnly bool
}

// ScoreBreakdown itemizes how a Match score was reached.
type ScoreBreakdown struct {
	Field        models.MatchType
	Base         float64
	Exact        float64
	WordBoundary float64
	Short        float64
	Recency      float64
}

// Total returns the sum of all components.
func (b *ScoreBreakdown) Total() float64 {
	return b.Base + b.Exact + b.WordBoundary + b.Short + b.Recency
}
