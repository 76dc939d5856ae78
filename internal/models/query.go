package models

import (
	"fmt"
	"strings"
)

// SortBy selects the ordering of search results.
type SortBy string

const (
	SortByRelevance SortBy = "relevance"
	SortByDate      SortBy = "date"
	SortByRating    SortBy = "rating"
)

// SortOrder is the direction for date and rating ordering.
type SortOrder string

const (
	SortDesc SortOrder = "desc"
	SortAsc  SortOrder = "asc"
)

// SearchQuery represents a search request with optional filters.
type SearchQuery struct {
	Query      string     `json:"q"`
	Tags       []string   `json:"tags,omitempty"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
	SortBy     SortBy     `json:"sortBy,omitempty"`
	SortOrder  SortOrder  `json:"sortOrder,omitempty"`
	Limit      int        `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}

// ValidationError reports a request that violates the query contract.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Validate checks the query and normalizes it in place: the text is trimmed, tags are
// lowercased and deduplicated, and zero values get defaults. A limit above maxLimit is capped.
func (q *SearchQuery) Validate(defaultLimit, maxLimit int) error {
	if q.Limit < 0 {
		return &ValidationError{Field: "limit", Message: "must not be negative"}
	}
	if q.Offset < 0 {
		return &ValidationError{Field: "offset", Message: "must not be negative"}
	}
	if q.Difficulty != "" {
		d, ok := ParseDifficulty(string(q.Difficulty))
		if !ok {
			return &ValidationError{Field: "difficulty", Message: fmt.Sprintf("unknown value %q", q.Difficulty)}
		}
		q.Difficulty = d
	}
	switch SortBy(strings.ToLower(string(q.SortBy))) {
	case "":
		q.SortBy = SortByRelevance
	case SortByRelevance, SortByDate, SortByRating:
		q.SortBy = SortBy(strings.ToLower(string(q.SortBy)))
	default:
		return &ValidationError{Field: "sortBy", Message: fmt.Sprintf("unknown value %q", q.SortBy)}
	}
	switch SortOrder(strings.ToLower(string(q.SortOrder))) {
	case "":
		q.SortOrder = SortDesc
	case SortAsc, SortDesc:
		q.SortOrder = SortOrder(strings.ToLower(string(q.SortOrder)))
	default:
		return &ValidationError{Field: "sortOrder", Message: fmt.Sprintf("unknown value %q", q.SortOrder)}
	}

	q.Query = strings.TrimSpace(q.Query)
	q.Tags = NormalizeTags(q.Tags)
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}

// Text returns the lowercased, trimmed query text used for matching.
func (q *SearchQuery) Text() string {
	return strings.ToLower(strings.TrimSpace(q.Query))
}

// HasFilters reports whether a tag or difficulty filter is set.
func (q *SearchQuery) HasFilters() bool {
	return len(q.Tags) > 0 || q.Difficulty != ""
}

// CacheKey returns a canonical string covering the query text, filters, ordering, and page.
func (q *SearchQuery) CacheKey() string {
	return fmt.Sprintf("q=%s|tags=%s|difficulty=%s|sort=%s:%s|limit=%d|offset=%d",
		q.Text(), strings.Join(q.Tags, ","), q.Difficulty, q.SortBy, q.SortOrder, q.Limit, q.Offset)
}

// NormalizeTags trims and lowercases tags, dropping empties and duplicates while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
