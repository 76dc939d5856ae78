package models

import "time"

// MatchType names the field that caused a record to match.
type MatchType string

const (
	MatchQuestion MatchType = "question"
	MatchAnswer   MatchType = "answer"
	MatchTag      MatchType = "tag"
	MatchContent  MatchType = "content"
)

// Suggestion is a single search hit as returned to the caller.
type Suggestion struct {
	Slug           string     `json:"slug"`
	Question       string     `json:"question"`
	ShortAnswer    string     `json:"shortAnswer"`
	Tags           []string   `json:"tags"`
	Difficulty     Difficulty `json:"difficulty,omitempty"`
	PubDate        *time.Time `json:"pubDate,omitempty"`
	MatchType      MatchType  `json:"matchType,omitempty"`
	RelevanceScore float64    `json:"relevanceScore"`
}

// NewSuggestion builds an unhighlighted suggestion from an index entry.
func NewSuggestion(e *IndexEntry, matchType MatchType, score float64) *Suggestion {
	s := &Suggestion{
		Slug:           e.Slug,
		Question:       e.Question,
		ShortAnswer:    e.ShortAnswer,
		Tags:           append([]string{}, e.Tags...),
		Difficulty:     e.Difficulty,
		MatchType:      matchType,
		RelevanceScore: score,
	}
	if !e.PubDate.IsZero() {
		pub := e.PubDate
		s.PubDate = &pub
	}
	return s
}

// ResultPage is one ordered page of hits from a backend, with the size of the full candidate set.
type ResultPage struct {
	Items []*Suggestion
	Total int
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Suggestions []*Suggestion `json:"suggestions"`
	Query       string        `json:"query"`
	Total       int           `json:"total"`
	HasMore     bool          `json:"hasMore"`
	// Message explains an empty result caused by an input guard or a degraded backend.
	Message   string `json:"message,omitempty"`
	QueryTime int64  `json:"queryTimeMs"`
}

// EmptyResponse returns a response with no suggestions and the given message.
func EmptyResponse(query, message string) *SearchResponse {
	return &SearchResponse{
		Suggestions: []*Suggestion{},
		Query:       query,
		Message:     message,
	}
}
