// Package keyword provides a search backend that delegates ranking to a Bleve index.
package keyword

import "github.com/hyperjump/ajwiba/internal/models"

// Name is the backend name used in configuration.
const Name = "bleve"

// MinPrefixLength is the shortest analyzed query that becomes a prefix query.
// Shorter queries fall back to wildcard substring matching.
const MinPrefixLength = 3

// Field boosts for prefix matches.
const (
	QuestionBoost    = 10.0
	ShortAnswerBoost = 8.0
	TagBoost         = 6.0
	ContentBoost     = 4.0
)

// document is the indexed form of one entry. Field names follow the json tags.
type document struct {
	Slug        string   `json:"slug"`
	Question    string   `json:"question"`
	ShortAnswer string   `json:"shortAnswer"`
	Content     string   `json:"content"`
	Tags        []string `json:"tags"`
	TagSet      []string `json:"tagSet"`
	Difficulty  string   `json:"difficulty,omitempty"`
	PubDate     *float64 `json:"pubDate,omitempty"` // unix seconds
	RatingAvg   float64  `json:"ratingAvg"`
	RatingCount float64  `json:"ratingCount"`
}

func newDocument(e *models.IndexEntry) *document {
	d := &document{
		Slug:        e.Slug,
		Question:    e.Question,
		ShortAnswer: e.ShortAnswer,
		Content:     e.Content,
		Tags:        e.Tags,
		TagSet:      e.Tags,
		Difficulty:  string(e.Difficulty),
		RatingAvg:   e.RatingAvg,
		RatingCount: float64(e.RatingCount),
	}
	if !e.PubDate.IsZero() {
		ts := float64(e.PubDate.Unix())
		d.PubDate = &ts
	}
	return d
}
