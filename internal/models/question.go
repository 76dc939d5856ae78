// Package models defines core data structures for questions, index entries, queries, and search results.
package models

import (
	"strings"
	"time"
)

// Difficulty is the editorial difficulty of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty returns the difficulty named by s (case-insensitive).
// The second return value is false when s is not a known difficulty.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, true
	default:
		return "", false
	}
}

// Question is one Q&A record as held by the content store.
type Question struct {
	Slug        string     `json:"slug" yaml:"slug"`
	Question    string     `json:"question" yaml:"question"`
	ShortAnswer string     `json:"shortAnswer" yaml:"shortAnswer"`
	Content     string     `json:"content" yaml:"-"`
	Tags        []string   `json:"tags" yaml:"tags"`
	Difficulty  Difficulty `json:"difficulty" yaml:"difficulty"`
	PubDate     time.Time  `json:"pubDate" yaml:"pubDate"`
	RatingAvg   float64    `json:"ratingAvg" yaml:"ratingAvg"`
	RatingCount int        `json:"ratingCount" yaml:"ratingCount"`
	CreatedAt   time.Time  `json:"createdAt,omitempty" yaml:"-"`
	UpdatedAt   time.Time  `json:"updatedAt,omitempty" yaml:"-"`
}

// IndexEntry is the searchable form of one Question. It is derived at build time and never edited in place.
type IndexEntry struct {
	Slug        string     `json:"slug"`
	Question    string     `json:"question"`
	ShortAnswer string     `json:"shortAnswer"`
	Content     string     `json:"content"` // bounded excerpt of the answer body
	Tags        []string   `json:"tags"`
	Difficulty  Difficulty `json:"difficulty,omitempty"`
	PubDate     time.Time  `json:"pubDate,omitempty"`
	RatingAvg   float64    `json:"ratingAvg"`
	RatingCount int        `json:"ratingCount"`
	SearchTerms []string   `json:"searchTerms"`
}

// HasTag reports whether the entry carries any of the given tags.
func (e *IndexEntry) HasTag(tags []string) bool {
	for _, want := range tags {
		for _, t := range e.Tags {
			if t == want {
				return true
			}
		}
	}
	return false
}
