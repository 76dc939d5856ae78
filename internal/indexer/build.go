package indexer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/ajwiba/internal/models"
	"go.uber.org/zap"
)

// ErrMalformedRecord is returned by BuildEntry for a record that cannot be indexed.
var ErrMalformedRecord = errors.New("malformed record")

// BuildEntry derives the index entry for one question record.
func BuildEntry(q *models.Question) (*models.IndexEntry, error) {
	if q == nil {
		return nil, fmt.Errorf("%w: nil record", ErrMalformedRecord)
	}
	slug := strings.TrimSpace(q.Slug)
	question := strings.TrimSpace(q.Question)
	answer := strings.TrimSpace(q.ShortAnswer)
	switch {
	case slug == "":
		return nil, fmt.Errorf("%w: missing slug", ErrMalformedRecord)
	case question == "":
		return nil, fmt.Errorf("%w: %s: missing question", ErrMalformedRecord, slug)
	case answer == "":
		return nil, fmt.Errorf("%w: %s: missing short answer", ErrMalformedRecord, slug)
	}

	excerpt := Excerpt(q.Content, ExcerptLength)
	entry := &models.IndexEntry{
		Slug:        slug,
		Question:    question,
		ShortAnswer: answer,
		Content:     excerpt,
		Tags:        models.NormalizeTags(q.Tags),
		PubDate:     q.PubDate,
		RatingAvg:   q.RatingAvg,
		RatingCount: q.RatingCount,
		SearchTerms: ExtractTerms(question + " " + answer + " " + excerpt),
	}
	if entry.Tags == nil {
		entry.Tags = []string{}
	}
	if q.Difficulty != "" {
		d, ok := models.ParseDifficulty(string(q.Difficulty))
		if !ok {
			return entry, fmt.Errorf("%s: unknown difficulty %q", slug, q.Difficulty)
		}
		entry.Difficulty = d
	}
	return entry, nil
}

// BuildIndex turns records into index entries. Malformed and duplicate records are
// skipped with a warning and counted; the build itself never fails.
func BuildIndex(records []*models.Question, logger *zap.Logger) ([]*models.IndexEntry, int) {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries := make([]*models.IndexEntry, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	skipped := 0
	for i, rec := range records {
		entry, err := BuildEntry(rec)
		if err != nil && errors.Is(err, ErrMalformedRecord) {
			logger.Warn("skipping malformed record", zap.Int("position", i), zap.Error(err))
			skipped++
			continue
		}
		if err != nil {
			// Entry is still usable; only the difficulty was dropped.
			logger.Warn("clearing invalid field", zap.String("slug", entry.Slug), zap.Error(err))
		}
		if _, dup := seen[entry.Slug]; dup {
			logger.Warn("skipping duplicate slug", zap.String("slug", entry.Slug), zap.Int("position", i))
			skipped++
			continue
		}
		seen[entry.Slug] = struct{}{}
		entries = append(entries, entry)
	}
	return entries, skipped
}
