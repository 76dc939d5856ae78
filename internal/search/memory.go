package search

import (
	"context"
	"sort"

	"github.com/hyperjump/ajwiba/internal/indexer"
	"github.com/hyperjump/ajwiba/internal/models"
	"github.com/hyperjump/ajwiba/internal/ranking"
)

// cancelCheckInterval is how many entries are scanned between context checks.
const cancelCheckInterval = 128

// MemoryBackend scores the current in-process snapshot with the heuristic scorer.
type MemoryBackend struct {
	holder *indexer.Holder
	scorer *ranking.Scorer
}

// NewMemoryBackend creates a backend over holder. A nil scorer uses default weights.
func NewMemoryBackend(holder *indexer.Holder, scorer *ranking.Scorer) *MemoryBackend {
	if scorer == nil {
		scorer = ranking.NewScorer(nil)
	}
	return &MemoryBackend{holder: holder, scorer: scorer}
}

// Name implements Backend.
func (b *MemoryBackend) Name() string { return "memory" }

type hit struct {
	entry *models.IndexEntry
	match ranking.Match
}

// Search implements Backend.
func (b *MemoryBackend) Search(ctx context.Context, query *models.SearchQuery) (*models.ResultPage, error) {
	snap := b.holder.Current()
	pq := ranking.NewQuery(query.Query)
	scoring := pq.Text != ""

	hits := make([]hit, 0)
	for i, e := range snap.Entries {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !MatchesFilters(e, query) {
			continue
		}
		if !scoring {
			hits = append(hits, hit{entry: e})
			continue
		}
		m, ok := b.scorer.Score(pq, e)
		if !ok {
			continue
		}
		hits = append(hits, hit{entry: e, match: m})
	}

	sortHits(hits, query, scoring)

	page := Paginate(hits, query.Offset, query.Limit)
	items := make([]*models.Suggestion, 0, len(page))
	for _, h := range page {
		items = append(items, models.NewSuggestion(h.entry, h.match.Type, h.match.Score))
	}
	return &models.ResultPage{Items: items, Total: len(hits)}, nil
}

func sortHits(hits []hit, query *models.SearchQuery, scoring bool) {
	asc := query.SortOrder == models.SortAsc
	var less func(a, b hit) bool
	switch {
	case query.SortBy == models.SortByDate:
		less = func(a, b hit) bool {
			if c := compareDates(a.entry, b.entry, asc); c != 0 {
				return c < 0
			}
			return a.entry.Slug < b.entry.Slug
		}
	case query.SortBy == models.SortByRating:
		less = func(a, b hit) bool {
			if a.entry.RatingAvg != b.entry.RatingAvg {
				return (a.entry.RatingAvg < b.entry.RatingAvg) == asc
			}
			if a.entry.RatingCount != b.entry.RatingCount {
				return (a.entry.RatingCount < b.entry.RatingCount) == asc
			}
			return a.entry.Slug < b.entry.Slug
		}
	case scoring:
		less = func(a, b hit) bool {
			if a.match.Score != b.match.Score {
				return a.match.Score > b.match.Score
			}
			if c := compareDates(a.entry, b.entry, false); c != 0 {
				return c < 0
			}
			return a.entry.Slug < b.entry.Slug
		}
	default:
		less = func(a, b hit) bool {
			if c := compareDates(a.entry, b.entry, false); c != 0 {
				return c < 0
			}
			return a.entry.Slug < b.entry.Slug
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return less(hits[i], hits[j]) })
}

// compareDates orders by pubDate in the given direction. Undated entries sort last either way.
func compareDates(a, b *models.IndexEntry, asc bool) int {
	az, bz := a.PubDate.IsZero(), b.PubDate.IsZero()
	switch {
	case az && bz:
		return 0
	case az:
		return 1
	case bz:
		return -1
	}
	c := a.PubDate.Compare(b.PubDate)
	if !asc {
		c = -c
	}
	return c
}
