// Package search provides the query engine boundary: backends, validation, caching, and highlighting.
package search

import (
	"context"
	"errors"

	"github.com/hyperjump/ajwiba/internal/models"
)

// ErrBackendUnavailable wraps any failure, timeout, or panic inside a backend.
var ErrBackendUnavailable = errors.New("search backend unavailable")

// Backend executes a validated query and returns one ordered page of hits.
// Implementations apply tag and difficulty filters, full ordering, then pagination,
// and report the size of the whole filtered candidate set in Total.
type Backend interface {
	Name() string
	Search(ctx context.Context, query *models.SearchQuery) (*models.ResultPage, error)
}

// Paginate returns items[offset:offset+limit], clamped to the slice bounds.
func Paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) || limit <= 0 {
		return items[:0]
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// MatchesFilters reports whether e passes the tag (intersection) and difficulty (equality) filters.
func MatchesFilters(e *models.IndexEntry, q *models.SearchQuery) bool {
	if q.Difficulty != "" && e.Difficulty != q.Difficulty {
		return false
	}
	if len(q.Tags) > 0 && !e.HasTag(q.Tags) {
		return false
	}
	return true
}
