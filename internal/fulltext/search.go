package fulltext

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hyperjump/ajwiba/internal/models"
	"github.com/hyperjump/ajwiba/internal/ranking"
)

// MinPrefixLength is the shortest sanitized query that becomes an FTS5 prefix query.
// Shorter queries fall back to substring matching.
const MinPrefixLength = 3

// bm25 column weights: question, short_answer, content, tags.
const bm25Expr = "bm25(questions_fts, 10.0, 8.0, 4.0, 6.0)"

// SearchResult wraps a stored question with its bm25 rank.
type SearchResult struct {
	QuestionRow
	Score float64 `gorm:"column:score"`
}

type searchMode int

const (
	modeBrowse searchMode = iota // no text: filters and ordering only
	modeRanked                   // FTS5 MATCH with bm25
	modeLike                     // substring fallback, recency only
)

// Search implements search.Backend.
func (s *Store) Search(ctx context.Context, query *models.SearchQuery) (*models.ResultPage, error) {
	text := query.Text()
	ftsQuery := PrepareFTSQuery(text)
	mode := modeBrowse
	switch {
	case text == "":
	case ftsQuery != "":
		mode = modeRanked
	default:
		mode = modeLike
	}

	var (
		from  = "FROM questions q"
		where []string
		args  []interface{}
	)
	switch mode {
	case modeRanked:
		from += " JOIN questions_fts ON q.rowid = questions_fts.rowid"
		where = append(where, "questions_fts MATCH ?")
		args = append(args, ftsQuery)
	case modeLike:
		pattern := "%" + escapeLike(text) + "%"
		where = append(where, `(LOWER(q.question) LIKE ? ESCAPE '\' OR LOWER(q.short_answer) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if query.Difficulty != "" {
		where = append(where, "q.difficulty = ?")
		args = append(args, string(query.Difficulty))
	}
	if len(query.Tags) > 0 {
		where = append(where, "q.slug IN (SELECT slug FROM question_tags WHERE tag IN ?)")
		args = append(args, query.Tags)
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = " WHERE " + strings.Join(where, " AND ")
	}

	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Raw("SELECT COUNT(*) "+from+whereSQL, args...).Scan(&total).Error; err != nil {
		return nil, fmt.Errorf("fts count: %w", err)
	}
	if total == 0 || query.Offset >= int(total) {
		return &models.ResultPage{Items: []*models.Suggestion{}, Total: int(total)}, nil
	}

	scoreExpr := "0.0"
	if mode == modeRanked {
		scoreExpr = bm25Expr
	}
	selectSQL := fmt.Sprintf("SELECT q.*, %s AS score %s%s ORDER BY %s LIMIT ? OFFSET ?",
		scoreExpr, from, whereSQL, orderBy(query, mode == modeRanked))
	pageArgs := append(append([]interface{}{}, args...), query.Limit, query.Offset)

	var results []SearchResult
	if err := db.Raw(selectSQL, pageArgs...).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("fts search: %w", err)
	}

	tags, err := s.loadTags(ctx, results)
	if err != nil {
		return nil, err
	}

	pq := ranking.NewQuery(query.Query)
	items := make([]*models.Suggestion, 0, len(results))
	for i := range results {
		r := &results[i]
		entry := r.toEntry(tags[r.Slug])
		if mode == modeBrowse {
			items = append(items, models.NewSuggestion(entry, "", 0))
			continue
		}
		score := 0.0
		if mode == modeRanked && r.Score < 0 {
			score = -r.Score
		}
		items = append(items, models.NewSuggestion(entry, ranking.DetectMatchType(pq, entry), score))
	}
	return &models.ResultPage{Items: items, Total: int(total)}, nil
}

// loadTags returns the ordered tags of every result, keyed by slug.
func (s *Store) loadTags(ctx context.Context, results []SearchResult) (map[string][]string, error) {
	out := make(map[string][]string, len(results))
	if len(results) == 0 {
		return out, nil
	}
	slugs := make([]string, len(results))
	for i, r := range results {
		slugs[i] = r.Slug
	}
	var rows []TagRow
	err := s.db.WithContext(ctx).
		Where("slug IN ?", slugs).
		Order("slug, position").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	for _, r := range rows {
		out[r.Slug] = append(out[r.Slug], r.Tag)
	}
	return out, nil
}

func orderBy(query *models.SearchQuery, ranked bool) string {
	dir := "DESC"
	if query.SortOrder == models.SortAsc {
		dir = "ASC"
	}
	switch {
	case query.SortBy == models.SortByDate:
		return "q.pub_date IS NULL, q.pub_date " + dir + ", q.slug ASC"
	case query.SortBy == models.SortByRating:
		return "q.rating_avg " + dir + ", q.rating_count " + dir + ", q.slug ASC"
	case ranked:
		return "score ASC, q.pub_date IS NULL, q.pub_date DESC, q.slug ASC"
	default:
		return "q.pub_date IS NULL, q.pub_date DESC, q.slug ASC"
	}
}

// sanitizeTerms splits text into terms of letters, digits, and marks. Everything else,
// including FTS5 operators and quotes, separates terms.
func sanitizeTerms(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsMark(r)
	})
}

// prefixQuery joins terms into an FTS5 expression requiring every term as a prefix.
func prefixQuery(terms []string) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = `"` + t + `"*`
	}
	return strings.Join(parts, " ")
}

// PrepareFTSQuery returns the FTS5 prefix expression for text, or "" when text is too
// short to form one.
func PrepareFTSQuery(text string) string {
	terms := sanitizeTerms(strings.ToLower(text))
	if len(terms) == 0 || utf8.RuneCountInString(strings.Join(terms, "")) < MinPrefixLength {
		return ""
	}
	return prefixQuery(terms)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
