package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/ar"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	unicodetok "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/ajwiba/internal/indexer"
	"github.com/hyperjump/ajwiba/internal/models"
	"github.com/hyperjump/ajwiba/internal/ranking"
	"go.uber.org/zap"
)

// analyzerName lowercases and applies Arabic orthographic normalization, without
// stemming or stop words, so prefix queries see the same terms that were indexed.
const analyzerName = "question"

const batchSize = 200

// generation is one published snapshot: the Bleve index plus the entries it was built from.
type generation struct {
	id      string
	path    string
	index   bleve.Index
	entries map[string]*models.IndexEntry
}

// BleveIndex implements search.Backend and indexer.Publisher over Bleve. Each publish
// builds a fresh index and swaps it in; the previous generation is closed and removed.
type BleveIndex struct {
	dir     string
	mapping *mapping.IndexMappingImpl
	logger  *zap.Logger

	mu  sync.RWMutex
	gen *generation
}

// Option configures a BleveIndex.
type Option func(*BleveIndex)

// WithLogger sets a logger for publish events.
func WithLogger(l *zap.Logger) Option {
	return func(b *BleveIndex) { b.logger = l }
}

// NewBleveIndex creates a backend that keeps its generations under dir.
// An empty dir keeps every generation in memory.
// Generations left behind by a previous process are removed.
func NewBleveIndex(dir string, opts ...Option) (*BleveIndex, error) {
	im, err := newMapping()
	if err != nil {
		return nil, err
	}
	b := &BleveIndex{dir: dir, mapping: im, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create bleve directory: %w", err)
		}
		stale, _ := filepath.Glob(filepath.Join(dir, "gen-*"))
		for _, p := range stale {
			if err := os.RemoveAll(p); err != nil {
				return nil, fmt.Errorf("remove stale generation: %w", err)
			}
		}
	}
	return b, nil
}

func newMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(analyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     unicodetok.Name,
		"token_filters": []interface{}{lowercase.Name, ar.NormalizeName},
	})
	if err != nil {
		return nil, fmt.Errorf("register analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false

	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = analyzerName
	textFieldMapping.Store = false
	textFieldMapping.IncludeInAll = false
	for _, field := range []string{"question", "shortAnswer", "content", "tags"} {
		docMapping.AddFieldMappingsAt(field, textFieldMapping)
	}

	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	keywordFieldMapping.Store = false
	for _, field := range []string{"slug", "tagSet", "difficulty"} {
		docMapping.AddFieldMappingsAt(field, keywordFieldMapping)
	}

	numericFieldMapping := bleve.NewNumericFieldMapping()
	numericFieldMapping.Store = false
	for _, field := range []string{"pubDate", "ratingAvg", "ratingCount"} {
		docMapping.AddFieldMappingsAt(field, numericFieldMapping)
	}

	im.AddDocumentMapping("question", docMapping)
	im.DefaultType = "question"
	im.DefaultMapping = docMapping
	return im, nil
}

// Name implements search.Backend and indexer.Publisher.
func (b *BleveIndex) Name() string { return Name }

// Publish indexes snap into a new generation and swaps it in.
func (b *BleveIndex) Publish(ctx context.Context, snap *indexer.Snapshot) error {
	gen, err := b.build(ctx, snap)
	if err != nil {
		return err
	}

	b.mu.Lock()
	old := b.gen
	b.gen = gen
	b.mu.Unlock()

	if old != nil {
		b.release(old)
	}
	b.logger.Debug("bleve generation published",
		zap.String("snapshot", gen.id),
		zap.Int("entries", len(gen.entries)))
	return nil
}

func (b *BleveIndex) build(ctx context.Context, snap *indexer.Snapshot) (*generation, error) {
	gen := &generation{
		id:      snap.ID,
		entries: make(map[string]*models.IndexEntry, snap.Len()),
	}
	var err error
	if b.dir == "" {
		gen.index, err = bleve.NewMemOnly(b.mapping)
	} else {
		gen.path = filepath.Join(b.dir, "gen-"+snap.ID)
		gen.index, err = bleve.New(gen.path, b.mapping)
	}
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}

	batch := gen.index.NewBatch()
	for _, e := range snap.Entries {
		if err := ctx.Err(); err != nil {
			b.release(gen)
			return nil, err
		}
		if err := batch.Index(e.Slug, newDocument(e)); err != nil {
			b.release(gen)
			return nil, fmt.Errorf("index %s: %w", e.Slug, err)
		}
		gen.entries[e.Slug] = e
		if batch.Size() >= batchSize {
			if err := gen.index.Batch(batch); err != nil {
				b.release(gen)
				return nil, fmt.Errorf("flush batch: %w", err)
			}
			batch = gen.index.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := gen.index.Batch(batch); err != nil {
			b.release(gen)
			return nil, fmt.Errorf("flush batch: %w", err)
		}
	}
	return gen, nil
}

// release closes a generation and removes its files. Searches hold the read lock
// while using a generation, so release runs only after the swap.
func (b *BleveIndex) release(gen *generation) {
	if err := gen.index.Close(); err != nil {
		b.logger.Warn("close bleve generation", zap.String("snapshot", gen.id), zap.Error(err))
	}
	if gen.path != "" {
		if err := os.RemoveAll(gen.path); err != nil {
			b.logger.Warn("remove bleve generation", zap.String("path", gen.path), zap.Error(err))
		}
	}
}

// Search implements search.Backend.
func (b *BleveIndex) Search(ctx context.Context, query *models.SearchQuery) (*models.ResultPage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.gen == nil {
		return &models.ResultPage{Items: []*models.Suggestion{}}, nil
	}

	text := query.Text()
	terms := b.analyze(text)
	ranked := text != "" && len(terms) > 0 && utf8.RuneCountInString(strings.Join(terms, "")) >= MinPrefixLength

	var textQuery blevequery.Query
	switch {
	case text == "":
		textQuery = bleve.NewMatchAllQuery()
	case ranked:
		textQuery = prefixQuery(terms)
	case len(terms) > 0:
		textQuery = wildcardQuery(terms)
	default:
		textQuery = bleve.NewMatchNoneQuery()
	}

	conjuncts := []blevequery.Query{textQuery}
	if query.Difficulty != "" {
		tq := bleve.NewTermQuery(string(query.Difficulty))
		tq.SetField("difficulty")
		conjuncts = append(conjuncts, tq)
	}
	if len(query.Tags) > 0 {
		tagQueries := make([]blevequery.Query, len(query.Tags))
		for i, tag := range query.Tags {
			tq := bleve.NewTermQuery(tag)
			tq.SetField("tagSet")
			tagQueries[i] = tq
		}
		conjuncts = append(conjuncts, bleve.NewDisjunctionQuery(tagQueries...))
	}

	var q blevequery.Query = textQuery
	if len(conjuncts) > 1 {
		q = bleve.NewConjunctionQuery(conjuncts...)
	}

	req := bleve.NewSearchRequestOptions(q, query.Limit, query.Offset, false)
	req.SortByCustom(sortOrder(query, ranked))

	results, err := b.gen.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	pq := ranking.NewQuery(query.Query)
	items := make([]*models.Suggestion, 0, len(results.Hits))
	for _, hit := range results.Hits {
		e, ok := b.gen.entries[hit.ID]
		if !ok {
			continue
		}
		switch {
		case text == "":
			items = append(items, models.NewSuggestion(e, "", 0))
		case ranked:
			items = append(items, models.NewSuggestion(e, ranking.DetectMatchType(pq, e), hit.Score))
		default:
			items = append(items, models.NewSuggestion(e, ranking.DetectMatchType(pq, e), 0))
		}
	}
	return &models.ResultPage{Items: items, Total: int(results.Total)}, nil
}

// analyze runs text through the index analyzer and returns its terms.
func (b *BleveIndex) analyze(text string) []string {
	if text == "" {
		return nil
	}
	analyzer := b.mapping.AnalyzerNamed(analyzerName)
	if analyzer == nil {
		return strings.Fields(text)
	}
	tokens := analyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok.Term) > 0 {
			terms = append(terms, string(tok.Term))
		}
	}
	return terms
}

// prefixQuery requires every term as a prefix of a token in at least one text field.
func prefixQuery(terms []string) blevequery.Query {
	fields := []struct {
		name  string
		boost float64
	}{
		{"question", QuestionBoost},
		{"shortAnswer", ShortAnswerBoost},
		{"tags", TagBoost},
		{"content", ContentBoost},
	}
	perTerm := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		alternatives := make([]blevequery.Query, 0, len(fields))
		for _, f := range fields {
			pq := bleve.NewPrefixQuery(term)
			pq.SetField(f.name)
			pq.SetBoost(f.boost)
			alternatives = append(alternatives, pq)
		}
		perTerm = append(perTerm, bleve.NewDisjunctionQuery(alternatives...))
	}
	if len(perTerm) == 1 {
		return perTerm[0]
	}
	return bleve.NewConjunctionQuery(perTerm...)
}

// wildcardQuery matches entries whose question or short answer has a token containing every term.
func wildcardQuery(terms []string) blevequery.Query {
	perTerm := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		term = strings.NewReplacer("*", "", "?", "").Replace(term)
		if term == "" {
			continue
		}
		question := bleve.NewWildcardQuery("*" + term + "*")
		question.SetField("question")
		answer := bleve.NewWildcardQuery("*" + term + "*")
		answer.SetField("shortAnswer")
		perTerm = append(perTerm, bleve.NewDisjunctionQuery(question, answer))
	}
	if len(perTerm) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	if len(perTerm) == 1 {
		return perTerm[0]
	}
	return bleve.NewConjunctionQuery(perTerm...)
}

func sortOrder(query *models.SearchQuery, ranked bool) search.SortOrder {
	desc := query.SortOrder != models.SortAsc
	slug := &search.SortField{Field: "slug", Type: search.SortFieldAsString}
	newest := &search.SortField{Field: "pubDate", Type: search.SortFieldAsNumber, Desc: true, Missing: search.SortFieldMissingLast}
	switch {
	case query.SortBy == models.SortByDate:
		return search.SortOrder{
			&search.SortField{Field: "pubDate", Type: search.SortFieldAsNumber, Desc: desc, Missing: search.SortFieldMissingLast},
			slug,
		}
	case query.SortBy == models.SortByRating:
		return search.SortOrder{
			&search.SortField{Field: "ratingAvg", Type: search.SortFieldAsNumber, Desc: desc},
			&search.SortField{Field: "ratingCount", Type: search.SortFieldAsNumber, Desc: desc},
			slug,
		}
	case ranked:
		return search.SortOrder{&search.SortScore{Desc: true}, newest, slug}
	default:
		return search.SortOrder{newest, slug}
	}
}

// DocCount returns the number of documents in the current generation.
func (b *BleveIndex) DocCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.gen == nil {
		return 0, nil
	}
	return b.gen.index.DocCount()
}

// Close closes the current generation and removes its files.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen == nil {
		return nil
	}
	err := b.gen.index.Close()
	if b.gen.path != "" {
		if rmErr := os.RemoveAll(b.gen.path); err == nil {
			err = rmErr
		}
	}
	b.gen = nil
	return err
}
