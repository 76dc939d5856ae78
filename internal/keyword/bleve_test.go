package keyword

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/ajwiba/internal/indexer"
	"github.com/hyperjump/ajwiba/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func corpus() []*models.Question {
	return []*models.Question{
		{Slug: "what-is-astro", Question: "What is Astro", ShortAnswer: "إطار عمل لبناء مواقع المحتوى",
			Tags: []string{"astro", "framework"}, Difficulty: models.DifficultyEasy, PubDate: day(2024, 5, 30),
			RatingAvg: 4.0, RatingCount: 10},
		{Slug: "astro-islands", Question: "How do Astro islands work", ShortAnswer: "Components hydrate only when needed",
			Tags: []string{"astro", "performance"}, Difficulty: models.DifficultyHard, PubDate: day(2024, 4, 1),
			RatingAvg: 4.5, RatingCount: 8},
		{Slug: "what-is-seo", Question: "What is SEO", ShortAnswer: "Astro helps with search ranking",
			Tags: []string{"seo"}, Difficulty: models.DifficultyMedium, PubDate: day(2023, 6, 1),
			RatingAvg: 4.5, RatingCount: 3},
		{Slug: "deploy-netlify", Question: "How to deploy to Netlify", ShortAnswer: "Connect the repository and push",
			Tags: []string{"deploy"}, Difficulty: models.DifficultyEasy},
		{Slug: "css-grid", Question: "How does CSS grid layout work", ShortAnswer: "Two dimensional layout for pages",
			Tags: []string{"css"}, Difficulty: models.DifficultyMedium, PubDate: day(2022, 1, 1)},
		{Slug: "http-caching", Question: "How does HTTP caching work", ShortAnswer: "Headers control how long responses live",
			Tags: []string{"http"}, Difficulty: models.DifficultyMedium, PubDate: day(2022, 2, 1)},
	}
}

func snapshot(records []*models.Question) *indexer.Snapshot {
	entries, _ := indexer.BuildIndex(records, nil)
	return indexer.NewSnapshot(entries, 0)
}

// testIndex creates an in-memory index with records published.
func testIndex(t *testing.T, records []*models.Question) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	t.Cleanup(func() {
		_ = idx.Close()
	})
	if err := idx.Publish(context.Background(), snapshot(records)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	return idx
}

func runSearch(t *testing.T, idx *BleveIndex, q *models.SearchQuery) *models.ResultPage {
	t.Helper()
	if err := q.Validate(100, 100); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	page, err := idx.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search(%q): %v", q.Query, err)
	}
	return page
}

func slugs(items []*models.Suggestion) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = s.Slug
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBleveIndex_SearchBeforePublish(t *testing.T) {
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer func() {
		_ = idx.Close()
	}()

	page := runSearch(t, idx, &models.SearchQuery{Query: "astro"})
	if page.Total != 0 || len(page.Items) != 0 {
		t.Errorf("expected empty page before first publish, got %+v", page)
	}
	count, err := idx.DocCount()
	if err != nil || count != 0 {
		t.Errorf("DocCount = %d, %v; want 0, nil", count, err)
	}
}

func TestBleveIndex_RanksQuestionAboveAnswer(t *testing.T) {
	idx := testIndex(t, corpus())
	page := runSearch(t, idx, &models.SearchQuery{Query: "Astro"})

	if page.Total != 3 || len(page.Items) != 3 {
		t.Fatalf("got total %d with %v, want 3", page.Total, slugs(page.Items))
	}
	last := page.Items[2]
	if last.Slug != "what-is-seo" {
		t.Errorf("answer-only match should rank last, got %v", slugs(page.Items))
	}
	if last.MatchType != models.MatchAnswer {
		t.Errorf("MatchType = %q, want answer", last.MatchType)
	}
	for i, item := range page.Items {
		if item.RelevanceScore <= 0 {
			t.Errorf("item %d has non-positive score %v", i, item.RelevanceScore)
		}
		if i > 0 && item.RelevanceScore > page.Items[i-1].RelevanceScore {
			t.Errorf("scores not descending: %v", slugs(page.Items))
		}
	}
}

func TestBleveIndex_PrefixTermsAllRequired(t *testing.T) {
	idx := testIndex(t, corpus())

	page := runSearch(t, idx, &models.SearchQuery{Query: "deplo"})
	if !equal(slugs(page.Items), []string{"deploy-netlify"}) {
		t.Errorf("prefix got %v, want [deploy-netlify]", slugs(page.Items))
	}

	page = runSearch(t, idx, &models.SearchQuery{Query: "astro isl"})
	if !equal(slugs(page.Items), []string{"astro-islands"}) {
		t.Errorf("conjunction got %v, want [astro-islands]", slugs(page.Items))
	}

	page = runSearch(t, idx, &models.SearchQuery{Query: "kubernetes"})
	if page.Total != 0 || len(page.Items) != 0 {
		t.Errorf("no-match got %v", slugs(page.Items))
	}
}

func TestBleveIndex_Arabic(t *testing.T) {
	idx := testIndex(t, corpus())

	page := runSearch(t, idx, &models.SearchQuery{Query: "إطار"})
	if !equal(slugs(page.Items), []string{"what-is-astro"}) {
		t.Fatalf("got %v, want [what-is-astro]", slugs(page.Items))
	}
	if page.Items[0].MatchType != models.MatchAnswer {
		t.Errorf("MatchType = %q, want answer", page.Items[0].MatchType)
	}

	// Alef variants are normalized on both sides.
	page = runSearch(t, idx, &models.SearchQuery{Query: "اطار"})
	if !equal(slugs(page.Items), []string{"what-is-astro"}) {
		t.Errorf("normalized query got %v, want [what-is-astro]", slugs(page.Items))
	}
}

func TestBleveIndex_ShortQueryFallback(t *testing.T) {
	idx := testIndex(t, corpus())
	page := runSearch(t, idx, &models.SearchQuery{Query: "is"})

	want := []string{"what-is-astro", "astro-islands", "what-is-seo"}
	if !equal(slugs(page.Items), want) {
		t.Fatalf("fallback got %v, want %v", slugs(page.Items), want)
	}
	for _, item := range page.Items {
		if item.RelevanceScore != 0 {
			t.Errorf("%s score = %v, want 0", item.Slug, item.RelevanceScore)
		}
	}

	page = runSearch(t, idx, &models.SearchQuery{Query: "!!"})
	if page.Total != 0 {
		t.Errorf("punctuation-only query matched %v", slugs(page.Items))
	}
}

func TestBleveIndex_Filters(t *testing.T) {
	idx := testIndex(t, corpus())

	page := runSearch(t, idx, &models.SearchQuery{Query: "astro", Difficulty: models.DifficultyHard})
	if !equal(slugs(page.Items), []string{"astro-islands"}) {
		t.Errorf("difficulty filter got %v", slugs(page.Items))
	}

	page = runSearch(t, idx, &models.SearchQuery{Tags: []string{"astro"}})
	if !equal(slugs(page.Items), []string{"what-is-astro", "astro-islands"}) {
		t.Errorf("tags-only got %v", slugs(page.Items))
	}
	for _, item := range page.Items {
		if item.RelevanceScore != 0 || item.MatchType != "" {
			t.Errorf("tags-only item %s scored: %v %q", item.Slug, item.RelevanceScore, item.MatchType)
		}
	}

	page = runSearch(t, idx, &models.SearchQuery{Query: "netlify", Tags: []string{"astro"}})
	if page.Total != 0 || len(page.Items) != 0 {
		t.Errorf("disjoint filter got %v", slugs(page.Items))
	}
}

func TestBleveIndex_SortOverrides(t *testing.T) {
	idx := testIndex(t, corpus())

	page := runSearch(t, idx, &models.SearchQuery{SortBy: models.SortByDate, SortOrder: models.SortAsc})
	want := []string{"css-grid", "http-caching", "what-is-seo", "astro-islands", "what-is-astro", "deploy-netlify"}
	if !equal(slugs(page.Items), want) {
		t.Errorf("date asc got %v, want %v", slugs(page.Items), want)
	}

	page = runSearch(t, idx, &models.SearchQuery{SortBy: models.SortByDate})
	want = []string{"what-is-astro", "astro-islands", "what-is-seo", "http-caching", "css-grid", "deploy-netlify"}
	if !equal(slugs(page.Items), want) {
		t.Errorf("date desc got %v, want %v", slugs(page.Items), want)
	}

	page = runSearch(t, idx, &models.SearchQuery{SortBy: models.SortByRating})
	want = []string{"astro-islands", "what-is-seo", "what-is-astro", "css-grid", "deploy-netlify", "http-caching"}
	if !equal(slugs(page.Items), want) {
		t.Errorf("rating desc got %v, want %v", slugs(page.Items), want)
	}
}

func TestBleveIndex_Pagination(t *testing.T) {
	idx := testIndex(t, corpus())
	full := runSearch(t, idx, &models.SearchQuery{SortBy: models.SortByDate, Limit: 100})

	var paged []string
	for offset := 0; offset < 8; offset += 4 {
		page := runSearch(t, idx, &models.SearchQuery{SortBy: models.SortByDate, Limit: 4, Offset: offset})
		if page.Total != 6 {
			t.Errorf("offset %d: Total = %d, want 6", offset, page.Total)
		}
		paged = append(paged, slugs(page.Items)...)
	}
	if !equal(paged, slugs(full.Items)) {
		t.Errorf("pages %v do not concatenate to %v", paged, slugs(full.Items))
	}
}

func TestBleveIndex_GenerationSwap(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "bleve")

	// A generation left by a previous process is cleared.
	if err := os.MkdirAll(filepath.Join(dir, "gen-stale"), 0755); err != nil {
		t.Fatal(err)
	}

	idx, err := NewBleveIndex(dir)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer func() {
		_ = idx.Close()
	}()
	if _, err := os.Stat(filepath.Join(dir, "gen-stale")); !os.IsNotExist(err) {
		t.Errorf("stale generation should be removed, stat err = %v", err)
	}

	ctx := context.Background()
	first := snapshot(corpus())
	if err := idx.Publish(ctx, first); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "gen-"+first.ID)); err != nil {
		t.Errorf("generation directory should exist: %v", err)
	}

	second := snapshot(corpus()[2:4])
	if err := idx.Publish(ctx, second); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "gen-"+first.ID)); !os.IsNotExist(err) {
		t.Errorf("previous generation should be removed, stat err = %v", err)
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatalf("DocCount: %v", err)
	}
	if count != 2 {
		t.Errorf("DocCount = %d, want 2", count)
	}
	page := runSearch(t, idx, &models.SearchQuery{Query: "astro"})
	if !equal(slugs(page.Items), []string{"what-is-seo"}) {
		t.Errorf("after swap got %v, want [what-is-seo]", slugs(page.Items))
	}
}

func TestBleveIndex_PublishCancelled(t *testing.T) {
	idx := testIndex(t, corpus())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := idx.Publish(ctx, snapshot(corpus()[:1])); err == nil {
		t.Fatal("expected error publishing with a cancelled context")
	}
	// The previous generation keeps serving.
	page := runSearch(t, idx, &models.SearchQuery{Query: "astro"})
	if page.Total != 3 {
		t.Errorf("Total = %d, want 3 from the previous generation", page.Total)
	}
}
