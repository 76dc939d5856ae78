package fulltext

import (
	"context"
	"os"
	"path/filepath"
	"sort"
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
		{Slug: "image-formats", Question: "Which image format should I use", ShortAnswer: "Prefer modern formats like AVIF",
			Tags: []string{"images"}, Difficulty: models.DifficultyEasy, PubDate: day(2022, 3, 1)},
		{Slug: "web-fonts", Question: "How to load web fonts fast", ShortAnswer: "Preload the font files you need",
			Tags: []string{"fonts"}, Difficulty: models.DifficultyEasy, PubDate: day(2022, 4, 1)},
	}
}

// testStore creates a temporary store with records published.
func testStore(t *testing.T, records []*models.Question) *Store {
	t.Helper()

	store, err := New(DefaultConfig(filepath.Join(t.TempDir(), "fulltext.db")))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("Failed to close test store: %v", err)
		}
	})

	publish(t, store, records)
	return store
}

func publish(t *testing.T, store *Store, records []*models.Question) {
	t.Helper()
	entries, _ := indexer.BuildIndex(records, nil)
	if err := store.Publish(context.Background(), indexer.NewSnapshot(entries, 0)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
}

func search(t *testing.T, store *Store, q *models.SearchQuery) *models.ResultPage {
	t.Helper()
	if err := q.Validate(100, 100); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	page, err := store.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search(%q) error = %v", q.Query, err)
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

func TestNew(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "fulltext.db")

	store, err := New(DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if store.Path() != dbPath {
		t.Errorf("Path() = %v, want %v", store.Path(), dbPath)
	}
	if store.Name() != "sqlite" {
		t.Errorf("Name() = %v, want sqlite", store.Name())
	}
	publish(t, store, corpus())
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopening keeps the schema and the published rows.
	store, err = New(DefaultConfig(dbPath))
	if err != nil {
		t.Fatalf("New() on existing database error = %v", err)
	}
	defer store.Close()
	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 8 {
		t.Errorf("Count() = %d, want 8", count)
	}
}

func TestPublish_Replaces(t *testing.T) {
	store := testStore(t, corpus())

	page := search(t, store, &models.SearchQuery{Query: "astro"})
	if page.Total != 3 {
		t.Fatalf("Total = %d, want 3", page.Total)
	}

	publish(t, store, corpus()[2:4])
	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}

	// Removed rows must be gone from the FTS index too.
	page = search(t, store, &models.SearchQuery{Query: "astro"})
	if !equal(slugs(page.Items), []string{"what-is-seo"}) {
		t.Errorf("after republish got %v, want [what-is-seo]", slugs(page.Items))
	}
}

func TestSearch_Ranked(t *testing.T) {
	store := testStore(t, corpus())
	page := search(t, store, &models.SearchQuery{Query: "Astro"})

	if page.Total != 3 || len(page.Items) != 3 {
		t.Fatalf("got total %d with %d items, want 3", page.Total, len(page.Items))
	}
	last := page.Items[2]
	if last.Slug != "what-is-seo" {
		t.Errorf("answer-only match should rank last, got order %v", slugs(page.Items))
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
	for _, item := range page.Items[:2] {
		if item.MatchType != models.MatchQuestion {
			t.Errorf("%s MatchType = %q, want question", item.Slug, item.MatchType)
		}
	}
}

func TestSearch_Prefix(t *testing.T) {
	store := testStore(t, corpus())

	page := search(t, store, &models.SearchQuery{Query: "deplo"})
	if !equal(slugs(page.Items), []string{"deploy-netlify"}) {
		t.Errorf("prefix search got %v, want [deploy-netlify]", slugs(page.Items))
	}

	// Every term is required.
	page = search(t, store, &models.SearchQuery{Query: "astro isl"})
	if !equal(slugs(page.Items), []string{"astro-islands"}) {
		t.Errorf("multi-term search got %v, want [astro-islands]", slugs(page.Items))
	}
}

func TestSearch_Arabic(t *testing.T) {
	store := testStore(t, corpus())

	page := search(t, store, &models.SearchQuery{Query: "إطار"})
	if !equal(slugs(page.Items), []string{"what-is-astro"}) {
		t.Fatalf("got %v, want [what-is-astro]", slugs(page.Items))
	}
	if page.Items[0].MatchType != models.MatchAnswer {
		t.Errorf("MatchType = %q, want answer", page.Items[0].MatchType)
	}

	// Two letters fall back to substring matching.
	page = search(t, store, &models.SearchQuery{Query: "إط"})
	if !equal(slugs(page.Items), []string{"what-is-astro"}) {
		t.Errorf("short arabic query got %v, want [what-is-astro]", slugs(page.Items))
	}
}

func TestSearch_ShortQueryFallback(t *testing.T) {
	store := testStore(t, corpus())
	page := search(t, store, &models.SearchQuery{Query: "is"})

	want := []string{"what-is-astro", "astro-islands", "what-is-seo"}
	if !equal(slugs(page.Items), want) {
		t.Fatalf("fallback got %v, want %v (recency order)", slugs(page.Items), want)
	}
	for _, item := range page.Items {
		if item.RelevanceScore != 0 {
			t.Errorf("%s score = %v, want 0 for substring fallback", item.Slug, item.RelevanceScore)
		}
	}
}

func TestSearch_SpecialCharacters(t *testing.T) {
	store := testStore(t, corpus())

	for _, q := range []string{`astro" OR (`, "NEAR(astro", "astro*", "50%_", `\`} {
		sq := &models.SearchQuery{Query: q}
		if err := sq.Validate(10, 10); err != nil {
			t.Fatalf("Validate(%q) error = %v", q, err)
		}
		if _, err := store.Search(context.Background(), sq); err != nil {
			t.Errorf("Search(%q) error = %v", q, err)
		}
	}
}

func TestSearch_Filters(t *testing.T) {
	store := testStore(t, corpus())

	page := search(t, store, &models.SearchQuery{Query: "astro", Difficulty: models.DifficultyHard})
	if !equal(slugs(page.Items), []string{"astro-islands"}) {
		t.Errorf("difficulty filter got %v", slugs(page.Items))
	}

	page = search(t, store, &models.SearchQuery{Query: "astro", Tags: []string{"SEO", "performance"}})
	got := slugs(page.Items)
	sort.Strings(got)
	if page.Total != 2 || !equal(got, []string{"astro-islands", "what-is-seo"}) {
		t.Errorf("tag filter got %v (total %d)", got, page.Total)
	}

	page = search(t, store, &models.SearchQuery{Tags: []string{"astro"}})
	if !equal(slugs(page.Items), []string{"what-is-astro", "astro-islands"}) {
		t.Errorf("tags-only got %v", slugs(page.Items))
	}
	for _, item := range page.Items {
		if item.RelevanceScore != 0 || item.MatchType != "" {
			t.Errorf("tags-only item %s scored: %v %q", item.Slug, item.RelevanceScore, item.MatchType)
		}
	}
	if !equal(page.Items[0].Tags, []string{"astro", "framework"}) {
		t.Errorf("Tags = %v, want display order preserved", page.Items[0].Tags)
	}

	page = search(t, store, &models.SearchQuery{Query: "netlify", Tags: []string{"astro"}})
	if page.Total != 0 || len(page.Items) != 0 || page.Items == nil {
		t.Errorf("disjoint filter should return an empty non-nil page, got %+v", page)
	}
}

func TestSearch_SortOverrides(t *testing.T) {
	store := testStore(t, corpus())

	page := search(t, store, &models.SearchQuery{SortBy: models.SortByDate, SortOrder: models.SortAsc})
	want := []string{"css-grid", "http-caching", "image-formats", "web-fonts", "what-is-seo", "astro-islands", "what-is-astro", "deploy-netlify"}
	if !equal(slugs(page.Items), want) {
		t.Errorf("date asc got %v, want %v", slugs(page.Items), want)
	}

	page = search(t, store, &models.SearchQuery{SortBy: models.SortByDate})
	want = []string{"what-is-astro", "astro-islands", "what-is-seo", "web-fonts", "image-formats", "http-caching", "css-grid", "deploy-netlify"}
	if !equal(slugs(page.Items), want) {
		t.Errorf("date desc got %v, want %v", slugs(page.Items), want)
	}
	if page.Items[7].PubDate != nil {
		t.Errorf("undated record has PubDate %v", page.Items[7].PubDate)
	}
	if !page.Items[0].PubDate.Equal(day(2024, 5, 30)) {
		t.Errorf("PubDate = %v, want 2024-05-30", page.Items[0].PubDate)
	}

	page = search(t, store, &models.SearchQuery{SortBy: models.SortByRating})
	want = []string{"astro-islands", "what-is-seo", "what-is-astro", "css-grid", "deploy-netlify", "http-caching", "image-formats", "web-fonts"}
	if !equal(slugs(page.Items), want) {
		t.Errorf("rating desc got %v, want %v", slugs(page.Items), want)
	}
}

func TestSearch_Pagination(t *testing.T) {
	store := testStore(t, corpus())
	full := search(t, store, &models.SearchQuery{SortBy: models.SortByDate, Limit: 100})

	var paged []string
	for offset := 0; offset < 10; offset += 3 {
		page := search(t, store, &models.SearchQuery{SortBy: models.SortByDate, Limit: 3, Offset: offset})
		if page.Total != 8 {
			t.Errorf("offset %d: Total = %d, want 8", offset, page.Total)
		}
		paged = append(paged, slugs(page.Items)...)
	}
	if !equal(paged, slugs(full.Items)) {
		t.Errorf("pages %v do not concatenate to %v", paged, slugs(full.Items))
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	store := testStore(t, nil)
	page := search(t, store, &models.SearchQuery{Query: "astro"})
	if page.Total != 0 || len(page.Items) != 0 {
		t.Errorf("empty index returned %+v", page)
	}
}

func TestPrepareFTSQuery(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"astro", `"astro"*`},
		{"Astro Islands", `"astro"* "islands"*`},
		{"go-lang", `"go"* "lang"*`},
		{`astro" OR (`, `"astro"* "or"*`},
		{"إطار عمل", `"إطار"* "عمل"*`},
		{"", ""},
		{"ab", ""},
		{"a-b", ""},
		{"***", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := PrepareFTSQuery(tt.input)
			if result != tt.expected {
				t.Errorf("PrepareFTSQuery(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
