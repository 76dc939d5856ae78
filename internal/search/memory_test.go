package search

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hyperjump/ajwiba/internal/indexer"
	"github.com/hyperjump/ajwiba/internal/models"
	"github.com/hyperjump/ajwiba/internal/ranking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func corpus() []*models.Question {
	return []*models.Question{
		{
			Slug: "what-is-astro", Question: "ما هو Astro", ShortAnswer: "إطار عمل لبناء مواقع المحتوى",
			Tags: []string{"astro"}, Difficulty: models.DifficultyEasy, PubDate: testNow,
			RatingAvg: 4.0, RatingCount: 10,
		},
		{
			Slug: "what-is-seo", Question: "ما هو SEO", ShortAnswer: "Astro يساعد في تحسين الظهور",
			Tags: []string{"seo"}, Difficulty: models.DifficultyMedium, PubDate: testNow.AddDate(-1, 0, 0),
			RatingAvg: 4.5, RatingCount: 3,
		},
		{
			Slug: "astro-islands", Question: "كيف تعمل جزر Astro التفاعلية في الصفحات الثابتة الكبيرة جدا جدا",
			ShortAnswer: "تحميل المكونات عند الحاجة فقط", Tags: []string{"astro", "performance"},
			Difficulty: models.DifficultyHard, PubDate: testNow.AddDate(0, 0, -60),
			RatingAvg: 4.5, RatingCount: 8,
		},
		{
			Slug: "deploy-netlify", Question: "How to deploy to Netlify", ShortAnswer: "Connect the repository and push",
			Content: "Netlify builds the site on every hydration-free push", Tags: []string{"deploy"},
			Difficulty: models.DifficultyEasy,
		},
	}
}

func newTestHolder(t testing.TB, records []*models.Question) *indexer.Holder {
	t.Helper()
	entries, _ := indexer.BuildIndex(records, nil)
	holder := indexer.NewHolder()
	require.NoError(t, holder.Publish(context.Background(), indexer.NewSnapshot(entries, 0)))
	return holder
}

func newTestMemoryBackend(t testing.TB, records []*models.Question) *MemoryBackend {
	scorer := ranking.NewScorer(nil, ranking.WithClock(func() time.Time { return testNow }))
	return NewMemoryBackend(newTestHolder(t, records), scorer)
}

func run(t *testing.T, b Backend, q *models.SearchQuery) *models.ResultPage {
	t.Helper()
	require.NoError(t, q.Validate(DefaultLimit, 100))
	page, err := b.Search(context.Background(), q)
	require.NoError(t, err)
	return page
}

func slugs(items []*models.Suggestion) []string {
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = s.Slug
	}
	return out
}

func TestMemoryBackend_RanksQuestionAboveAnswer(t *testing.T) {
	b := newTestMemoryBackend(t, corpus())
	page := run(t, b, &models.SearchQuery{Query: "astro"})

	assert.Equal(t, 3, page.Total)
	assert.Equal(t, []string{"what-is-astro", "astro-islands", "what-is-seo"}, slugs(page.Items))
	assert.Equal(t, models.MatchQuestion, page.Items[0].MatchType)
	assert.Equal(t, models.MatchAnswer, page.Items[2].MatchType)
	assert.Greater(t, page.Items[0].RelevanceScore, page.Items[2].RelevanceScore)
}

func TestMemoryBackend_SubstringContainment(t *testing.T) {
	b := newTestMemoryBackend(t, corpus())
	page := run(t, b, &models.SearchQuery{Query: "netlify"})
	require.Len(t, page.Items, 1)
	assert.Equal(t, "deploy-netlify", page.Items[0].Slug)

	page = run(t, b, &models.SearchQuery{Query: "hydration"})
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.MatchContent, page.Items[0].MatchType)

	page = run(t, b, &models.SearchQuery{Query: "kubernetes"})
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)
}

func TestMemoryBackend_TagsOnly(t *testing.T) {
	b := newTestMemoryBackend(t, corpus())
	page := run(t, b, &models.SearchQuery{Tags: []string{"ASTRO"}})

	assert.Equal(t, []string{"what-is-astro", "astro-islands"}, slugs(page.Items))
	for _, item := range page.Items {
		assert.Zero(t, item.RelevanceScore)
		assert.Empty(t, item.MatchType)
	}
}

func TestMemoryBackend_FiltersIntersectWithText(t *testing.T) {
	b := newTestMemoryBackend(t, corpus())

	page := run(t, b, &models.SearchQuery{Query: "astro", Difficulty: models.DifficultyHard})
	assert.Equal(t, []string{"astro-islands"}, slugs(page.Items))

	page = run(t, b, &models.SearchQuery{Query: "astro", Tags: []string{"seo", "performance"}})
	assert.Equal(t, []string{"astro-islands", "what-is-seo"}, slugs(page.Items))

	page = run(t, b, &models.SearchQuery{Query: "netlify", Tags: []string{"astro"}})
	assert.Empty(t, page.Items)
}

func TestMemoryBackend_SortOverrides(t *testing.T) {
	b := newTestMemoryBackend(t, corpus())

	page := run(t, b, &models.SearchQuery{SortBy: models.SortByDate, SortOrder: models.SortAsc})
	assert.Equal(t, []string{"what-is-seo", "astro-islands", "what-is-astro", "deploy-netlify"}, slugs(page.Items))

	page = run(t, b, &models.SearchQuery{SortBy: models.SortByDate})
	assert.Equal(t, []string{"what-is-astro", "astro-islands", "what-is-seo", "deploy-netlify"}, slugs(page.Items))

	page = run(t, b, &models.SearchQuery{SortBy: models.SortByRating})
	assert.Equal(t, []string{"astro-islands", "what-is-seo", "what-is-astro", "deploy-netlify"}, slugs(page.Items))

	// Date sort bypasses ranking even with a query.
	page = run(t, b, &models.SearchQuery{Query: "astro", SortBy: models.SortByDate, SortOrder: models.SortAsc})
	assert.Equal(t, []string{"what-is-seo", "astro-islands", "what-is-astro"}, slugs(page.Items))
}

func TestMemoryBackend_TieBreak(t *testing.T) {
	records := []*models.Question{
		{Slug: "b-older", Question: "Deploy guide", ShortAnswer: "x", PubDate: testNow.AddDate(-2, 0, 0)},
		{Slug: "c-newer", Question: "Deploy guide", ShortAnswer: "x", PubDate: testNow.AddDate(-1, 0, 0)},
		{Slug: "a-newer", Question: "Deploy guide", ShortAnswer: "x", PubDate: testNow.AddDate(-1, 0, 0)},
	}
	b := newTestMemoryBackend(t, records)
	page := run(t, b, &models.SearchQuery{Query: "deploy"})
	assert.Equal(t, []string{"a-newer", "c-newer", "b-older"}, slugs(page.Items))
	assert.Equal(t, page.Items[0].RelevanceScore, page.Items[2].RelevanceScore)
}

func TestMemoryBackend_Pagination(t *testing.T) {
	var records []*models.Question
	for i := 0; i < 23; i++ {
		records = append(records, &models.Question{
			Slug:        fmt.Sprintf("deploy-%02d", i),
			Question:    fmt.Sprintf("Deploy question %d", i),
			ShortAnswer: "answer",
			PubDate:     testNow.AddDate(0, 0, -i*7),
		})
	}
	b := newTestMemoryBackend(t, records)
	full := run(t, b, &models.SearchQuery{Query: "deploy", Limit: 100})
	require.Equal(t, 23, full.Total)

	var paged []string
	for offset := 0; offset < 30; offset += 5 {
		page := run(t, b, &models.SearchQuery{Query: "deploy", Limit: 5, Offset: offset})
		assert.Equal(t, 23, page.Total, "total must not depend on the page")
		paged = append(paged, slugs(page.Items)...)
	}
	assert.Equal(t, slugs(full.Items), paged)
}

func TestMemoryBackend_Deterministic(t *testing.T) {
	b := newTestMemoryBackend(t, corpus())
	first := run(t, b, &models.SearchQuery{Query: "astro"})
	for i := 0; i < 5; i++ {
		again := run(t, b, &models.SearchQuery{Query: "astro"})
		assert.Equal(t, slugs(first.Items), slugs(again.Items))
	}
}

func TestMemoryBackend_EmptyIndex(t *testing.T) {
	b := NewMemoryBackend(indexer.NewHolder(), nil)
	page := run(t, b, &models.SearchQuery{Query: "astro"})
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)
}

func TestMemoryBackend_Cancelled(t *testing.T) {
	b := newTestMemoryBackend(t, corpus())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q := &models.SearchQuery{Query: "astro"}
	require.NoError(t, q.Validate(DefaultLimit, 100))
	_, err := b.Search(ctx, q)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2}, Paginate(items, 0, 2))
	assert.Equal(t, []int{5}, Paginate(items, 4, 2))
	assert.Empty(t, Paginate(items, 5, 2))
	assert.Empty(t, Paginate(items, 9, 2))
	assert.Empty(t, Paginate([]int(nil), 0, 2))
}

func BenchmarkMemoryBackend_Search(b *testing.B) {
	var records []*models.Question
	for i := 0; i < 500; i++ {
		records = append(records, &models.Question{
			Slug:        fmt.Sprintf("question-%03d", i),
			Question:    fmt.Sprintf("ما هو الفرق بين المفهوم %d و Astro", i),
			ShortAnswer: "إجابة مختصرة تشرح الفكرة الأساسية بوضوح",
			Content:     "محتوى طويل يشرح الموضوع بالتفصيل مع أمثلة عملية وروابط",
			Tags:        []string{"astro", fmt.Sprintf("tag-%d", i%10)},
			PubDate:     testNow.AddDate(0, 0, -i),
		})
	}
	backend := newTestMemoryBackend(b, records)
	q := &models.SearchQuery{Query: "astro"}
	if err := q.Validate(DefaultLimit, DefaultMaxSize); err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := backend.Search(ctx, q); err != nil {
			b.Fatal(err)
		}
	}
}
