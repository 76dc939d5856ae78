package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/ajwiba/internal/models"
	"github.com/hyperjump/ajwiba/internal/ranking"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var searchOpts struct {
	serverURL  string
	limit      int
	offset     int
	tags       []string
	difficulty string
	sortBy     string
	sortOrder  string
	output     string
	explain    bool
}

var searchCmd = &cobra.Command{
	Use:   "search [flags] <query>",
	Short: "Search questions",
	Long: `Search questions by text, tags and difficulty.

The query is all remaining arguments joined by spaces, so multi-word queries
work with or without quotes. With --server set to an empty string the index is
built and queried in-process; --explain then prints the score breakdown.`,
	Example: `  ajwiba search astro
  ajwiba search --tag astro --sort-by date
  ajwiba search --output json "ما هو"
  ajwiba search --server "" --explain astro`,
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchOpts.serverURL, "server", "http://localhost:8080", "server URL (empty = search in-process)")
	f.IntVar(&searchOpts.limit, "limit", 0, "number of results (0 = server default)")
	f.IntVar(&searchOpts.offset, "offset", 0, "results to skip")
	f.StringSliceVar(&searchOpts.tags, "tag", nil, "filter by tag (repeatable or comma-separated)")
	f.StringVar(&searchOpts.difficulty, "difficulty", "", "filter by difficulty: easy, medium, hard")
	f.StringVar(&searchOpts.sortBy, "sort-by", "", "relevance, date or rating")
	f.StringVar(&searchOpts.sortOrder, "sort-order", "", "asc or desc")
	f.StringVar(&searchOpts.output, "output", "text", "output format: text, compact or json")
	f.BoolVar(&searchOpts.explain, "explain", false, "print score breakdowns (in-process only)")
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func parseOutputFormat(s string) (SearchOutputFormat, error) {
	switch SearchOutputFormat(s) {
	case OutputText, OutputCompact, OutputJSON:
		return SearchOutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	format, err := parseOutputFormat(searchOpts.output)
	if err != nil {
		return err
	}
	query := &models.SearchQuery{
		Query:      buildSearchQuery(args),
		Tags:       searchOpts.tags,
		Difficulty: models.Difficulty(searchOpts.difficulty),
		SortBy:     models.SortBy(searchOpts.sortBy),
		SortOrder:  models.SortOrder(searchOpts.sortOrder),
		Limit:      searchOpts.limit,
		Offset:     searchOpts.offset,
	}
	out := cmd.OutOrStdout()

	if searchOpts.serverURL != "" {
		if searchOpts.explain {
			return fmt.Errorf("--explain needs an in-process search; pass --server \"\"")
		}
		response, err := searchViaHTTP(searchOpts.serverURL, query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		return WriteSearchResults(out, response, format)
	}

	cfg, _, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	ctx := cmd.Context()
	if err := components.warmUp(ctx, logger); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	response, err := components.Service.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if err := WriteSearchResults(out, response, format); err != nil {
		return err
	}
	if searchOpts.explain {
		entries := make(map[string]*models.IndexEntry)
		for _, e := range components.Holder.Current().Entries {
			entries[e.Slug] = e
		}
		pq := ranking.NewQuery(query.Query)
		for _, s := range response.Suggestions {
			WriteBreakdown(out, s.Slug, components.Scorer.Breakdown(pq, entries[s.Slug]))
		}
		logger.Debug("explained results", zap.Int("count", len(response.Suggestions)))
	}
	return nil
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Post(strings.TrimRight(serverURL, "/")+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var response models.SearchResponse
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(b, &response) == nil && response.Message != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, response.Message)
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}
