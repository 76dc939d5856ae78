package cli

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"strings"

	"github.com/hyperjump/ajwiba/internal/models"
	"github.com/hyperjump/ajwiba/internal/ranking"
	"github.com/hyperjump/ajwiba/internal/search"
	"github.com/hyperjump/ajwiba/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputCompact prints one result per line.
	OutputCompact SearchOutputFormat = "compact"
	// OutputJSON is the server's JSON response, for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// terminalMarks renders highlight markers for a terminal.
var terminalMarks = strings.NewReplacer(search.MarkOpen, "[", search.MarkClose, "]")

// plainText turns a highlighted HTML fragment into terminal text.
func plainText(fragment string) string {
	return html.UnescapeString(terminalMarks.Replace(fragment))
}

// WriteSearchResults writes search results to w in the given format.
// Unknown formats are written as text.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		for _, s := range response.Suggestions {
			fmt.Fprintf(w, "%s\t%.2f\t%s\n", s.Slug, s.RelevanceScore, TruncateWords(plainText(s.Question), 12))
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms\n", response.Total, response.QueryTime)
	if response.Message != "" {
		fmt.Fprintf(w, "%s\n", response.Message)
	}
	fmt.Fprintln(w)
	for i, s := range response.Suggestions {
		writeOneResult(w, i+1, s)
	}
	if response.HasMore {
		fmt.Fprintln(w, "More results available; use --offset to page.")
	}
}

func writeOneResult(w io.Writer, rank int, s *models.Suggestion) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.2f", rank, s.RelevanceScore)
	if s.MatchType != "" {
		fmt.Fprintf(w, " | Match: %s", s.MatchType)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Slug: %s\n", s.Slug)
	fmt.Fprintf(w, "Q: %s\n", plainText(s.Question))
	fmt.Fprintf(w, "A: %s\n", utils.Truncate(plainText(s.ShortAnswer), 200))

	var meta []string
	if len(s.Tags) > 0 {
		meta = append(meta, "tags: "+strings.Join(s.Tags, ", "))
	}
	if s.Difficulty != "" {
		meta = append(meta, "difficulty: "+string(s.Difficulty))
	}
	if s.PubDate != nil {
		meta = append(meta, "published: "+s.PubDate.Format("2006-01-02"))
	}
	if len(meta) > 0 {
		fmt.Fprintf(w, "%s\n", strings.Join(meta, " | "))
	}
	fmt.Fprintln(w)
}

// WriteBreakdown prints how the heuristic scorer reached the score of slug.
func WriteBreakdown(w io.Writer, slug string, b *ranking.ScoreBreakdown) {
	if b == nil {
		fmt.Fprintf(w, "%s: no heuristic match\n", slug)
		return
	}
	fmt.Fprintf(w, "%s: %.2f = %s %.2f + exact %.2f + word %.2f + short %.2f + recency %.2f\n",
		slug, b.Total(), b.Field, b.Base, b.Exact, b.WordBoundary, b.Short, b.Recency)
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
