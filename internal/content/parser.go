// Package content reads question records from a directory of Markdown files with YAML front matter.
package content

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/ajwiba/internal/models"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	meta "github.com/yuin/goldmark-meta"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Parser turns one Markdown document into a question record.
type Parser struct {
	md goldmark.Markdown
}

// NewParser creates a parser with front matter support.
func NewParser() *Parser {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			meta.Meta,
		),
	)
	return &Parser{md: md}
}

// Parse extracts the question fields from front matter and the answer body as plain text.
// slug is used unless the front matter sets one. The second return value is true for drafts.
func (p *Parser) Parse(src []byte, slug string) (*models.Question, bool, error) {
	pctx := parser.NewContext()
	doc := p.md.Parser().Parse(text.NewReader(src), parser.WithContext(pctx))

	fm, err := meta.TryGet(pctx)
	if err != nil {
		return nil, false, fmt.Errorf("parse front matter: %w", err)
	}

	q := &models.Question{
		Slug:        slug,
		Question:    stringField(fm, "question", "title"),
		ShortAnswer: stringField(fm, "shortAnswer", "description"),
		Content:     plainText(doc, src),
		Tags:        tagsField(fm["tags"]),
		Difficulty:  models.Difficulty(strings.ToLower(stringField(fm, "difficulty"))),
		RatingAvg:   floatField(fm["ratingAvg"]),
		RatingCount: int(floatField(fm["ratingCount"])),
	}
	if s := stringField(fm, "slug"); s != "" {
		q.Slug = s
	}
	if raw, ok := fm["pubDate"]; ok {
		pub, err := parseDate(raw)
		if err != nil {
			return nil, false, fmt.Errorf("pubDate: %w", err)
		}
		q.PubDate = pub
	}
	draft, _ := fm["draft"].(bool)
	return q, draft, nil
}

// plainText renders the document body as text: inline markup is dropped,
// blocks are separated by newlines, and code blocks are kept verbatim.
func plainText(doc ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
				b.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				b.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

func stringField(fm map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if v, ok := fm[k].(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// tagsField accepts a YAML list or a comma-separated string.
func tagsField(raw interface{}) []string {
	switch v := raw.(type) {
	case []interface{}:
		tags := make([]string, 0, len(v))
		for _, item := range v {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	case string:
		var tags []string
		for _, part := range strings.Split(v, ",") {
			if s := strings.TrimSpace(part); s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		return nil
	}
}

func floatField(raw interface{}) float64 {
	switch v := raw.(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f
	default:
		return 0
	}
}

func parseDate(raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", s)
	case nil:
		return time.Time{}, nil
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %v", v)
	}
}
