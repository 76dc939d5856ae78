package ranking

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hyperjump/ajwiba/internal/models"
)

const day = 24 * time.Hour

// Scorer computes best-single-field relevance scores for index entries.
type Scorer struct {
	config *RankingConfig
	now    func() time.Time
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithClock sets the time source used for the recency boost.
func WithClock(now func() time.Time) ScorerOption {
	return func(s *Scorer) {
		s.now = now
	}
}

// NewScorer creates a new Scorer with the given configuration.
func NewScorer(config *RankingConfig, opts ...ScorerOption) *Scorer {
	if config == nil {
		config = DefaultRankingConfig()
	}
	config.ApplyDefaults()

	s := &Scorer{config: config, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the scorer configuration.
func (s *Scorer) Config() *RankingConfig {
	return s.config
}

// Score returns the best match of q against e. The second return value is false
// when no field contains the query.
func (s *Scorer) Score(q *Query, e *models.IndexEntry) (Match, bool) {
	b, tokenOnly, ok := s.breakdown(q, e)
	if !ok {
		return Match{}, false
	}
	return Match{Type: b.Field, Score: b.Total(), TokenOnly: tokenOnly}, true
}

// Breakdown returns the itemized score of q against e, or nil when e does not match.
func (s *Scorer) Breakdown(q *Query, e *models.IndexEntry) *ScoreBreakdown {
	b, _, ok := s.breakdown(q, e)
	if !ok {
		return nil
	}
	return b
}

func (s *Scorer) breakdown(q *Query, e *models.IndexEntry) (*ScoreBreakdown, bool, bool) {
	if q == nil || q.Text == "" || e == nil {
		return nil, false, false
	}

	// Fields are tried in priority order; the first hit carries the highest base weight.
	best := &ScoreBreakdown{}
	found := false
	tokenOnly := false
	consider := func(field models.MatchType, base float64, raw string) {
		score := base
		exact := 0.0
		if strings.Contains(strings.ToLower(raw), q.Text) {
			exact = bonus(s.config.ExactMatchBonus)
		}
		score += exact
		if !found || score > best.Base+best.Exact {
			best.Field, best.Base, best.Exact = field, base, exact
			found = true
		}
	}

	if strings.Contains(strings.ToLower(e.Question), q.Text) {
		consider(models.MatchQuestion, s.config.QuestionWeight, e.Question)
	}
	if strings.Contains(strings.ToLower(e.ShortAnswer), q.Text) {
		consider(models.MatchAnswer, s.config.AnswerWeight, e.ShortAnswer)
	}
	if tagContains(e.Tags, q.Text) {
		consider(models.MatchTag, s.config.TagWeight, strings.Join(e.Tags, " "))
	}
	if strings.Contains(strings.ToLower(e.Content), q.Text) {
		consider(models.MatchContent, s.config.ContentWeight, e.Content)
	} else if termContains(e.SearchTerms, q.Text) {
		consider(models.MatchContent, s.config.ContentWeight*s.config.TokenMatchFactor, e.Content)
		tokenOnly = best.Field == models.MatchContent
	}
	if !found {
		return nil, false, false
	}

	if q.AtWordBoundary(e.Question) {
		best.WordBoundary = bonus(s.config.WordBoundaryBonus)
	}
	if utf8.RuneCountInString(e.Question) < s.config.ShortQuestionLength {
		best.Short = bonus(s.config.ShortQuestionBonus)
	}
	best.Recency = s.RecencyBoost(e.PubDate)
	return best, tokenOnly, true
}

// bonus maps a disabled (negative) bonus to zero.
func bonus(v float64) float64 {
	return max(v, 0)
}

// RecencyBoost returns the additive boost for a record published at pub.
// A zero pub means the date is unknown and earns nothing.
func (s *Scorer) RecencyBoost(pub time.Time) float64 {
	if pub.IsZero() {
		return 0
	}
	age := s.now().Sub(pub)
	switch {
	case age < time.Duration(s.config.RecentDays)*day:
		return bonus(s.config.RecentBonus)
	case age < time.Duration(s.config.FreshDays)*day:
		return bonus(s.config.FreshBonus)
	default:
		return 0
	}
}

// DetectMatchType reports which field of e contains the query, using the same
// priority order as Score. Entries matched only by an engine's own tokenization
// report content.
func DetectMatchType(q *Query, e *models.IndexEntry) models.MatchType {
	if q == nil || q.Text == "" || e == nil {
		return models.MatchContent
	}
	switch {
	case strings.Contains(strings.ToLower(e.Question), q.Text):
		return models.MatchQuestion
	case strings.Contains(strings.ToLower(e.ShortAnswer), q.Text):
		return models.MatchAnswer
	case tagContains(e.Tags, q.Text):
		return models.MatchTag
	default:
		return models.MatchContent
	}
}

func tagContains(tags []string, text string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), text) {
			return true
		}
	}
	return false
}

func termContains(terms []string, text string) bool {
	for _, t := range terms {
		if strings.Contains(t, text) {
			return true
		}
	}
	return false
}
