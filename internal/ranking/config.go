package ranking

// RankingConfig holds all configuration for the relevance scorer.
type RankingConfig struct {
	// Base weight of the field that triggered the match
	QuestionWeight float64 `yaml:"question_weight"` // default: 100
	AnswerWeight   float64 `yaml:"answer_weight"`   // default: 80
	TagWeight      float64 `yaml:"tag_weight"`      // default: 60
	ContentWeight  float64 `yaml:"content_weight"`  // default: 40

	// Token-only content matches score ContentWeight * TokenMatchFactor
	TokenMatchFactor float64 `yaml:"token_match_factor"` // default: 0.7

	// Bonuses. Zero means "use the default"; set a bonus negative to turn it off.
	ExactMatchBonus     float64 `yaml:"exact_match_bonus"`     // default: 50
	WordBoundaryBonus   float64 `yaml:"word_boundary_bonus"`   // default: 30
	ShortQuestionBonus  float64 `yaml:"short_question_bonus"`  // default: 10
	ShortQuestionLength int     `yaml:"short_question_length"` // default: 50 (characters)

	// Recency boost against pubDate. A negative bonus turns that tier off.
	RecentBonus float64 `yaml:"recent_bonus"` // default: 20
	RecentDays  int     `yaml:"recent_days"`  // default: 30
	FreshBonus  float64 `yaml:"fresh_bonus"`  // default: 10
	FreshDays   int     `yaml:"fresh_days"`   // default: 90
}

// DefaultRankingConfig returns the default ranking configuration.
func DefaultRankingConfig() *RankingConfig {
	return &RankingConfig{
		QuestionWeight: 100,
		AnswerWeight:   80,
		TagWeight:      60,
		ContentWeight:  40,

		TokenMatchFactor: 0.7,

		ExactMatchBonus:     50,
		WordBoundaryBonus:   30,
		ShortQuestionBonus:  10,
		ShortQuestionLength: 50,

		RecentBonus: 20,
		RecentDays:  30,
		FreshBonus:  10,
		FreshDays:   90,
	}
}

// ApplyDefaults fills in zero values with defaults. Negative bonuses are kept so that
// the scorer treats them as disabled.
func (c *RankingConfig) ApplyDefaults() {
	defaults := DefaultRankingConfig()

	if c.QuestionWeight == 0 {
		c.QuestionWeight = defaults.QuestionWeight
	}
	if c.AnswerWeight == 0 {
		c.AnswerWeight = defaults.AnswerWeight
	}
	if c.TagWeight == 0 {
		c.TagWeight = defaults.TagWeight
	}
	if c.ContentWeight == 0 {
		c.ContentWeight = defaults.ContentWeight
	}
	if c.TokenMatchFactor == 0 {
		c.TokenMatchFactor = defaults.TokenMatchFactor
	}

	// Bonuses
	if c.ExactMatchBonus == 0 {
		c.ExactMatchBonus = defaults.ExactMatchBonus
	}
	if c.WordBoundaryBonus == 0 {
		c.WordBoundaryBonus = defaults.WordBoundaryBonus
	}
	if c.ShortQuestionBonus == 0 {
		c.ShortQuestionBonus = defaults.ShortQuestionBonus
	}
	if c.ShortQuestionLength == 0 {
		c.ShortQuestionLength = defaults.ShortQuestionLength
	}

	// Recency
	if c.RecentBonus == 0 {
		c.RecentBonus = defaults.RecentBonus
	}
	if c.RecentDays == 0 {
		c.RecentDays = defaults.RecentDays
	}
	if c.FreshBonus == 0 {
		c.FreshBonus = defaults.FreshBonus
	}
	if c.FreshDays == 0 {
		c.FreshDays = defaults.FreshDays
	}
}
