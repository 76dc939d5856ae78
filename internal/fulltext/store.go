// Package fulltext provides a search backend that delegates ranking to SQLite FTS5 (bm25).
// It uses the pure-Go SQLite driver through GORM.
package fulltext

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/hyperjump/ajwiba/internal/indexer"
	"github.com/hyperjump/ajwiba/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Name is the backend name used in configuration.
const Name = "sqlite"

// Config holds database configuration options.
type Config struct {
	Path        string
	Debug       bool
	MaxIdleConn int
	MaxOpenConn int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		MaxIdleConn: 1,
		MaxOpenConn: 1,
	}
}

// QuestionRow is one published index entry. The implicit rowid backs the FTS5 table.
type QuestionRow struct {
	Slug        string `gorm:"primaryKey;size:200"`
	Question    string `gorm:"type:text;not null"`
	ShortAnswer string `gorm:"type:text;not null"`
	Content     string `gorm:"type:text"`
	Tags        string `gorm:"type:text"` // space-joined, indexed by FTS5
	Difficulty  string `gorm:"size:16;index"`
	PubDate     *int64 `gorm:"index"` // unix seconds, NULL when undated
	RatingAvg   float64
	RatingCount int
	SearchTerms string `gorm:"type:text"`
}

func (QuestionRow) TableName() string { return "questions" }

// TagRow is one tag of one question, kept in display order.
type TagRow struct {
	Slug     string `gorm:"primaryKey;size:200"`
	Tag      string `gorm:"primaryKey;size:100;index"`
	Position int
}

func (TagRow) TableName() string { return "question_tags" }

// Store is a SQLite database holding the latest snapshot and its FTS5 index.
type Store struct {
	db     *gorm.DB
	path   string
	logger *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets a logger for publish events.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// New opens (or creates) the database at cfg.Path and prepares the schema.
func New(cfg Config, opts ...StoreOption) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}

	// DELETE journal mode: WAL has visibility issues with the pure-Go driver.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(DELETE)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logLevel),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if cfg.MaxIdleConn <= 0 {
		cfg.MaxIdleConn = 1
	}
	if cfg.MaxOpenConn <= 0 {
		cfg.MaxOpenConn = 1
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConn)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: cfg.Path, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.db.AutoMigrate(&QuestionRow{}, &TagRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.setupFTS(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("setup FTS: %w", err)
	}
	return s, nil
}

// setupFTS creates the FTS5 virtual table and the triggers that keep it in sync.
func (s *Store) setupFTS() error {
	ftsSQL := `
		CREATE VIRTUAL TABLE IF NOT EXISTS questions_fts USING fts5(
			question,
			short_answer,
			content,
			tags,
			content='questions',
			content_rowid='rowid',
			tokenize='unicode61 remove_diacritics 2'
		);
	`
	if err := s.db.Exec(ftsSQL).Error; err != nil {
		return fmt.Errorf("create FTS table: %w", err)
	}

	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS questions_ai AFTER INSERT ON questions BEGIN
			INSERT INTO questions_fts(rowid, question, short_answer, content, tags)
			VALUES (NEW.rowid, NEW.question, NEW.short_answer, NEW.content, NEW.tags);
		END;`,

		`CREATE TRIGGER IF NOT EXISTS questions_ad AFTER DELETE ON questions BEGIN
			INSERT INTO questions_fts(questions_fts, rowid, question, short_answer, content, tags)
			VALUES ('delete', OLD.rowid, OLD.question, OLD.short_answer, OLD.content, OLD.tags);
		END;`,

		`CREATE TRIGGER IF NOT EXISTS questions_au AFTER UPDATE ON questions BEGIN
			INSERT INTO questions_fts(questions_fts, rowid, question, short_answer, content, tags)
			VALUES ('delete', OLD.rowid, OLD.question, OLD.short_answer, OLD.content, OLD.tags);
			INSERT INTO questions_fts(rowid, question, short_answer, content, tags)
			VALUES (NEW.rowid, NEW.question, NEW.short_answer, NEW.content, NEW.tags);
		END;`,
	}
	for _, trigger := range triggers {
		if err := s.db.Exec(trigger).Error; err != nil {
			return fmt.Errorf("create trigger: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Name implements indexer.Publisher and search.Backend.
func (s *Store) Name() string { return Name }

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Publish replaces the stored index with snap in a single transaction. Readers see
// either the previous generation or the new one, never a mix.
func (s *Store) Publish(ctx context.Context, snap *indexer.Snapshot) error {
	rows := make([]*QuestionRow, 0, snap.Len())
	var tags []*TagRow
	for _, e := range snap.Entries {
		rows = append(rows, toRow(e))
		for i, t := range e.Tags {
			tags = append(tags, &TagRow{Slug: e.Slug, Tag: t, Position: i})
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM question_tags").Error; err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		if err := tx.Exec("DELETE FROM questions").Error; err != nil {
			return fmt.Errorf("clear questions: %w", err)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 100).Error; err != nil {
				return fmt.Errorf("insert questions: %w", err)
			}
		}
		if len(tags) > 0 {
			if err := tx.CreateInBatches(tags, 500).Error; err != nil {
				return fmt.Errorf("insert tags: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("fulltext index published",
		zap.String("snapshot", snap.ID),
		zap.Int("entries", len(rows)))
	return nil
}

// Count returns the number of indexed questions.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&QuestionRow{}).Count(&count).Error
	return int(count), err
}

func toRow(e *models.IndexEntry) *QuestionRow {
	row := &QuestionRow{
		Slug:        e.Slug,
		Question:    e.Question,
		ShortAnswer: e.ShortAnswer,
		Content:     e.Content,
		Tags:        strings.Join(e.Tags, " "),
		Difficulty:  string(e.Difficulty),
		RatingAvg:   e.RatingAvg,
		RatingCount: e.RatingCount,
		SearchTerms: strings.Join(e.SearchTerms, " "),
	}
	if !e.PubDate.IsZero() {
		ts := e.PubDate.Unix()
		row.PubDate = &ts
	}
	return row
}

func (r *QuestionRow) toEntry(tags []string) *models.IndexEntry {
	e := &models.IndexEntry{
		Slug:        r.Slug,
		Question:    r.Question,
		ShortAnswer: r.ShortAnswer,
		Content:     r.Content,
		Tags:        tags,
		Difficulty:  models.Difficulty(r.Difficulty),
		RatingAvg:   r.RatingAvg,
		RatingCount: r.RatingCount,
		SearchTerms: strings.Fields(r.SearchTerms),
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	if r.PubDate != nil {
		e.PubDate = time.Unix(*r.PubDate, 0).UTC()
	}
	return e
}
