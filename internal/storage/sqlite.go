package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/ajwiba/internal/models"
)

// SQLiteStorage implements QuestionStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS questions (
		slug TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		short_answer TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		difficulty TEXT NOT NULL DEFAULT '',
		pub_date TIMESTAMP,
		rating_avg REAL NOT NULL DEFAULT 0,
		rating_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_questions_pub_date ON questions(pub_date);
	`
	_, err := db.Exec(schema)
	return err
}

const questionColumns = `slug, question, short_answer, content, tags, difficulty, pub_date,
	rating_avg, rating_count, created_at, updated_at`

// UpsertQuestion inserts q, or replaces the stored question with the same slug.
// The original creation time is preserved on update.
func (s *SQLiteStorage) UpsertQuestion(ctx context.Context, q *models.Question) error {
	tags := q.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now().UTC()
	if q.CreatedAt.IsZero() {
		q.CreatedAt = now
	}
	q.UpdatedAt = now

	var pubDate sql.NullTime
	if !q.PubDate.IsZero() {
		pubDate = sql.NullTime{Time: q.PubDate.UTC(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO questions (`+questionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET
			question = excluded.question,
			short_answer = excluded.short_answer,
			content = excluded.content,
			tags = excluded.tags,
			difficulty = excluded.difficulty,
			pub_date = excluded.pub_date,
			rating_avg = excluded.rating_avg,
			rating_count = excluded.rating_count,
			updated_at = excluded.updated_at`,
		q.Slug, q.Question, q.ShortAnswer, q.Content, string(tagsJSON), string(q.Difficulty), pubDate,
		q.RatingAvg, q.RatingCount, q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert question %s: %w", q.Slug, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*models.Question, error) {
	var q models.Question
	var tagsJSON, difficulty string
	var pubDate sql.NullTime
	if err := row.Scan(&q.Slug, &q.Question, &q.ShortAnswer, &q.Content, &tagsJSON, &difficulty, &pubDate,
		&q.RatingAvg, &q.RatingCount, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &q.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags of %s: %w", q.Slug, err)
		}
	}
	q.Difficulty = models.Difficulty(difficulty)
	if pubDate.Valid {
		q.PubDate = pubDate.Time
	}
	return &q, nil
}

// GetQuestion returns a question by slug.
func (s *SQLiteStorage) GetQuestion(ctx context.Context, slug string) (*models.Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE slug = ?`, slug))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// DeleteQuestion removes a question by slug.
func (s *SQLiteStorage) DeleteQuestion(ctx context.Context, slug string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM questions WHERE slug = ?`, slug)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	return nil
}

// ListQuestions returns all questions ordered by slug.
func (s *SQLiteStorage) ListQuestions(ctx context.Context) ([]*models.Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM questions ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []*models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CountQuestions returns the number of stored questions.
func (s *SQLiteStorage) CountQuestions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
