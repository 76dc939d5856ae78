// Package storage defines the persistence interface for question records.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/ajwiba/internal/models"
)

// ErrNotFound is returned when a question does not exist.
var ErrNotFound = errors.New("question not found")

// QuestionStore defines question persistence operations.
type QuestionStore interface {
	UpsertQuestion(ctx context.Context, q *models.Question) error
	GetQuestion(ctx context.Context, slug string) (*models.Question, error)
	DeleteQuestion(ctx context.Context, slug string) error
	// ListQuestions returns every stored question ordered by slug.
	ListQuestions(ctx context.Context) ([]*models.Question, error)

	CountQuestions(ctx context.Context) (int64, error)

	Close() error
}
