package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/cds-vanguard/internal/db/queries"
)

const defaultListLimit = 20

type attemptStore interface {
	InsertExamAttempt(ctx context.Context, arg queries.InsertExamAttemptParams) (queries.ExamAttempt, error)
	ListExamAttemptsByUser(ctx context.Context, arg queries.ListExamAttemptsByUserParams) ([]queries.ExamAttempt, error)
}

// AttemptRepository persists finished exam sessions.
type AttemptRepository struct {
	store attemptStore
}

// NewAttemptRepository wraps the generated queries.
func NewAttemptRepository(store attemptStore) *AttemptRepository {
	return &AttemptRepository{store: store}
}

// Record stores a finished attempt. Recording the same session twice is a no-op.
func (r *AttemptRepository) Record(ctx context.Context, params queries.InsertExamAttemptParams) error {
	_, err := r.store.InsertExamAttempt(ctx, params)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

// ListByUser returns the most recent attempts first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]queries.ExamAttempt, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultListLimit
	}
	return r.store.ListExamAttemptsByUser(ctx, queries.ListExamAttemptsByUserParams{
		UserID: PGUUID(userID),
		Limit:  int32(limit),
	})
}

// PGUUID converts a uuid.UUID to its pgx representation.
func PGUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
