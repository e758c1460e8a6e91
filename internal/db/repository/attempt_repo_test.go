package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/gokatarajesh/cds-vanguard/internal/db/queries"
)

type mockAttemptStore struct {
	mock.Mock
}

func (m *mockAttemptStore) InsertExamAttempt(ctx context.Context, arg queries.InsertExamAttemptParams) (queries.ExamAttempt, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(queries.ExamAttempt), args.Error(1)
}

func (m *mockAttemptStore) ListExamAttemptsByUser(ctx context.Context, arg queries.ListExamAttemptsByUserParams) ([]queries.ExamAttempt, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).([]queries.ExamAttempt), args.Error(1)
}

func sampleParams() queries.InsertExamAttemptParams {
	now := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	return queries.InsertExamAttemptParams{
		SessionID:     "s-1",
		UserID:        uuidFromByte(1),
		TopicID:       "mod-gandhi",
		TopicName:     "Gandhian Era",
		Source:        "live",
		QuestionCount: 10,
		CorrectCount:  6,
		WrongCount:    2,
		SkippedCount:  2,
		NumericScore:  6 - 2.0/3.0,
		StartedAt:     now,
		FinishedAt:    now.Add(8 * time.Minute),
	}
}

func TestAttemptRepository_Record(t *testing.T) {
	store := new(mockAttemptStore)
	repo := NewAttemptRepository(store)

	params := sampleParams()
	store.On("InsertExamAttempt", mock.Anything, params).Return(queries.ExamAttempt{AttemptID: uuidFromByte(9)}, nil)

	assert.NoError(t, repo.Record(context.Background(), params))
	store.AssertExpectations(t)
}

func TestAttemptRepository_RecordDuplicateIsNoop(t *testing.T) {
	store := new(mockAttemptStore)
	repo := NewAttemptRepository(store)

	params := sampleParams()
	store.On("InsertExamAttempt", mock.Anything, params).Return(queries.ExamAttempt{}, pgx.ErrNoRows)

	assert.NoError(t, repo.Record(context.Background(), params))
}

func TestAttemptRepository_RecordError(t *testing.T) {
	store := new(mockAttemptStore)
	repo := NewAttemptRepository(store)

	params := sampleParams()
	store.On("InsertExamAttempt", mock.Anything, params).Return(queries.ExamAttempt{}, errors.New("db down"))

	assert.Error(t, repo.Record(context.Background(), params))
}

func TestAttemptRepository_ListByUserClampsLimit(t *testing.T) {
	store := new(mockAttemptStore)
	repo := NewAttemptRepository(store)

	userID := uuid.New()
	expect := []queries.ExamAttempt{{SessionID: "s-1"}}
	store.On("ListExamAttemptsByUser", mock.Anything, queries.ListExamAttemptsByUserParams{
		UserID: PGUUID(userID),
		Limit:  defaultListLimit,
	}).Return(expect, nil)

	got, err := repo.ListByUser(context.Background(), userID, 1000)
	assert.NoError(t, err)
	assert.Equal(t, expect, got)
	store.AssertExpectations(t)
}
