package queries

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// ExamAttempt is one row of exam_attempts.
type ExamAttempt struct {
	AttemptID     pgtype.UUID `json:"attempt_id"`
	SessionID     string      `json:"session_id"`
	UserID        pgtype.UUID `json:"user_id"`
	TopicID       string      `json:"topic_id"`
	TopicName     string      `json:"topic_name"`
	Source        string      `json:"source"`
	QuestionCount int32       `json:"question_count"`
	CorrectCount  int32       `json:"correct_count"`
	WrongCount    int32       `json:"wrong_count"`
	SkippedCount  int32       `json:"skipped_count"`
	NumericScore  float64     `json:"numeric_score"`
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    time.Time   `json:"finished_at"`
	CreatedAt     time.Time   `json:"created_at"`
}

const insertExamAttempt = `
INSERT INTO exam_attempts (
    session_id, user_id, topic_id, topic_name, source,
    question_count, correct_count, wrong_count, skipped_count, numeric_score,
    started_at, finished_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (session_id) DO NOTHING
RETURNING attempt_id, created_at
`

type InsertExamAttemptParams struct {
	SessionID     string
	UserID        pgtype.UUID
	TopicID       string
	TopicName     string
	Source        string
	QuestionCount int32
	CorrectCount  int32
	WrongCount    int32
	SkippedCount  int32
	NumericScore  float64
	StartedAt     time.Time
	FinishedAt    time.Time
}

func (q *Queries) InsertExamAttempt(ctx context.Context, arg InsertExamAttemptParams) (ExamAttempt, error) {
	row := q.db.QueryRow(ctx, insertExamAttempt,
		arg.SessionID,
		arg.UserID,
		arg.TopicID,
		arg.TopicName,
		arg.Source,
		arg.QuestionCount,
		arg.CorrectCount,
		arg.WrongCount,
		arg.SkippedCount,
		arg.NumericScore,
		arg.StartedAt,
		arg.FinishedAt,
	)
	i := ExamAttempt{
		SessionID:     arg.SessionID,
		UserID:        arg.UserID,
		TopicID:       arg.TopicID,
		TopicName:     arg.TopicName,
		Source:        arg.Source,
		QuestionCount: arg.QuestionCount,
		CorrectCount:  arg.CorrectCount,
		WrongCount:    arg.WrongCount,
		SkippedCount:  arg.SkippedCount,
		NumericScore:  arg.NumericScore,
		StartedAt:     arg.StartedAt,
		FinishedAt:    arg.FinishedAt,
	}
	err := row.Scan(&i.AttemptID, &i.CreatedAt)
	return i, err
}

const listExamAttemptsByUser = `
SELECT attempt_id, session_id, user_id, topic_id, topic_name, source,
       question_count, correct_count, wrong_count, skipped_count, numeric_score,
       started_at, finished_at, created_at
FROM exam_attempts
WHERE user_id = $1
ORDER BY finished_at DESC
LIMIT $2
`

type ListExamAttemptsByUserParams struct {
	UserID pgtype.UUID
	Limit  int32
}

func (q *Queries) ListExamAttemptsByUser(ctx context.Context, arg ListExamAttemptsByUserParams) ([]ExamAttempt, error) {
	rows, err := q.db.Query(ctx, listExamAttemptsByUser, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ExamAttempt
	for rows.Next() {
		var i ExamAttempt
		if err := rows.Scan(
			&i.AttemptID,
			&i.SessionID,
			&i.UserID,
			&i.TopicID,
			&i.TopicName,
			&i.Source,
			&i.QuestionCount,
			&i.CorrectCount,
			&i.WrongCount,
			&i.SkippedCount,
			&i.NumericScore,
			&i.StartedAt,
			&i.FinishedAt,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
