package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeDB struct {
	sql  string
	args []any
	row  pgx.Row
}

func (f *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not used")
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

func TestInsertExamAttempt(t *testing.T) {
	created := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	db := &fakeDB{row: fakeRow{scan: func(dest ...any) error {
		require.Len(t, dest, 2)
		*dest[0].(*pgtype.UUID) = pgtype.UUID{Bytes: [16]byte{15: 7}, Valid: true}
		*dest[1].(*time.Time) = created
		return nil
	}}}

	got, err := New(db).InsertExamAttempt(context.Background(), InsertExamAttemptParams{
		SessionID:     "s-1",
		TopicID:       "algebra",
		QuestionCount: 10,
		CorrectCount:  6,
		NumericScore:  5.5,
	})
	require.NoError(t, err)

	assert.Equal(t, insertExamAttempt, db.sql)
	assert.Len(t, db.args, 12)
	assert.Equal(t, "s-1", db.args[0])
	assert.True(t, got.AttemptID.Valid)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, int32(6), got.CorrectCount)
}

func TestInsertExamAttemptConflict(t *testing.T) {
	db := &fakeDB{row: fakeRow{scan: func(...any) error { return pgx.ErrNoRows }}}
	_, err := New(db).InsertExamAttempt(context.Background(), InsertExamAttemptParams{SessionID: "dup"})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}
