package storage

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var runColumns = []string{"id", "query", "answer", "iterations", "validated", "last_error", "duration_ms", "created_at"}

func newMockHistory(t *testing.T) (*History, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewHistory(db), mock
}

func TestHistory_Migrate(t *testing.T) {
	h, mock := newMockHistory(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS runs").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, h.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_Record(t *testing.T) {
	h, mock := newMockHistory(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO runs")).
		WithArgs(sqlmock.AnyArg(), "NameError", "fixed", 2, true, "", int64(1500), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	run, err := h.Record(context.Background(), Run{
		Query: "NameError", Answer: "fixed", Iterations: 2, Validated: true, DurationMS: 1500,
	})
	require.NoError(t, err)
	_, perr := uuid.Parse(run.ID)
	assert.NoError(t, perr)
	assert.False(t, run.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_Get(t *testing.T) {
	h, mock := newMockHistory(t)
	id := uuid.NewString()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM runs WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(runColumns).AddRow(id, "q", "a", 3, false, "E999", int64(42), created))

	run, err := h.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, Run{ID: id, Query: "q", Answer: "a", Iterations: 3, LastError: "E999", DurationMS: 42, CreatedAt: created}, run)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_GetNotFound(t *testing.T) {
	h, mock := newMockHistory(t)
	id := uuid.NewString()
	mock.ExpectQuery(regexp.QuoteMeta("FROM runs WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(runColumns))

	_, err := h.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = h.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_List(t *testing.T) {
	h, mock := newMockHistory(t)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $1")).
		WithArgs(defaultListLimit).
		WillReturnRows(sqlmock.NewRows(runColumns).
			AddRow("b", "q2", "a2", 1, true, "", int64(10), now).
			AddRow("a", "q1", "a1", 3, false, "E9", int64(20), now.Add(-time.Minute)))

	runs, err := h.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "b", runs[0].ID)
	assert.False(t, runs[1].Validated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistory_ListEmpty(t *testing.T) {
	h, mock := newMockHistory(t)
	mock.ExpectQuery("SELECT").WithArgs(5).WillReturnRows(sqlmock.NewRows(runColumns))

	runs, err := h.List(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}
