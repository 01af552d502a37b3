package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/dsload/internal/logging"
	"github.com/vvka-141/dsload/pkg/dsload"
)

type execCall struct {
	sql  string
	args []any
}

type mockExecer struct {
	calls []execCall
	err   error
}

func (m *mockExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.calls = append(m.calls, execCall{sql: sql, args: args})
	return pgconn.CommandTag{}, m.err
}

func newTestRecorder(db Execer) *Recorder {
	r := NewRecorder(db, logging.NewNullLogger())
	r.now = func() time.Time {
		return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	}
	return r
}

func TestNewRecorder_PanicsOnNilDependencies(t *testing.T) {
	assert.Panics(t, func() { NewRecorder(nil, logging.NewNullLogger()) })
	assert.Panics(t, func() { NewRecorder(&mockExecer{}, nil) })
}

func TestBegin_InsertsStartedRow(t *testing.T) {
	db := &mockExecer{}

	rec, err := newTestRecorder(db).Begin(context.Background(), "ds.ft_balance_f")

	require.NoError(t, err)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", rec.ID.String())
	assert.Equal(t, "ds.ft_balance_f", rec.TableName)
	assert.Equal(t, dsload.StatusStarted, rec.Status)
	assert.True(t, rec.EndedAt.IsZero())

	require.Len(t, db.calls, 1)
	assert.Contains(t, db.calls[0].sql, "INSERT INTO logs.etl_logs")
	assert.Equal(t, "ds.ft_balance_f", db.calls[0].args[1])
	assert.Equal(t, "started", db.calls[0].args[3])
}

func TestBegin_PropagatesExecError(t *testing.T) {
	db := &mockExecer{err: errors.New("connection reset")}

	_, err := newTestRecorder(db).Begin(context.Background(), "ds.md_currency_d")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ds.md_currency_d")
}

func TestComplete_FinalizesRecord(t *testing.T) {
	db := &mockExecer{}
	r := newTestRecorder(db)

	rec, err := r.Begin(context.Background(), "ds.ft_posting_f")
	require.NoError(t, err)

	final, err := r.Complete(context.Background(), rec, 1000)

	require.NoError(t, err)
	assert.Equal(t, dsload.StatusCompleted, final.Status)
	assert.Equal(t, 1000, final.RowsProcessed)
	assert.Empty(t, final.ErrorMessage)
	assert.False(t, final.EndedAt.IsZero())

	require.Len(t, db.calls, 2)
	update := db.calls[1]
	assert.Contains(t, update.sql, "UPDATE logs.etl_logs")
	assert.Equal(t, "completed", update.args[1])
	assert.Equal(t, 1000, update.args[2])
	assert.Nil(t, update.args[3])
	assert.Equal(t, rec.ID, update.args[4])
}

func TestFail_RecordsCause(t *testing.T) {
	db := &mockExecer{}
	r := newTestRecorder(db)

	rec, err := r.Begin(context.Background(), "ds.md_account_d")
	require.NoError(t, err)

	final, err := r.Fail(context.Background(), rec, 0, errors.New("duplicate key"))

	require.NoError(t, err)
	assert.Equal(t, dsload.StatusFailed, final.Status)
	assert.True(t, final.Failed())
	assert.Equal(t, "duplicate key", final.ErrorMessage)

	update := db.calls[1]
	assert.Equal(t, "failed", update.args[1])
	assert.Equal(t, "duplicate key", update.args[3])
}

func TestFail_NilCauseStoresNullMessage(t *testing.T) {
	db := &mockExecer{}
	r := newTestRecorder(db)

	rec, err := r.Begin(context.Background(), "ds.md_ledger_account_s")
	require.NoError(t, err)

	final, err := r.Fail(context.Background(), rec, 0, nil)

	require.NoError(t, err)
	assert.Empty(t, final.ErrorMessage)
	assert.Nil(t, db.calls[1].args[3])
}
