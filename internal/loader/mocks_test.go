package loader

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/dsload/pkg/dsload"
)

type mockReader struct {
	table *dsload.ParsedTable
	err   error
	paths []string
}

func (m *mockReader) Read(path string) (*dsload.ParsedTable, error) {
	m.paths = append(m.paths, path)
	if m.err != nil {
		return nil, m.err
	}
	return m.table, nil
}

type passthroughNormalizer struct{}

func (passthroughNormalizer) Normalize(_ dsload.TableSpec, table dsload.ParsedTable) dsload.ParsedTable {
	return table
}

type recorderCall struct {
	kind  string
	table string
	rows  int
	cause error
}

type mockRecorder struct {
	calls    []recorderCall
	beginErr error
	finalErr error
}

func (m *mockRecorder) Begin(_ context.Context, tableName string) (dsload.RunRecord, error) {
	m.calls = append(m.calls, recorderCall{kind: "begin", table: tableName})
	if m.beginErr != nil {
		return dsload.RunRecord{}, m.beginErr
	}
	return dsload.RunRecord{
		ID:        uuid.New(),
		TableName: tableName,
		StartedAt: time.Now(),
		Status:    dsload.StatusStarted,
	}, nil
}

func (m *mockRecorder) Complete(_ context.Context, rec dsload.RunRecord, rows int) (dsload.RunRecord, error) {
	m.calls = append(m.calls, recorderCall{kind: "complete", table: rec.TableName, rows: rows})
	rec.Status = dsload.StatusCompleted
	rec.RowsProcessed = rows
	rec.EndedAt = time.Now()
	return rec, m.finalErr
}

func (m *mockRecorder) Fail(_ context.Context, rec dsload.RunRecord, rows int, cause error) (dsload.RunRecord, error) {
	m.calls = append(m.calls, recorderCall{kind: "fail", table: rec.TableName, rows: rows, cause: cause})
	rec.Status = dsload.StatusFailed
	rec.RowsProcessed = rows
	if cause != nil {
		rec.ErrorMessage = cause.Error()
	}
	rec.EndedAt = time.Now()
	return rec, m.finalErr
}

// mockBatchResults counts Exec calls and can fail at a chosen call
// index.
type mockBatchResults struct {
	pgx.BatchResults

	remaining int
	failAt    int
	execCount *int
	closed    bool
}

func (m *mockBatchResults) Exec() (pgconn.CommandTag, error) {
	*m.execCount++
	if m.failAt > 0 && *m.execCount == m.failAt {
		return pgconn.CommandTag{}, errors.New("insert rejected")
	}
	return pgconn.CommandTag{}, nil
}

func (m *mockBatchResults) Close() error {
	m.closed = true
	return nil
}

// mockTx embeds pgx.Tx for interface satisfaction; only the methods the
// loader touches are implemented.
type mockTx struct {
	pgx.Tx

	db         *mockDB
	committed  bool
	rolledBack bool
	commitErr  error
}

func (m *mockTx) SendBatch(_ context.Context, batch *pgx.Batch) pgx.BatchResults {
	m.db.batchSizes = append(m.db.batchSizes, batch.Len())
	return &mockBatchResults{
		remaining: batch.Len(),
		failAt:    m.db.execFailAt,
		execCount: &m.db.execCount,
	}
}

func (m *mockTx) Commit(_ context.Context) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(_ context.Context) error {
	if !m.committed {
		m.rolledBack = true
	}
	return nil
}

type mockDB struct {
	execSQL    []string
	batchSizes []int
	execCount  int

	execErr    error
	beginErr   error
	commitErr  error
	execFailAt int

	tx *mockTx
}

func (m *mockDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	m.execSQL = append(m.execSQL, sql)
	return pgconn.CommandTag{}, m.execErr
}

func (m *mockDB) Begin(_ context.Context) (pgx.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	m.tx = &mockTx{db: m, commitErr: m.commitErr}
	return m.tx, nil
}
