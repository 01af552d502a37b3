// Package audit persists the per-table run trail. Every load attempt
// writes a started row before any data moves and finalizes that row when
// the attempt ends, regardless of outcome. Audit writes deliberately use
// their own statements outside the load transaction so a rolled-back
// load still leaves its trail behind.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/dsload/pkg/dsload"
)

// Execer is the slice of the pool the recorder needs. *pgxpool.Pool
// satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	insertRunSQL = `INSERT INTO ` + dsload.AuditTable +
		` (log_id, table_name, start_time, status) VALUES ($1, $2, $3, $4)`

	finalizeRunSQL = `UPDATE ` + dsload.AuditTable +
		` SET end_time = $1, status = $2, records_processed = $3, error_message = $4 WHERE log_id = $5`
)

// Recorder writes run records to the audit table.
type Recorder struct {
	db     Execer
	logger dsload.Logger
	now    func() time.Time
}

// NewRecorder creates a Recorder. Panics if db or logger is nil.
func NewRecorder(db Execer, logger dsload.Logger) *Recorder {
	if db == nil {
		panic("audit: db cannot be nil")
	}
	if logger == nil {
		panic("audit: logger cannot be nil")
	}
	return &Recorder{db: db, logger: logger, now: time.Now}
}

// Begin inserts a started row for tableName and returns the open record.
func (r *Recorder) Begin(ctx context.Context, tableName string) (dsload.RunRecord, error) {
	rec := dsload.RunRecord{
		ID:        uuid.New(),
		TableName: tableName,
		StartedAt: r.now().UTC(),
		Status:    dsload.StatusStarted,
	}

	_, err := r.db.Exec(ctx, insertRunSQL, rec.ID, rec.TableName, rec.StartedAt, string(rec.Status))
	if err != nil {
		return dsload.RunRecord{}, fmt.Errorf("recording run start for %s: %w", tableName, err)
	}

	r.logger.Verbose("audit: run %s started for %s", rec.ID, tableName)
	return rec, nil
}

// Complete finalizes rec as completed with the number of rows processed.
func (r *Recorder) Complete(ctx context.Context, rec dsload.RunRecord, rows int) (dsload.RunRecord, error) {
	return r.finalize(ctx, rec, dsload.StatusCompleted, rows, "")
}

// Fail finalizes rec as failed, preserving the cause for the trail.
// rows is the count processed before the failure, usually zero because
// the load transaction rolled back.
func (r *Recorder) Fail(ctx context.Context, rec dsload.RunRecord, rows int, cause error) (dsload.RunRecord, error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return r.finalize(ctx, rec, dsload.StatusFailed, rows, msg)
}

func (r *Recorder) finalize(ctx context.Context, rec dsload.RunRecord, status dsload.RunStatus, rows int, msg string) (dsload.RunRecord, error) {
	rec.EndedAt = r.now().UTC()
	rec.Status = status
	rec.RowsProcessed = rows
	rec.ErrorMessage = msg

	var errMsg any
	if msg != "" {
		errMsg = msg
	}

	_, err := r.db.Exec(ctx, finalizeRunSQL, rec.EndedAt, string(status), rows, errMsg, rec.ID)
	if err != nil {
		return rec, fmt.Errorf("finalizing run %s for %s: %w", rec.ID, rec.TableName, err)
	}

	r.logger.Verbose("audit: run %s for %s ended as %s (%d rows)", rec.ID, rec.TableName, status, rows)
	return rec, nil
}
