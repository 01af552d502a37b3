// Package loader moves parsed source files into the warehouse. The
// TableLoader handles one table end to end; the Pipeline drives the
// configured set of tables through it sequentially.
package loader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/dsload/internal/plan"
	"github.com/vvka-141/dsload/pkg/dsload"
)

// FileReader parses one delimited source file into memory.
// *reader.Reader satisfies it.
type FileReader interface {
	Read(path string) (*dsload.ParsedTable, error)
}

// Normalizer cleans a parsed table per its spec's profile.
// *normalize.Normalizer satisfies it.
type Normalizer interface {
	Normalize(spec dsload.TableSpec, table dsload.ParsedTable) dsload.ParsedTable
}

// RunRecorder maintains the audit trail for load attempts.
// *audit.Recorder satisfies it.
type RunRecorder interface {
	Begin(ctx context.Context, tableName string) (dsload.RunRecord, error)
	Complete(ctx context.Context, rec dsload.RunRecord, rows int) (dsload.RunRecord, error)
	Fail(ctx context.Context, rec dsload.RunRecord, rows int, cause error) (dsload.RunRecord, error)
}

// DB is the slice of the pool the loader needs. *pgxpool.Pool satisfies
// it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TableLoader loads a single table: parse, normalize, plan, then insert
// inside one transaction. Replace-mode tables are truncated with a
// separate statement before the insert transaction opens, so the
// truncation survives an insert failure the way the warehouse expects.
type TableLoader struct {
	reader     FileReader
	normalizer Normalizer
	recorder   RunRecorder
	db         DB
	logger     dsload.Logger
	batchSize  int
}

// NewTableLoader creates a TableLoader. Panics if any dependency is nil.
// batchSize falls back to DefaultBatchSize when non-positive.
func NewTableLoader(r FileReader, n Normalizer, rec RunRecorder, db DB, logger dsload.Logger, batchSize int) *TableLoader {
	if r == nil {
		panic("loader: reader cannot be nil")
	}
	if n == nil {
		panic("loader: normalizer cannot be nil")
	}
	if rec == nil {
		panic("loader: recorder cannot be nil")
	}
	if db == nil {
		panic("loader: db cannot be nil")
	}
	if logger == nil {
		panic("loader: logger cannot be nil")
	}
	if batchSize <= 0 {
		batchSize = dsload.DefaultBatchSize
	}
	return &TableLoader{
		reader:     r,
		normalizer: n,
		recorder:   rec,
		db:         db,
		logger:     logger,
		batchSize:  batchSize,
	}
}

// Load runs one table from source file to committed rows and returns the
// finalized audit record. Failures are captured in the record rather
// than returned; the caller decides whether a failed table stops the
// run.
func (l *TableLoader) Load(ctx context.Context, sourceDir string, spec dsload.TableSpec) dsload.RunRecord {
	rec, err := l.recorder.Begin(ctx, spec.Name)
	if err != nil {
		l.logger.Error("could not open audit record for %s: %v", spec.Name, err)
		return dsload.RunRecord{
			TableName:    spec.Name,
			Status:       dsload.StatusFailed,
			ErrorMessage: err.Error(),
		}
	}

	rows, err := l.load(ctx, sourceDir, spec)
	if err != nil {
		l.logger.Error("loading %s failed: %v", spec.Name, err)
		final, auditErr := l.recorder.Fail(ctx, rec, rows, err)
		if auditErr != nil {
			l.logger.Error("could not finalize audit record for %s: %v", spec.Name, auditErr)
		}
		return final
	}

	final, auditErr := l.recorder.Complete(ctx, rec, rows)
	if auditErr != nil {
		l.logger.Error("could not finalize audit record for %s: %v", spec.Name, auditErr)
	}
	l.logger.Info("loaded %d rows into %s", rows, spec.Name)
	return final
}

// load performs the data movement and returns the number of rows
// committed. On any error the count is zero: the insert transaction has
// rolled back and nothing from this attempt is visible.
func (l *TableLoader) load(ctx context.Context, sourceDir string, spec dsload.TableSpec) (int, error) {
	table, err := l.reader.Read(filepath.Join(sourceDir, spec.File))
	if err != nil {
		return 0, err
	}
	l.logger.Verbose("parsed %s: %d rows, %d columns, encoding %s",
		spec.File, len(table.Rows), len(table.Columns), table.Encoding)

	cleaned := l.normalizer.Normalize(spec, *table)

	stmt, err := plan.Build(spec, cleaned.Columns)
	if err != nil {
		return 0, err
	}

	if spec.Replace {
		if _, err := l.db.Exec(ctx, plan.Truncate(spec)); err != nil {
			return 0, fmt.Errorf("truncating %s: %w", spec.Name, err)
		}
		l.logger.Verbose("truncated %s before load", spec.Name)
	}

	tx, err := l.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("opening transaction for %s: %w", spec.Name, err)
	}
	defer tx.Rollback(ctx)

	for offset := 0; offset < len(cleaned.Rows); offset += l.batchSize {
		end := offset + l.batchSize
		if end > len(cleaned.Rows) {
			end = len(cleaned.Rows)
		}
		if err := l.sendBatch(ctx, tx, stmt, cleaned.Rows[offset:end]); err != nil {
			return 0, fmt.Errorf("inserting rows %d-%d into %s: %w", offset, end-1, spec.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing %s: %w", spec.Name, err)
	}
	return len(cleaned.Rows), nil
}

func (l *TableLoader) sendBatch(ctx context.Context, tx pgx.Tx, stmt dsload.PlannedStatement, rows [][]any) error {
	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(stmt.SQL, row...)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return results.Close()
}
