package loader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/dsload/internal/audit"
	"github.com/vvka-141/dsload/internal/loader"
	"github.com/vvka-141/dsload/internal/logging"
	"github.com/vvka-141/dsload/internal/normalize"
	"github.com/vvka-141/dsload/internal/reader"
	dstesting "github.com/vvka-141/dsload/internal/testing"
	"github.com/vvka-141/dsload/pkg/dsload"
)

const integrationSchema = `
CREATE SCHEMA IF NOT EXISTS ds;
CREATE SCHEMA IF NOT EXISTS logs;

CREATE TABLE IF NOT EXISTS logs.etl_logs (
	log_id            UUID PRIMARY KEY,
	table_name        TEXT NOT NULL,
	start_time        TIMESTAMPTZ NOT NULL,
	end_time          TIMESTAMPTZ,
	status            TEXT NOT NULL,
	records_processed INTEGER,
	error_message     TEXT
);

CREATE TABLE IF NOT EXISTS ds.ft_balance_f (
	on_date     DATE NOT NULL,
	account_rk  BIGINT NOT NULL,
	currency_rk BIGINT,
	balance_out NUMERIC,
	PRIMARY KEY (on_date, account_rk)
);

CREATE TABLE IF NOT EXISTS ds.ft_posting_f (
	oper_date         DATE,
	credit_account_rk BIGINT,
	debet_account_rk  BIGINT,
	credit_amount     NUMERIC,
	debet_amount      NUMERIC
);
`

func setupIntegration(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()

	connString := dstesting.RequireDatabase(t)
	pool := dstesting.GetTestPool(t, connString)

	_, err := pool.Exec(context.Background(), integrationSchema)
	require.NoError(t, err)

	_, err = pool.Exec(context.Background(), "TRUNCATE ds.ft_balance_f, ds.ft_posting_f, logs.etl_logs")
	require.NoError(t, err)

	return pool, t.TempDir()
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func newIntegrationPipeline(pool *pgxpool.Pool, dir string, cfg dsload.PipelineConfig) *loader.Pipeline {
	logger := logging.NewNullLogger()
	tl := loader.NewTableLoader(
		reader.New(logger),
		normalize.New(),
		audit.NewRecorder(pool, logger),
		pool,
		logger,
		cfg.BatchSize,
	)
	return loader.NewPipeline(tl, logger, cfg, dir)
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestPipeline_RerunUpsertsWithoutDuplicates(t *testing.T) {
	pool, dir := setupIntegration(t)

	writeFixture(t, dir, "ft_balance_f.csv",
		"ON_DATE;ACCOUNT_RK;CURRENCY_RK;BALANCE_OUT\n"+
			"31.01.2018;100;643;10.50\n"+
			"31.01.2018;200;643;99.00\n")

	cfg := dsload.PipelineConfig{
		Tables: []dsload.TableSpec{{
			Name:       "ds.ft_balance_f",
			File:       "ft_balance_f.csv",
			PrimaryKey: []string{"on_date", "account_rk"},
			Profile:    dsload.ProfileBalance,
		}},
	}

	records, err := newIntegrationPipeline(pool, dir, cfg).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, dsload.StatusCompleted, records[0].Status)
	assert.Equal(t, 2, records[0].RowsProcessed)
	assert.Equal(t, 2, countRows(t, pool, "ds.ft_balance_f"))

	// Same keys, changed balance. The rerun must update in place.
	writeFixture(t, dir, "ft_balance_f.csv",
		"ON_DATE;ACCOUNT_RK;CURRENCY_RK;BALANCE_OUT\n"+
			"31.01.2018;100;643;77.77\n"+
			"31.01.2018;200;643;99.00\n")

	_, err = newIntegrationPipeline(pool, dir, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, countRows(t, pool, "ds.ft_balance_f"))

	var balance string
	require.NoError(t, pool.QueryRow(context.Background(),
		"SELECT balance_out::text FROM ds.ft_balance_f WHERE account_rk = 100").Scan(&balance))
	assert.Equal(t, "77.77", balance)
}

func TestPipeline_ReplaceTableHoldsOnlyLatestFile(t *testing.T) {
	pool, dir := setupIntegration(t)

	writeFixture(t, dir, "ft_posting_f.csv",
		"OPER_DATE;CREDIT_ACCOUNT_RK;DEBET_ACCOUNT_RK;CREDIT_AMOUNT;DEBET_AMOUNT\n"+
			"09.01.2018;1;2;5.00;5.00\n"+
			"09.01.2018;3;4;6.00;6.00\n"+
			"09.01.2018;5;6;7.00;7.00\n")

	cfg := dsload.PipelineConfig{
		Tables: []dsload.TableSpec{{
			Name:    "ds.ft_posting_f",
			File:    "ft_posting_f.csv",
			Replace: true,
		}},
	}

	_, err := newIntegrationPipeline(pool, dir, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, countRows(t, pool, "ds.ft_posting_f"))

	writeFixture(t, dir, "ft_posting_f.csv",
		"OPER_DATE;CREDIT_ACCOUNT_RK;DEBET_ACCOUNT_RK;CREDIT_AMOUNT;DEBET_AMOUNT\n"+
			"10.01.2018;1;2;8.00;8.00\n")

	_, err = newIntegrationPipeline(pool, dir, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, pool, "ds.ft_posting_f"))
}

func TestPipeline_AuditTrailSurvivesFailure(t *testing.T) {
	pool, dir := setupIntegration(t)

	// balance_out is numeric; a text value makes the insert fail after
	// the audit row is already open.
	writeFixture(t, dir, "ft_balance_f.csv",
		"ON_DATE;ACCOUNT_RK;CURRENCY_RK;BALANCE_OUT\n"+
			"31.01.2018;100;643;not-a-number\n")
	writeFixture(t, dir, "ft_posting_f.csv",
		"OPER_DATE;CREDIT_ACCOUNT_RK;DEBET_ACCOUNT_RK;CREDIT_AMOUNT;DEBET_AMOUNT\n"+
			"09.01.2018;1;2;5.00;5.00\n")

	cfg := dsload.PipelineConfig{
		Tables: []dsload.TableSpec{
			{Name: "ds.ft_balance_f", File: "ft_balance_f.csv", PrimaryKey: []string{"on_date", "account_rk"}, Profile: dsload.ProfileBalance},
			{Name: "ds.ft_posting_f", File: "ft_posting_f.csv", Replace: true},
		},
	}

	records, err := newIntegrationPipeline(pool, dir, cfg).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.True(t, records[0].Failed())
	assert.NotEmpty(t, records[0].ErrorMessage)
	assert.Equal(t, dsload.StatusCompleted, records[1].Status)

	// Nothing from the failed attempt is visible.
	assert.Equal(t, 0, countRows(t, pool, "ds.ft_balance_f"))
	assert.Equal(t, 1, countRows(t, pool, "ds.ft_posting_f"))

	var status, errMsg string
	var rows int
	var endTime *time.Time
	require.NoError(t, pool.QueryRow(context.Background(),
		"SELECT status, records_processed, error_message, end_time FROM logs.etl_logs WHERE table_name = $1",
		"ds.ft_balance_f").Scan(&status, &rows, &errMsg, &endTime))
	assert.Equal(t, "failed", status)
	assert.Equal(t, 0, rows)
	assert.NotEmpty(t, errMsg)
	require.NotNil(t, endTime)

	require.NoError(t, pool.QueryRow(context.Background(),
		"SELECT status, records_processed FROM logs.etl_logs WHERE table_name = $1",
		"ds.ft_posting_f").Scan(&status, &rows))
	assert.Equal(t, "completed", status)
	assert.Equal(t, 1, rows)
}

func TestPipeline_BatchedLoadCommitsAllRows(t *testing.T) {
	pool, dir := setupIntegration(t)

	content := "OPER_DATE;CREDIT_ACCOUNT_RK;DEBET_ACCOUNT_RK;CREDIT_AMOUNT;DEBET_AMOUNT\n"
	for i := 0; i < 2500; i++ {
		content += "09.01.2018;1;2;5.00;5.00\n"
	}
	writeFixture(t, dir, "ft_posting_f.csv", content)

	cfg := dsload.PipelineConfig{
		Tables:    []dsload.TableSpec{{Name: "ds.ft_posting_f", File: "ft_posting_f.csv", Replace: true}},
		BatchSize: 1000,
	}

	records, err := newIntegrationPipeline(pool, dir, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2500, records[0].RowsProcessed)
	assert.Equal(t, 2500, countRows(t, pool, "ds.ft_posting_f"))
}
