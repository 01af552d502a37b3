package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/dsload/pkg/dsload"
)

func TestBuild_PlainInsertWithoutPrimaryKey(t *testing.T) {
	spec := dsload.TableSpec{Name: "ds.ft_posting_f"}

	stmt, err := Build(spec, []string{"oper_date", "credit_amount"})

	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "ds"."ft_posting_f" ("oper_date", "credit_amount") VALUES ($1, $2)`,
		stmt.SQL)
	assert.Equal(t, []string{"oper_date", "credit_amount"}, stmt.Columns)
}

func TestBuild_UpsertUpdatesNonKeyColumns(t *testing.T) {
	spec := dsload.TableSpec{
		Name:       "ds.ft_balance_f",
		PrimaryKey: []string{"on_date", "account_rk"},
	}

	stmt, err := Build(spec, []string{"on_date", "account_rk", "currency_rk", "balance_out"})

	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "ds"."ft_balance_f" ("on_date", "account_rk", "currency_rk", "balance_out") `+
			`VALUES ($1, $2, $3, $4) `+
			`ON CONFLICT ("on_date", "account_rk") `+
			`DO UPDATE SET "currency_rk" = EXCLUDED."currency_rk", "balance_out" = EXCLUDED."balance_out"`,
		stmt.SQL)
}

func TestBuild_AllKeyColumnsDegradesToDoNothing(t *testing.T) {
	spec := dsload.TableSpec{
		Name:       "ds.md_exchange_rate_d",
		PrimaryKey: []string{"data_actual_date", "currency_rk_by", "currency_rk"},
	}

	stmt, err := Build(spec, []string{"data_actual_date", "currency_rk_by", "currency_rk"})

	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `ON CONFLICT ("data_actual_date", "currency_rk_by", "currency_rk") DO NOTHING`)
	assert.NotContains(t, stmt.SQL, "DO UPDATE")
}

func TestBuild_QuotesEmbeddedQuotes(t *testing.T) {
	spec := dsload.TableSpec{Name: `ds.odd"name`}

	stmt, err := Build(spec, []string{`col"umn`})

	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `"ds"."odd""name"`)
	assert.Contains(t, stmt.SQL, `"col""umn"`)
}

func TestBuild_UnqualifiedTableName(t *testing.T) {
	spec := dsload.TableSpec{Name: "staging_rows"}

	stmt, err := Build(spec, []string{"id"})

	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "staging_rows" ("id") VALUES ($1)`, stmt.SQL)
}

func TestTruncate_QuotesQualifiedName(t *testing.T) {
	got := Truncate(dsload.TableSpec{Name: "ds.ft_posting_f"})

	assert.Equal(t, `TRUNCATE TABLE "ds"."ft_posting_f"`, got)
}

func TestBuild_NoColumnsFails(t *testing.T) {
	_, err := Build(dsload.TableSpec{Name: "ds.empty"}, nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ds.empty")
}
