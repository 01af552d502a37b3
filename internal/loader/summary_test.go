package loader

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vvka-141/dsload/pkg/dsload"
)

func TestSummary_ListsEveryTable(t *testing.T) {
	start := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	records := []dsload.RunRecord{
		{TableName: "ds.ft_balance_f", Status: dsload.StatusCompleted, RowsProcessed: 114, StartedAt: start, EndedAt: start.Add(250 * time.Millisecond)},
		{TableName: "ds.ft_posting_f", Status: dsload.StatusFailed, ErrorMessage: "truncate denied", StartedAt: start, EndedAt: start.Add(time.Millisecond)},
	}

	out := Summary(records)

	assert.Contains(t, out, "ds.ft_balance_f")
	assert.Contains(t, out, "114 rows")
	assert.Contains(t, out, "ds.ft_posting_f")
	assert.Contains(t, out, "truncate denied")
	assert.Contains(t, out, "2 tables, 114 rows loaded")
	assert.Contains(t, out, "1 failed")
}

func TestSummary_NoFailuresOmitsFailedCount(t *testing.T) {
	records := []dsload.RunRecord{
		{TableName: "ds.md_currency_d", Status: dsload.StatusCompleted, RowsProcessed: 42},
	}

	out := Summary(records)

	assert.Contains(t, out, "1 tables, 42 rows loaded")
	assert.NotContains(t, out, "failed")
}
