package normalize

import (
	"time"

	"github.com/vvka-141/dsload/pkg/dsload"
)

const (
	balanceDateColumn = "on_date"

	sourceDateLayout = "02.01.2006"
	isoDateLayout    = "2006-01-02"
)

// balanceStrategy rewrites the on_date column from the source's
// DD.MM.YYYY form to ISO 8601. Values that do not parse become nil so
// the database never sees a malformed date literal.
type balanceStrategy struct{}

func (balanceStrategy) Name() string { return dsload.ProfileBalance }

func (balanceStrategy) Apply(table *dsload.ParsedTable) {
	idx := columnIndex(table, balanceDateColumn)
	if idx < 0 {
		return
	}
	for _, row := range table.Rows {
		row[idx] = reformatDate(row[idx])
	}
}

func reformatDate(cell any) any {
	s, ok := cell.(string)
	if !ok {
		return cell
	}
	t, err := time.Parse(sourceDateLayout, s)
	if err != nil {
		return nil
	}
	return t.Format(isoDateLayout)
}
