// Package plan turns a table spec and a parsed column list into the
// parameterized insert statement the loader executes per row.
package plan

import (
	"fmt"
	"strings"

	"github.com/vvka-141/dsload/pkg/dsload"
)

// Build derives the insert statement for spec over the given columns.
//
// Tables with a primary key get an upsert: ON CONFLICT on the key
// columns with every non-key column updated from EXCLUDED. When every
// column is part of the key there is nothing to update and the conflict
// action degrades to DO NOTHING. Tables without a primary key get a
// plain insert.
func Build(spec dsload.TableSpec, columns []string) (dsload.PlannedStatement, error) {
	if len(columns) == 0 {
		return dsload.PlannedStatement{}, fmt.Errorf("table %s: no columns to plan", spec.Name)
	}

	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdentifier(col)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		quoteQualified(spec.Name),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "))

	if spec.HasPrimaryKey() {
		keys := make([]string, len(spec.PrimaryKey))
		for i, k := range spec.PrimaryKey {
			keys[i] = quoteIdentifier(k)
		}
		fmt.Fprintf(&b, " ON CONFLICT (%s)", strings.Join(keys, ", "))

		updates := updateAssignments(columns, spec.PrimaryKey)
		if len(updates) == 0 {
			b.WriteString(" DO NOTHING")
		} else {
			fmt.Fprintf(&b, " DO UPDATE SET %s", strings.Join(updates, ", "))
		}
	}

	return dsload.PlannedStatement{SQL: b.String(), Columns: columns}, nil
}

// Truncate returns the statement that empties spec's table before a
// replace-mode load.
func Truncate(spec dsload.TableSpec) string {
	return "TRUNCATE TABLE " + quoteQualified(spec.Name)
}

// updateAssignments returns one "col = EXCLUDED.col" clause per non-key
// column, in column order.
func updateAssignments(columns, primaryKey []string) []string {
	keys := make(map[string]struct{}, len(primaryKey))
	for _, k := range primaryKey {
		keys[k] = struct{}{}
	}

	var updates []string
	for _, col := range columns {
		if _, isKey := keys[col]; isKey {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s",
			quoteIdentifier(col), quoteIdentifier(col)))
	}
	return updates
}

// quoteQualified quotes a possibly schema-qualified name part by part,
// so "ds.ft_balance_f" becomes "ds"."ft_balance_f".
func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
