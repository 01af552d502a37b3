// Package normalize cleans parsed source tables before they are planned
// and loaded. Every table goes through the base pass (header folding and
// empty-cell nulling); tables whose spec names a profile additionally go
// through that profile's strategy.
package normalize

import (
	"strings"

	"github.com/vvka-141/dsload/pkg/dsload"
)

// Strategy applies profile-specific cell rewrites to a table that has
// already been through the base pass. Implementations mutate the copy
// they are handed, never the caller's table.
type Strategy interface {
	// Name returns the profile identifier the strategy is registered
	// under.
	Name() string

	// Apply rewrites cells in place.
	Apply(table *dsload.ParsedTable)
}

// Normalizer owns the profile registry and performs the base pass.
type Normalizer struct {
	strategies map[string]Strategy
}

// New creates a Normalizer with the built-in profiles registered.
func New() *Normalizer {
	n := &Normalizer{strategies: make(map[string]Strategy)}
	n.register(&balanceStrategy{})
	n.register(&currencyStrategy{})
	return n
}

func (n *Normalizer) register(s Strategy) {
	n.strategies[s.Name()] = s
}

// Normalize returns a cleaned copy of table. Header names are lowercased
// and trimmed, empty cells become nil, and the spec's profile strategy,
// if any, is applied on top. The input table is not modified.
func (n *Normalizer) Normalize(spec dsload.TableSpec, table dsload.ParsedTable) dsload.ParsedTable {
	out := dsload.ParsedTable{
		Columns:  make([]string, len(table.Columns)),
		Rows:     make([][]any, len(table.Rows)),
		Encoding: table.Encoding,
	}

	for i, col := range table.Columns {
		out.Columns[i] = strings.ToLower(strings.TrimSpace(col))
	}

	for i, row := range table.Rows {
		cells := make([]any, len(row))
		for j, cell := range row {
			cells[j] = normalizeCell(cell)
		}
		out.Rows[i] = cells
	}

	if s, ok := n.strategies[spec.Profile]; ok {
		s.Apply(&out)
	}
	return out
}

// normalizeCell maps whitespace-only strings to nil and leaves other
// values untouched.
func normalizeCell(cell any) any {
	s, ok := cell.(string)
	if !ok {
		return cell
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// columnIndex returns the position of name in the header, or -1 when the
// table has no such column.
func columnIndex(table *dsload.ParsedTable, name string) int {
	for i, col := range table.Columns {
		if col == name {
			return i
		}
	}
	return -1
}
