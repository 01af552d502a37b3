package normalize

import "github.com/vvka-141/dsload/pkg/dsload"

const currencyCodeLength = 3

// currencyColumns are the code columns constrained to three characters
// in the warehouse schema.
var currencyColumns = []string{"currency_code", "code_iso_char"}

// missingSentinels are literal strings the source files use for absent
// values. They must load as NULL, not as text.
var missingSentinels = map[string]struct{}{
	"nan":  {},
	"None": {},
	"<NA>": {},
}

// currencyStrategy nulls sentinel markers in the currency code columns
// and truncates surviving values to the schema's three-character limit.
type currencyStrategy struct{}

func (currencyStrategy) Name() string { return dsload.ProfileCurrency }

func (currencyStrategy) Apply(table *dsload.ParsedTable) {
	for _, name := range currencyColumns {
		idx := columnIndex(table, name)
		if idx < 0 {
			continue
		}
		for _, row := range table.Rows {
			row[idx] = normalizeCode(row[idx])
		}
	}
}

func normalizeCode(cell any) any {
	s, ok := cell.(string)
	if !ok {
		return cell
	}
	if _, sentinel := missingSentinels[s]; sentinel {
		return nil
	}
	if runes := []rune(s); len(runes) > currencyCodeLength {
		return string(runes[:currencyCodeLength])
	}
	return s
}
