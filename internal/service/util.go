package service

import (
	"sort"

	"github.com/shopspring/decimal"
)

func sortedSymbols(values map[string]decimal.Decimal) []string {
	out := make([]string, 0, len(values))
	for symbol := range values {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}
