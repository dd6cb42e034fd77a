package buckets

import (
	"sort"

	"github.com/andrew-rosca/etrade-report/internal/domain"
	"github.com/andrew-rosca/etrade-report/internal/utils"
)

// Allocation summarizes one bucket's share of the portfolio.
type Allocation struct {
	Name          string   `json:"name"`
	Value         float64  `json:"value"`
	Percent       float64  `json:"percent"`
	PositionCount int      `json:"position_count"`
	Symbols       []string `json:"symbols,omitempty"`
}

// Allocations groups positions into buckets and computes each bucket's
// dollar value and share of totalValue. Every configured bucket appears in
// the result in configured order, even when empty; Unassigned is always
// last. Percentages are 0 when totalValue is not positive.
func (c *Classifier) Allocations(positions []domain.Position, totalValue float64) []Allocation {
	values := make(map[string]float64)
	symbols := make(map[string][]string)

	for _, p := range positions {
		bucket := c.Classify(p.Symbol)
		values[bucket] += p.MarketValue
		symbols[bucket] = append(symbols[bucket], p.Symbol)
	}

	names := c.Names()
	if !hasUnassigned(names) {
		names = append(names, UnassignedBucket)
	}

	allocations := make([]Allocation, 0, len(names))
	for _, name := range names {
		syms := symbols[name]
		sort.Strings(syms)

		percent := 0.0
		if totalValue > 0 {
			percent = utils.Round(values[name]/totalValue*100, 2)
		}

		allocations = append(allocations, Allocation{
			Name:          name,
			Value:         values[name],
			Percent:       percent,
			PositionCount: len(syms),
			Symbols:       syms,
		})
	}

	return allocations
}

func hasUnassigned(names []string) bool {
	for _, n := range names {
		if n == UnassignedBucket {
			return true
		}
	}
	return false
}
