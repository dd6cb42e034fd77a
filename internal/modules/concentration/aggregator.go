package concentration

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/andrew-rosca/etrade-report/internal/domain"
)

// Aggregator sums resolved exposures across all positions and ranks the
// terminal underlyings.
type Aggregator struct {
	resolver *Resolver
	log      zerolog.Logger
}

// NewAggregator creates an aggregator over the given resolver.
func NewAggregator(resolver *Resolver, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		resolver: resolver,
		log:      log.With().Str("component", "concentration").Logger(),
	}
}

// Aggregate resolves every position, sums exposure per terminal underlying
// and returns the top-N entries sorted by exposure value descending, ties
// broken by ascending underlying symbol. totalPortfolioValue is supplied
// by the caller (the sum of all eligible positions' market values);
// percentages are 0 when it is not positive.
//
// A position with non-positive quantity or non-finite market value should
// have been filtered upstream; if one reaches here it is skipped with a
// warning rather than aborting the run.
func (a *Aggregator) Aggregate(positions []domain.Position, totalPortfolioValue float64, topN int) []Entry {
	exposures := make(map[string]float64)
	contributors := make(map[string][]Contributor)

	for _, p := range positions {
		if err := validatePosition(p); err != nil {
			a.log.Warn().Err(err).Str("symbol", p.Symbol).Msg("Skipping position")
			continue
		}

		for _, c := range a.resolver.Resolve(p.Symbol, p.MarketValue) {
			exposures[c.Underlying] += c.Value

			factor := 0.0
			if p.MarketValue != 0 {
				factor = c.Value / p.MarketValue
			}
			contributors[c.Underlying] = append(contributors[c.Underlying], Contributor{
				Symbol:        p.Symbol,
				MarketValue:   p.MarketValue,
				ExposureValue: c.Value,
				Factor:        factor,
			})
		}
	}

	entries := make([]Entry, 0, len(exposures))
	for underlying, value := range exposures {
		percent := 0.0
		if totalPortfolioValue > 0 {
			percent = value / totalPortfolioValue * 100
		}
		entries = append(entries, Entry{
			Underlying:         underlying,
			ExposureValue:      value,
			PercentOfPortfolio: percent,
			Contributors:       contributors[underlying],
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ExposureValue != entries[j].ExposureValue {
			return entries[i].ExposureValue > entries[j].ExposureValue
		}
		return entries[i].Underlying < entries[j].Underlying
	})

	if topN < len(entries) {
		if topN < 0 {
			topN = 0
		}
		entries = entries[:topN]
	}

	return entries
}

// validatePosition is the defensive input check for positions reaching the
// engine.
func validatePosition(p domain.Position) error {
	if p.Quantity <= 0 {
		return &InvalidInputError{Symbol: p.Symbol, Reason: "non-positive quantity"}
	}
	if math.IsNaN(p.MarketValue) || math.IsInf(p.MarketValue, 0) {
		return &InvalidInputError{Symbol: p.Symbol, Reason: "non-finite market value"}
	}
	return nil
}
