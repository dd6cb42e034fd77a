package concentration

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew-rosca/etrade-report/internal/domain"
)

func newAggregator(t *testing.T, mappings map[string]any) *Aggregator {
	t.Helper()
	return NewAggregator(NewResolver(mustGraph(t, mappings)), zerolog.Nop())
}

func TestAggregate_SumsAcrossPositions(t *testing.T) {
	a := newAggregator(t, map[string]any{
		"MSTR": "Bitcoin",
		"BTCI": "Bitcoin",
	})

	positions := []domain.Position{
		{Symbol: "MSTR", Quantity: 10, MarketValue: 1000},
		{Symbol: "BTCI", Quantity: 5, MarketValue: 500},
	}

	entries := a.Aggregate(positions, 1500, 10)

	require.Len(t, entries, 1)
	assert.Equal(t, "Bitcoin", entries[0].Underlying)
	assert.InDelta(t, 1500, entries[0].ExposureValue, 1e-9)
	assert.InDelta(t, 100, entries[0].PercentOfPortfolio, 1e-9)

	require.Len(t, entries[0].Contributors, 2)
	assert.Equal(t, "MSTR", entries[0].Contributors[0].Symbol)
	assert.InDelta(t, 1000, entries[0].Contributors[0].ExposureValue, 1e-9)
	assert.InDelta(t, 1.0, entries[0].Contributors[0].Factor, 1e-9)
	assert.Equal(t, "BTCI", entries[0].Contributors[1].Symbol)
}

func TestAggregate_RanksAndTruncates(t *testing.T) {
	a := newAggregator(t, nil)

	positions := []domain.Position{
		{Symbol: "AAPL", Quantity: 1, MarketValue: 300},
		{Symbol: "MSFT", Quantity: 1, MarketValue: 500},
		{Symbol: "NVDA", Quantity: 1, MarketValue: 200},
	}

	entries := a.Aggregate(positions, 1000, 1)

	require.Len(t, entries, 1)
	assert.Equal(t, "MSFT", entries[0].Underlying)
	assert.InDelta(t, 500, entries[0].ExposureValue, 1e-9)
	assert.InDelta(t, 50, entries[0].PercentOfPortfolio, 1e-9)
}

func TestAggregate_TiesBreakLexically(t *testing.T) {
	a := newAggregator(t, nil)

	positions := []domain.Position{
		{Symbol: "ZETA", Quantity: 1, MarketValue: 100},
		{Symbol: "ALPHA", Quantity: 1, MarketValue: 100},
		{Symbol: "MID", Quantity: 1, MarketValue: 100},
	}

	entries := a.Aggregate(positions, 300, 10)

	require.Len(t, entries, 3)
	assert.Equal(t, "ALPHA", entries[0].Underlying)
	assert.Equal(t, "MID", entries[1].Underlying)
	assert.Equal(t, "ZETA", entries[2].Underlying)
}

func TestAggregate_SkipsInvalidPositions(t *testing.T) {
	a := newAggregator(t, nil)

	positions := []domain.Position{
		{Symbol: "GOOD", Quantity: 1, MarketValue: 100},
		{Symbol: "SHORT", Quantity: -5, MarketValue: 100},
		{Symbol: "ZEROQ", Quantity: 0, MarketValue: 100},
		{Symbol: "NAN", Quantity: 1, MarketValue: math.NaN()},
		{Symbol: "INF", Quantity: 1, MarketValue: math.Inf(1)},
	}

	entries := a.Aggregate(positions, 100, 10)

	// One malformed position never prevents reporting on the rest.
	require.Len(t, entries, 1)
	assert.Equal(t, "GOOD", entries[0].Underlying)
}

func TestAggregate_EmptyPositions(t *testing.T) {
	a := newAggregator(t, nil)
	assert.Empty(t, a.Aggregate(nil, 0, 10))
}

func TestAggregate_ZeroTotalPortfolioValue(t *testing.T) {
	a := newAggregator(t, nil)

	entries := a.Aggregate([]domain.Position{
		{Symbol: "AAPL", Quantity: 1, MarketValue: 100},
	}, 0, 10)

	require.Len(t, entries, 1)
	assert.Equal(t, 0.0, entries[0].PercentOfPortfolio)
}

func TestAggregate_NonPositiveTopN(t *testing.T) {
	a := newAggregator(t, nil)

	entries := a.Aggregate([]domain.Position{
		{Symbol: "AAPL", Quantity: 1, MarketValue: 100},
	}, 100, 0)

	assert.Empty(t, entries)
}

func TestAggregate_DiamondContributionsSummed(t *testing.T) {
	a := newAggregator(t, map[string]any{
		"X": []any{"A*0.5", "B*0.5"},
		"A": "GOLD",
		"B": "GOLD",
	})

	entries := a.Aggregate([]domain.Position{
		{Symbol: "X", Quantity: 1, MarketValue: 1000},
	}, 1000, 10)

	require.Len(t, entries, 1)
	assert.Equal(t, "GOLD", entries[0].Underlying)
	assert.InDelta(t, 1000, entries[0].ExposureValue, 1e-9)
	// Both paths stay visible in the attribution detail.
	require.Len(t, entries[0].Contributors, 2)
}

func TestAggregate_Deterministic(t *testing.T) {
	a := newAggregator(t, map[string]any{
		"MSTY": "MSTR",
		"MSTR": "Bitcoin",
		"SPYG": []any{"NVDA*0.15", "MSFT*0.06"},
	})

	positions := []domain.Position{
		{Symbol: "MSTY", Quantity: 100, MarketValue: 2000},
		{Symbol: "SPYG", Quantity: 10, MarketValue: 1000},
		{Symbol: "AAPL", Quantity: 5, MarketValue: 1500},
	}

	first := a.Aggregate(positions, 4500, 10)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, a.Aggregate(positions, 4500, 10))
	}
}
