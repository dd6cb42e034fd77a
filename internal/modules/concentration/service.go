package concentration

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andrew-rosca/etrade-report/internal/domain"
)

// Service owns the exposure graph built from configuration and exposes
// concentration analysis to handlers and reports.
type Service struct {
	graph      *Graph
	aggregator *Aggregator
	log        zerolog.Logger
}

// NewService builds the exposure graph from the configured mappings and
// wires the resolver and aggregator. A malformed mapping aborts startup:
// a bad exposure config silently under- or over-counting is worse than
// failing fast.
func NewService(mappings map[string]any, log zerolog.Logger) (*Service, error) {
	graph, err := NewGraph(mappings)
	if err != nil {
		return nil, fmt.Errorf("failed to build exposure graph: %w", err)
	}

	serviceLog := log.With().Str("service", "concentration").Logger()
	resolver := NewResolver(graph)

	serviceLog.Info().
		Int("mappings", len(mappings)).
		Int("symbols", graph.SymbolCount()).
		Msg("Exposure graph built")

	return &Service{
		graph:      graph,
		aggregator: NewAggregator(resolver, serviceLog),
		log:        serviceLog,
	}, nil
}

// Analyze aggregates the portfolio's exposures and returns the ranked
// top-N concentration entries.
func (s *Service) Analyze(positions []domain.Position, totalPortfolioValue float64, topN int) []Entry {
	return s.aggregator.Aggregate(positions, totalPortfolioValue, topN)
}

// Chain returns the linear first-edge resolution chain for a symbol.
func (s *Service) Chain(symbol string) []ChainLink {
	return s.graph.Chain(symbol)
}
