package concentration

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Graph is the directed exposure graph: symbol → outgoing (underlying,
// factor) edges. It is built once from configuration, normalizing the
// three accepted entry shapes into one canonical edge-list form:
//
//	MSTY: MSTR                    single underlying, factor 1.0
//	BRK.B: AAPL*0.22              single underlying with factor
//	SPYG: [NVDA*0.15, MSFT*0.06]  multiple underlyings
//
// A symbol without an entry is terminal. The graph may contain cycles
// (a misconfiguration like A→B→A); cycle handling is the resolver's
// job, not the graph's. Immutable after construction.
type Graph struct {
	edges       map[string][]Edge
	symbolCount int
}

// NewGraph builds the exposure graph from decoded configuration (YAML or
// JSON mapping values). Malformed entries — missing or unparsable factors,
// non-positive factors, empty underlyings, non-string list items, and the
// self-referential single edge A: A — are rejected with a
// ConfigurationError. Symbols are kept exactly as configured (matching is
// case-sensitive, like the classifier's pattern matching).
func NewGraph(mappings map[string]any) (*Graph, error) {
	edges := make(map[string][]Edge, len(mappings))
	symbols := make(map[string]bool)

	// Normalize in sorted key order so construction errors are reported
	// deterministically.
	keys := make([]string, 0, len(mappings))
	for symbol := range mappings {
		keys = append(keys, symbol)
	}
	sort.Strings(keys)

	for _, symbol := range keys {
		list, err := normalizeEntry(symbol, mappings[symbol])
		if err != nil {
			return nil, err
		}
		if len(list) == 1 && list[0].Underlying == symbol {
			return nil, &ConfigurationError{Symbol: symbol, Reason: "maps only to itself"}
		}

		edges[symbol] = list
		symbols[symbol] = true
		for _, e := range list {
			symbols[e.Underlying] = true
		}
	}

	return &Graph{edges: edges, symbolCount: len(symbols)}, nil
}

// EdgesFrom returns the outgoing edges of a symbol, in configured order.
// Terminal symbols return nil. Callers must not modify the result.
func (g *Graph) EdgesFrom(symbol string) []Edge {
	return g.edges[symbol]
}

// SymbolCount returns the number of distinct symbols in the graph (mapping
// keys and underlyings). The resolver uses it as its traversal depth bound.
func (g *Graph) SymbolCount() int {
	return g.symbolCount
}

// normalizeEntry converts one configured mapping value into edges.
func normalizeEntry(symbol string, value any) ([]Edge, error) {
	switch v := value.(type) {
	case string:
		edge, err := parseEdge(symbol, v)
		if err != nil {
			return nil, err
		}
		return []Edge{edge}, nil
	case []any:
		if len(v) == 0 {
			return nil, &ConfigurationError{Symbol: symbol, Reason: "empty underlying list"}
		}
		list := make([]Edge, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, &ConfigurationError{Symbol: symbol, Reason: fmt.Sprintf("list entries must be strings, got %T", item)}
			}
			edge, err := parseEdge(symbol, s)
			if err != nil {
				return nil, err
			}
			list = append(list, edge)
		}
		return list, nil
	default:
		return nil, &ConfigurationError{Symbol: symbol, Reason: fmt.Sprintf("mapping must be a string or list of strings, got %T", value)}
	}
}

// parseEdge parses "UNDERLYING" or "UNDERLYING*factor".
func parseEdge(symbol, s string) (Edge, error) {
	underlying := strings.TrimSpace(s)
	factor := 1.0

	if idx := strings.Index(s, "*"); idx >= 0 {
		underlying = strings.TrimSpace(s[:idx])
		raw := strings.TrimSpace(s[idx+1:])
		if raw == "" {
			return Edge{}, &ConfigurationError{Symbol: symbol, Reason: fmt.Sprintf("missing factor in %q", s)}
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Edge{}, &ConfigurationError{Symbol: symbol, Reason: fmt.Sprintf("unparsable factor in %q", s)}
		}
		factor = f
	}

	if underlying == "" {
		return Edge{}, &ConfigurationError{Symbol: symbol, Reason: fmt.Sprintf("empty underlying in %q", s)}
	}
	if !(factor > 0) || math.IsInf(factor, 0) {
		return Edge{}, &ConfigurationError{Symbol: symbol, Reason: fmt.Sprintf("factor must be positive and finite in %q", s)}
	}

	return Edge{Underlying: underlying, Factor: factor}, nil
}
