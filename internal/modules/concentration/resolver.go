package concentration

// Resolver expands a position's dollar value through the exposure graph to
// its terminal underlyings. Each traversal carries its own visited set, so
// a Resolver is stateless between calls and safe for concurrent use.
type Resolver struct {
	graph    *Graph
	maxDepth int
}

// NewResolver creates a resolver over the given graph. Path length is
// bounded by the graph's distinct-symbol count: the visited set already
// prevents revisiting a symbol on one path, so the bound only matters for
// pathological configurations, where it guarantees termination.
func NewResolver(graph *Graph) *Resolver {
	maxDepth := graph.SymbolCount()
	if maxDepth < 1 {
		maxDepth = 1
	}
	return &Resolver{graph: graph, maxDepth: maxDepth}
}

// Resolve returns every terminal contribution of dollarValue held in
// symbol, one entry per path. Contributions reaching the same underlying
// over different paths are NOT summed here — the aggregator does that, so
// attribution stays transparent. Shares need not sum to the input value:
// an ETF mapped only through its top holdings attributes the remainder to
// nothing.
//
// A terminal symbol yields itself: Resolve("VTI", 1000) → [(VTI, 1000)].
// An underlying already visited on the current path is treated as terminal
// at that point (cycle break), contributing value × compounded × factor.
func (r *Resolver) Resolve(symbol string, dollarValue float64) []Contribution {
	visited := map[string]bool{symbol: true}
	var out []Contribution
	r.expand(symbol, dollarValue, 1.0, visited, 0, &out)
	return out
}

func (r *Resolver) expand(symbol string, dollarValue, compounded float64, visited map[string]bool, depth int, out *[]Contribution) {
	edges := r.graph.EdgesFrom(symbol)
	if len(edges) == 0 || depth >= r.maxDepth {
		*out = append(*out, Contribution{Underlying: symbol, Value: dollarValue * compounded})
		return
	}

	for _, e := range edges {
		if visited[e.Underlying] {
			// Cycle: attribute at the current point without descending.
			*out = append(*out, Contribution{Underlying: e.Underlying, Value: dollarValue * compounded * e.Factor})
			continue
		}

		visited[e.Underlying] = true
		r.expand(e.Underlying, dollarValue, compounded*e.Factor, visited, depth+1, out)
		delete(visited, e.Underlying)
	}
}
