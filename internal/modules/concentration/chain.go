package concentration

// Chain follows the first edge at every hop from symbol and returns the
// linear resolution chain with compounded factors, stopping at a terminal
// or already-visited symbol. It is a display helper for explaining where a
// symbol's value ends up; full multi-path resolution is the resolver's
// job.
func (g *Graph) Chain(symbol string) []ChainLink {
	chain := []ChainLink{{Symbol: symbol, Factor: 1.0}}
	visited := map[string]bool{symbol: true}

	current := symbol
	compounded := 1.0
	for {
		edges := g.EdgesFrom(current)
		if len(edges) == 0 {
			break
		}
		next := edges[0]
		if visited[next.Underlying] {
			break
		}

		compounded *= next.Factor
		chain = append(chain, ChainLink{Symbol: next.Underlying, Factor: compounded})
		visited[next.Underlying] = true
		current = next.Underlying
	}

	return chain
}
