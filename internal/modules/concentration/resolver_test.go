package concentration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustGraph(t *testing.T, mappings map[string]any) *Graph {
	t.Helper()
	g, err := NewGraph(mappings)
	require.NoError(t, err)
	return g
}

func TestResolve_TerminalSymbol(t *testing.T) {
	r := NewResolver(mustGraph(t, nil))

	got := r.Resolve("VTI", 1000)

	assert.Equal(t, []Contribution{{Underlying: "VTI", Value: 1000}}, got)
}

func TestResolve_ChainCompounds(t *testing.T) {
	r := NewResolver(mustGraph(t, map[string]any{
		"MSTY": "MSTR",
		"MSTR": "Bitcoin",
	}))

	got := r.Resolve("MSTY", 1000)

	require.Len(t, got, 1)
	assert.Equal(t, "Bitcoin", got[0].Underlying)
	assert.InDelta(t, 1000, got[0].Value, 1e-9)
}

func TestResolve_ProportionalFactor(t *testing.T) {
	r := NewResolver(mustGraph(t, map[string]any{
		"BRK.B": "AAPL*0.22",
	}))

	got := r.Resolve("BRK.B", 10000)

	require.Len(t, got, 1)
	assert.Equal(t, "AAPL", got[0].Underlying)
	assert.InDelta(t, 2200, got[0].Value, 1e-9)
}

func TestResolve_MultipleEdges(t *testing.T) {
	r := NewResolver(mustGraph(t, map[string]any{
		"SPYG": []any{"NVDA*0.15", "MSFT*0.06"},
	}))

	got := r.Resolve("SPYG", 1000)

	require.Len(t, got, 2)
	assert.Equal(t, "NVDA", got[0].Underlying)
	assert.InDelta(t, 150, got[0].Value, 1e-9)
	assert.Equal(t, "MSFT", got[1].Underlying)
	assert.InDelta(t, 60, got[1].Value, 1e-9)
	// No claim that the shares sum to the input value.
}

func TestResolve_LeverageCompoundsThroughChain(t *testing.T) {
	r := NewResolver(mustGraph(t, map[string]any{
		"X": "UPRO*0.5",
		"UPRO": "SPX*3",
	}))

	got := r.Resolve("X", 100)

	require.Len(t, got, 1)
	assert.Equal(t, "SPX", got[0].Underlying)
	assert.InDelta(t, 150, got[0].Value, 1e-9)
}

func TestResolve_CycleTerminates(t *testing.T) {
	r := NewResolver(mustGraph(t, map[string]any{
		"A": "B*1.0",
		"B": "A*1.0",
	}))

	got := r.Resolve("A", 1000)

	// A→B descends, B→A hits the visited set and attributes there.
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Underlying)
	assert.InDelta(t, 1000, got[0].Value, 1e-9)
}

func TestResolve_CycleWithFactors(t *testing.T) {
	r := NewResolver(mustGraph(t, map[string]any{
		"A": "B*0.5",
		"B": "A*0.5",
	}))

	got := r.Resolve("A", 1000)

	// Compounded 0.5 at B, then the cycle edge contributes a final ×0.5.
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Underlying)
	assert.InDelta(t, 250, got[0].Value, 1e-9)
}

func TestResolve_SelfEdgeAmongOthers(t *testing.T) {
	r := NewResolver(mustGraph(t, map[string]any{
		"A": []any{"A*0.5", "B*0.5"},
	}))

	got := r.Resolve("A", 1000)

	require.Len(t, got, 2)
	assert.Equal(t, Contribution{Underlying: "A", Value: 500}, got[0])
	assert.Equal(t, Contribution{Underlying: "B", Value: 500}, got[1])
}

func TestResolve_DiamondPathsNotPreSummed(t *testing.T) {
	// Two paths reach GOLD; the resolver reports them individually.
	r := NewResolver(mustGraph(t, map[string]any{
		"X": []any{"A*0.5", "B*0.5"},
		"A": "GOLD",
		"B": "GOLD",
	}))

	got := r.Resolve("X", 1000)

	require.Len(t, got, 2)
	assert.Equal(t, "GOLD", got[0].Underlying)
	assert.Equal(t, "GOLD", got[1].Underlying)
	assert.InDelta(t, 500, got[0].Value, 1e-9)
	assert.InDelta(t, 500, got[1].Value, 1e-9)
}

func TestResolve_ThreeNodeCycle(t *testing.T) {
	r := NewResolver(mustGraph(t, map[string]any{
		"A": "B",
		"B": "C",
		"C": "A",
	}))

	got := r.Resolve("B", 900)

	// B→C→A, then A→B closes the cycle and attributes at B.
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].Underlying)
	assert.InDelta(t, 900, got[0].Value, 1e-9)
}

func TestResolve_Deterministic(t *testing.T) {
	r := NewResolver(mustGraph(t, map[string]any{
		"SPYG": []any{"NVDA*0.15", "MSFT*0.06"},
		"MSTY": "MSTR",
		"MSTR": "Bitcoin",
	}))

	first := r.Resolve("SPYG", 1000)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, r.Resolve("SPYG", 1000))
	}
}
