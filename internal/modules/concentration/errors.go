package concentration

import "fmt"

// ConfigurationError reports an invalid exposure mapping entry. It is
// returned only at graph construction time; a graph that was built
// successfully never produces it during resolution.
type ConfigurationError struct {
	Symbol string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid exposure mapping for %q: %s", e.Symbol, e.Reason)
}

// InvalidInputError reports a position that failed the defensive input
// check (non-positive quantity or non-finite market value). Such positions
// are skipped with a warning; they never abort an aggregation run.
type InvalidInputError struct {
	Symbol string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid position %q: %s", e.Symbol, e.Reason)
}
