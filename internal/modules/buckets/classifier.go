package buckets

import "github.com/andrew-rosca/etrade-report/internal/domain"

// UnassignedBucket is the fallback bucket for symbols matching no pattern.
const UnassignedBucket = "Unassigned"

// Rule is one bucket definition: a name and its ordered match patterns.
type Rule struct {
	Name     string   `json:"name"`
	Patterns []string `json:"patterns"`
}

// Classifier assigns symbols to buckets. Buckets are checked in configured
// order and patterns within a bucket in configured order; the first match
// wins. A Classifier is immutable after construction and safe for
// concurrent use.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier over the given rules. The rules are
// copied so later changes to the caller's slices cannot alter precedence.
func NewClassifier(rules []Rule) *Classifier {
	copied := make([]Rule, len(rules))
	for i, r := range rules {
		patterns := make([]string, len(r.Patterns))
		copy(patterns, r.Patterns)
		copied[i] = Rule{Name: r.Name, Patterns: patterns}
	}
	return &Classifier{rules: copied}
}

// Classify returns the name of the first bucket with any pattern matching
// the symbol, or UnassignedBucket when nothing matches. Pure function:
// identical input always yields identical output.
func (c *Classifier) Classify(symbol string) string {
	for _, r := range c.rules {
		for _, p := range r.Patterns {
			if Matches(symbol, p) {
				return r.Name
			}
		}
	}
	return UnassignedBucket
}

// Assign returns a copy of positions with the Bucket field populated.
// The input slice is not modified.
func (c *Classifier) Assign(positions []domain.Position) []domain.Position {
	out := make([]domain.Position, len(positions))
	for i, p := range positions {
		p.Bucket = c.Classify(p.Symbol)
		out[i] = p
	}
	return out
}

// Names returns the configured bucket names in precedence order, without
// the Unassigned fallback.
func (c *Classifier) Names() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}
