// Package buckets assigns positions to user-defined buckets (Growth,
// Income, Hedge, ...) and computes per-bucket allocation summaries.
//
// Classification is pattern-based: each bucket carries an ordered list of
// match patterns, and the first bucket with a matching pattern wins. The
// bucket order in the configuration is the precedence order.
package buckets

import "strings"

// Matches reports whether a symbol matches a bucket membership pattern.
//
// Two pattern forms exist: an exact symbol ("AAPL" matches only AAPL) and
// a prefix wildcard ("AAPL*" matches AAPL, AAPLX and any option series
// symbol starting with AAPL). Matching is case-sensitive against the exact
// brokerage symbol format. No regex, no infix matching.
func Matches(symbol, pattern string) bool {
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(symbol, strings.TrimSuffix(pattern, "*"))
	}
	return symbol == pattern
}
