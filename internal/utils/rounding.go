package utils

import "math"

// Round rounds a value to the specified number of decimal places.
// Dollar values and percentages are rounded to 2 places at the edges of
// the system so JSON payloads stay stable across runs.
func Round(val float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(val*multiplier) / multiplier
}
