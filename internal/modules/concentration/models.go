// Package concentration resolves position values through chains of
// proxy/derivative relationships (a leveraged ETF holding one equity, a
// holding company's stake in another ticker) down to terminal underlying
// assets, then aggregates and ranks the portfolio's true exposures.
package concentration

// Edge is one configured exposure relationship: Factor of a symbol's value
// is attributable to Underlying. Factors are strictly positive; a factor
// above 1 models leverage.
type Edge struct {
	Underlying string  `json:"underlying"`
	Factor     float64 `json:"factor"`
}

// Contribution is one resolved terminal exposure produced by a single
// path. Contributions from different paths are reported individually and
// summed only during aggregation.
type Contribution struct {
	Underlying string  `json:"underlying"`
	Value      float64 `json:"value"`
}

// Contributor records how one position's value reached a terminal
// underlying, for transparent attribution in reports.
type Contributor struct {
	Symbol        string  `json:"symbol"`
	MarketValue   float64 `json:"market_value"`
	ExposureValue float64 `json:"exposure_value"`
	Factor        float64 `json:"factor"` // Effective compounded factor for this path
}

// Entry is one row of the ranked concentration table.
type Entry struct {
	Underlying         string        `json:"underlying"`
	ExposureValue      float64       `json:"exposure_value"`
	PercentOfPortfolio float64       `json:"percent_of_portfolio"`
	Contributors       []Contributor `json:"contributors,omitempty"`
}

// ChainLink is one hop in a linear resolution chain, carrying the
// compounded factor from the root symbol to this hop.
type ChainLink struct {
	Symbol string  `json:"symbol"`
	Factor float64 `json:"factor"`
}
