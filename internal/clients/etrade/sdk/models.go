package sdk

// Raw response shapes for the E*TRADE JSON API. Field names mirror the
// API's own casing; transformation to domain types happens a layer up.

// AccountListResponse wraps GET /v1/accounts/list.
type AccountListResponse struct {
	Response struct {
		Accounts struct {
			Account []Account `json:"Account"`
		} `json:"Accounts"`
	} `json:"AccountListResponse"`
}

// Account describes one brokerage account.
type Account struct {
	AccountID       string `json:"accountId"`
	AccountIDKey    string `json:"accountIdKey"`
	AccountMode     string `json:"accountMode"` // CASH or MARGIN
	AccountDesc     string `json:"accountDesc"`
	AccountName     string `json:"accountName"`
	AccountType     string `json:"accountType"`
	AccountStatus   string `json:"accountStatus"` // ACTIVE or CLOSED
	InstitutionType string `json:"institutionType"`
	ClosedDate      int64  `json:"closedDate"`
}

// BalanceResponse wraps GET /v1/accounts/{accountIdKey}/balance.
type BalanceResponse struct {
	Response BalanceDetail `json:"BalanceResponse"`
}

// BalanceDetail holds balance figures for one account.
type BalanceDetail struct {
	AccountID   string          `json:"accountId"`
	AccountType string          `json:"accountType"`
	AccountMode string          `json:"accountMode"`
	Computed    ComputedBalance `json:"Computed"`
}

// ComputedBalance carries the values the API computes server-side.
type ComputedBalance struct {
	CashAvailableForInvestment  float64        `json:"cashAvailableForInvestment"`
	CashAvailableForWithdrawal  float64        `json:"cashAvailableForWithdrawal"`
	TotalAvailableForWithdrawal float64        `json:"totalAvailableForWithdrawal"`
	NetCash                     float64        `json:"netCash"`
	CashBalance                 float64        `json:"cashBalance"`
	MarginBuyingPower           float64        `json:"marginBuyingPower"`
	CashBuyingPower             float64        `json:"cashBuyingPower"`
	MarginBalance               float64        `json:"marginBalance"` // negative = margin debt
	RegtEquity                  float64        `json:"regtEquity"`
	RealTimeValues              RealTimeValues `json:"RealTimeValues"`
}

// RealTimeValues is present when the balance is requested with realTimeNAV.
type RealTimeValues struct {
	TotalAccountValue float64 `json:"totalAccountValue"`
	NetMv             float64 `json:"netMv"`
	NetMvLong         float64 `json:"netMvLong"`
	NetMvShort        float64 `json:"netMvShort"`
}

// PortfolioResponse wraps GET /v1/accounts/{accountIdKey}/portfolio.
type PortfolioResponse struct {
	Response struct {
		AccountPortfolio []AccountPortfolio `json:"AccountPortfolio"`
	} `json:"PortfolioResponse"`
}

// AccountPortfolio is one page of positions for one account.
type AccountPortfolio struct {
	AccountID  string     `json:"accountId"`
	Position   []Position `json:"Position"`
	TotalPages int        `json:"totalPages"`
	NextPageNo string     `json:"nextPageNo"`
}

// Position is one holding as the API reports it (COMPLETE view).
type Position struct {
	PositionID        int64         `json:"positionId"`
	SymbolDescription string        `json:"symbolDescription"`
	Quantity          float64       `json:"quantity"`
	PricePaid         float64       `json:"pricePaid"`
	TotalCost         float64       `json:"totalCost"`
	MarketValue       float64       `json:"marketValue"`
	TotalGain         float64       `json:"totalGain"`
	TotalGainPct      float64       `json:"totalGainPct"`
	DaysGain          float64       `json:"daysGain"`
	DaysGainPct       float64       `json:"daysGainPct"`
	PctOfPortfolio    float64       `json:"pctOfPortfolio"`
	CostPerShare      float64       `json:"costPerShare"`
	Product           Product       `json:"Product"`
	Quick             QuickQuote    `json:"Quick"`
	Complete          CompleteQuote `json:"Complete"`
}

// Product identifies the instrument behind a position or transaction.
type Product struct {
	Symbol       string `json:"symbol"`
	SecurityType string `json:"securityType"`
}

// QuickQuote is the lightweight quote attached to each position.
type QuickQuote struct {
	LastTrade     float64 `json:"lastTrade"`
	LastTradeTime int64   `json:"lastTradeTime"`
	Change        float64 `json:"change"`
	ChangePct     float64 `json:"changePct"`
	Volume        int64   `json:"volume"`
}

// CompleteQuote carries the dividend fields the COMPLETE view adds.
type CompleteQuote struct {
	AnnualDividend float64 `json:"annualDividend"`
	Dividend       float64 `json:"dividend"`
	DivYield       float64 `json:"divYield"`
	DivPayDate     int64   `json:"divPayDate"`
	ExDividendDate int64   `json:"exDividendDate"`
}

// TransactionListResponse wraps GET /v1/accounts/{accountIdKey}/transactions.
type TransactionListResponse struct {
	Response struct {
		Transaction      []Transaction `json:"Transaction"`
		Next             string        `json:"next"`
		Marker           string        `json:"marker"`
		MoreTransactions bool          `json:"moreTransactions"`
		TransactionCount int           `json:"transactionCount"`
		TotalCount       int           `json:"totalCount"`
	} `json:"TransactionListResponse"`
}

// Transaction is one ledger entry as the API reports it.
type Transaction struct {
	TransactionID   int64     `json:"transactionId"`
	AccountID       string    `json:"accountId"`
	TransactionDate int64     `json:"transactionDate"` // epoch milliseconds
	PostDate        int64     `json:"postDate"`
	Amount          float64   `json:"amount"`
	Description     string    `json:"description"`
	TransactionType string    `json:"transactionType"`
	Memo            string    `json:"memo"`
	Brokerage       Brokerage `json:"brokerage"`
}

// Brokerage carries the trade details of a transaction.
type Brokerage struct {
	Quantity      float64 `json:"quantity"`
	Price         float64 `json:"price"`
	Fee           float64 `json:"fee"`
	DisplaySymbol string  `json:"displaySymbol"`
	Product       Product `json:"product"`
}
