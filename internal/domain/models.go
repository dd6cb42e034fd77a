// Package domain provides core domain models shared across modules.
package domain

import "time"

// Account represents a brokerage account.
type Account struct {
	AccountID    string `json:"account_id"`
	AccountIDKey string `json:"account_id_key"` // Opaque key used in API paths
	Name         string `json:"name"`
	Type         string `json:"type"`   // INDIVIDUAL, IRA, ...
	Mode         string `json:"mode"`   // CASH or MARGIN
	Status       string `json:"status"` // ACTIVE, CLOSED
}

// Balance represents an account's balance snapshot.
type Balance struct {
	AccountIDKey     string    `json:"account_id_key"`
	NetAccountValue  float64   `json:"net_account_value"`
	TotalMarketValue float64   `json:"total_market_value"`
	CashBalance      float64   `json:"cash_balance"`
	CashAvailable    float64   `json:"cash_available"`
	MarginBalance    float64   `json:"margin_balance"` // Negative when borrowing
	BuyingPower      float64   `json:"buying_power"`
	AsOf             time.Time `json:"as_of"`
}

// Position represents one holding in an account.
// Bucket is derived by the classifier and empty until assigned.
type Position struct {
	Symbol      string  `json:"symbol"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	LastPrice   float64 `json:"last_price"`
	MarketValue float64 `json:"market_value"`
	CostBasis   float64 `json:"cost_basis"`
	GainLoss    float64 `json:"gain_loss"`
	GainLossPct float64 `json:"gain_loss_pct"`
	Bucket      string  `json:"bucket,omitempty"`
}

// Transaction represents one brokerage transaction.
type Transaction struct {
	TransactionID string  `json:"transaction_id"`
	Date          string  `json:"date"` // YYYY-MM-DD
	Type          string  `json:"type"` // DIVIDEND, BOUGHT, SOLD, ...
	Description   string  `json:"description"`
	Symbol        string  `json:"symbol,omitempty"`
	Amount        float64 `json:"amount"`
	Quantity      float64 `json:"quantity,omitempty"`
	Price         float64 `json:"price,omitempty"`
	Fee           float64 `json:"fee,omitempty"`
}
