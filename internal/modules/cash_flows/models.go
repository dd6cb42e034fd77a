// Package cash_flows maintains per-account transaction ledgers and derives
// cash flow series from them. Transactions are pulled from the broker,
// deduplicated by transaction ID and stored in one SQLite file per account.
// Classification separates real cash movements (deposits, dividends, fees)
// from neutral ones (trades, internal sweeps) so the daily series reflects
// money actually entering or leaving the account.
package cash_flows

import (
	"github.com/andrew-rosca/etrade-report/internal/clients/etrade"
)

// TransactionSource is the broker surface the service needs to pull
// transaction history. *etrade.Client satisfies it.
type TransactionSource interface {
	ListTransactions(accountIDKey string, q etrade.TransactionsQuery) (*etrade.TransactionsPage, error)
}

// SyncResult summarizes one ledger sync run.
type SyncResult struct {
	AccountIDKey string `json:"account_id_key"`
	Fetched      int    `json:"fetched"`      // Transactions returned by the broker
	New          int    `json:"new"`          // Previously unseen, written to the ledger
	Pages        int    `json:"pages"`        // Broker pages consumed
	Backfill     bool   `json:"backfill"`     // True when the run rebuilt an empty ledger
	LedgerCount  int    `json:"ledger_count"` // Rows in the ledger after the run
}

// DailyFlow is one day in a cash flow series. Days without transactions
// are present with zero flows so charts have a continuous axis.
type DailyFlow struct {
	Date             string  `json:"date"` // YYYY-MM-DD
	NetFlow          float64 `json:"net_flow"`
	CumulativeFlow   float64 `json:"cumulative_flow"`
	TransactionCount int     `json:"transaction_count"`
}

// FlowStats aggregates a cash flow series.
// TotalOut is the sum of negative flows and is therefore <= 0;
// NetFlow = TotalIn + TotalOut.
type FlowStats struct {
	TotalIn           float64            `json:"total_in"`
	TotalOut          float64            `json:"total_out"`
	NetFlow           float64            `json:"net_flow"`
	ByCategory        map[string]float64 `json:"by_category"`
	MeanDailyFlow     float64            `json:"mean_daily_flow"`
	StdDevDailyFlow   float64            `json:"stddev_daily_flow"`
	FlowCount         int                `json:"flow_count"`
	NeutralCount      int                `json:"neutral_count"`
	UnrecognizedCount int                `json:"unrecognized_count"`
}

// FlowReport is the full cash flow view for an account over a date range.
type FlowReport struct {
	AccountIDKey string      `json:"account_id_key"`
	StartDate    string      `json:"start_date"`
	EndDate      string      `json:"end_date"`
	Days         []DailyFlow `json:"days"`
	Stats        FlowStats   `json:"stats"`
}
