// Package portfolio fetches account state from the broker, derives totals
// and margin metrics, and keeps a cached copy so the dashboard degrades to
// last-known data when the broker is unreachable.
package portfolio

import (
	"time"

	"github.com/andrew-rosca/etrade-report/internal/domain"
)

// BrokerClient is the broker surface this module needs.
type BrokerClient interface {
	ListAccounts() ([]domain.Account, error)
	GetBalance(accountIDKey string) (*domain.Balance, error)
	GetPositions(accountIDKey string) ([]domain.Position, error)
}

// SnapshotStore persists the latest fetched view per account.
type SnapshotStore interface {
	Save(kind, accountIDKey string, v interface{}) error
	Load(kind, accountIDKey string, v interface{}) (time.Time, bool, error)
}

// Totals aggregates the filtered positions of one account.
type Totals struct {
	TotalValue    float64 `json:"total_value"`
	TotalGainLoss float64 `json:"total_gain_loss"`
	GainLossPct   float64 `json:"gain_loss_pct"`
	PositionCount int     `json:"position_count"`
}

// View is one account's portfolio state: balance, bucketed positions and
// derived totals. Stale is set when the view was served from the snapshot
// cache instead of a live fetch.
type View struct {
	AccountIDKey      string            `json:"account_id_key"`
	Balance           domain.Balance    `json:"balance"`
	Positions         []domain.Position `json:"positions"`
	Totals            Totals            `json:"totals"`
	MarginUtilization float64           `json:"margin_utilization_pct"`
	FetchedAt         time.Time         `json:"fetched_at"`
	Stale             bool              `json:"stale"`
}
