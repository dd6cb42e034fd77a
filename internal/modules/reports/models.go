// Package reports composes the account summary report: portfolio state,
// bucket allocations, concentration exposure and cash flow statistics in
// one payload. Reports are produced fresh per request and never persisted.
package reports

import (
	"time"

	"github.com/andrew-rosca/etrade-report/internal/domain"
	"github.com/andrew-rosca/etrade-report/internal/modules/buckets"
	"github.com/andrew-rosca/etrade-report/internal/modules/cash_flows"
	"github.com/andrew-rosca/etrade-report/internal/modules/concentration"
	"github.com/andrew-rosca/etrade-report/internal/modules/portfolio"
)

// PortfolioSource provides account and portfolio state.
// *portfolio.Service satisfies it.
type PortfolioSource interface {
	Accounts() ([]domain.Account, error)
	View(accountIDKey string) (*portfolio.View, error)
}

// FlowSource provides cash flow series. *cash_flows.Service satisfies it.
type FlowSource interface {
	Flows(accountIDKey, startDate, endDate string) (*cash_flows.FlowReport, error)
}

// CashFlowSummary is the report's cash flow section: aggregate statistics
// over a recent window, without the daily series.
type CashFlowSummary struct {
	StartDate string               `json:"start_date"`
	EndDate   string               `json:"end_date"`
	Stats     cash_flows.FlowStats `json:"stats"`
}

// Report is the full account summary.
type Report struct {
	ReportID          string                `json:"report_id"`
	GeneratedAt       time.Time             `json:"generated_at"`
	Account           domain.Account        `json:"account"`
	Balance           domain.Balance        `json:"balance"`
	Totals            portfolio.Totals      `json:"totals"`
	MarginUtilization float64               `json:"margin_utilization_pct"`
	Positions         []domain.Position     `json:"positions"`
	Allocations       []buckets.Allocation  `json:"allocations"`
	Concentration     []concentration.Entry `json:"concentration"`
	UnassignedSymbols []string              `json:"unassigned_symbols,omitempty"`
	CashFlows         *CashFlowSummary      `json:"cash_flows,omitempty"`
	FetchedAt         time.Time             `json:"fetched_at"`
	Stale             bool                  `json:"stale"`
}
