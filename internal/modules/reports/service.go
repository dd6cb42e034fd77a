package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andrew-rosca/etrade-report/internal/domain"
	"github.com/andrew-rosca/etrade-report/internal/modules/buckets"
	"github.com/andrew-rosca/etrade-report/internal/modules/concentration"
)

// flowWindowDays is the cash flow summary lookback.
const flowWindowDays = 90

// Service generates account summary reports.
type Service struct {
	portfolio     PortfolioSource
	flows         FlowSource
	classifier    *buckets.Classifier
	concentration *concentration.Service
	log           zerolog.Logger
}

// NewService creates the report service.
func NewService(portfolio PortfolioSource, flows FlowSource, classifier *buckets.Classifier, conc *concentration.Service, log zerolog.Logger) *Service {
	return &Service{
		portfolio:     portfolio,
		flows:         flows,
		classifier:    classifier,
		concentration: conc,
		log:           log.With().Str("service", "reports").Logger(),
	}
}

// Generate composes the summary report for an account. The portfolio view
// is required; the account header and the cash flow section degrade to
// partial data with a warning when their sources fail.
func (s *Service) Generate(accountIDKey string, topN int) (*Report, error) {
	if accountIDKey == "" {
		return nil, fmt.Errorf("account key is required")
	}

	view, err := s.portfolio.View(accountIDKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	report := &Report{
		ReportID:          uuid.New().String(),
		GeneratedAt:       time.Now().UTC(),
		Account:           s.lookupAccount(accountIDKey),
		Balance:           view.Balance,
		Totals:            view.Totals,
		MarginUtilization: view.MarginUtilization,
		Positions:         view.Positions,
		Allocations:       s.classifier.Allocations(view.Positions, view.Totals.TotalValue),
		Concentration:     s.concentration.Analyze(view.Positions, view.Totals.TotalValue, topN),
		UnassignedSymbols: unassignedSymbols(view.Positions),
		CashFlows:         s.cashFlowSummary(accountIDKey),
		FetchedAt:         view.FetchedAt,
		Stale:             view.Stale,
	}

	s.log.Info().
		Str("report_id", report.ReportID).
		Str("account", accountIDKey).
		Int("positions", len(report.Positions)).
		Int("unassigned", len(report.UnassignedSymbols)).
		Bool("stale", report.Stale).
		Msg("Report generated")

	return report, nil
}

// lookupAccount resolves the account header. A failed lookup degrades to
// a key-only header so the report still renders.
func (s *Service) lookupAccount(accountIDKey string) domain.Account {
	accounts, err := s.portfolio.Accounts()
	if err != nil {
		s.log.Warn().Err(err).Str("account", accountIDKey).Msg("Account lookup failed, using key-only header")
		return domain.Account{AccountIDKey: accountIDKey}
	}

	for _, a := range accounts {
		if a.AccountIDKey == accountIDKey {
			return a
		}
	}

	s.log.Warn().Str("account", accountIDKey).Msg("Account key not in account list")
	return domain.Account{AccountIDKey: accountIDKey}
}

// cashFlowSummary builds the report's cash flow section over the recent
// window. Failures drop the section rather than the report.
func (s *Service) cashFlowSummary(accountIDKey string) *CashFlowSummary {
	end := time.Now().UTC().Format("2006-01-02")
	start := time.Now().UTC().AddDate(0, 0, -flowWindowDays).Format("2006-01-02")

	flowReport, err := s.flows.Flows(accountIDKey, start, end)
	if err != nil {
		s.log.Warn().Err(err).Str("account", accountIDKey).Msg("Cash flow summary unavailable for report")
		return nil
	}

	return &CashFlowSummary{
		StartDate: flowReport.StartDate,
		EndDate:   flowReport.EndDate,
		Stats:     flowReport.Stats,
	}
}

// unassignedSymbols lists positions the classifier could not place,
// sorted for stable output.
func unassignedSymbols(positions []domain.Position) []string {
	var symbols []string
	for _, p := range positions {
		if p.Bucket == buckets.UnassignedBucket {
			symbols = append(symbols, p.Symbol)
		}
	}
	sort.Strings(symbols)
	return symbols
}
