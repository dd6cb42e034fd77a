package portfolio

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/andrew-rosca/etrade-report/internal/domain"
	"github.com/andrew-rosca/etrade-report/internal/modules/buckets"
	"github.com/andrew-rosca/etrade-report/internal/modules/snapshots"
	"github.com/andrew-rosca/etrade-report/internal/utils"
)

// Service orchestrates portfolio fetches: broker data in, filtered and
// bucketed view out, latest good view cached per account.
type Service struct {
	client           BrokerClient
	classifier       *buckets.Classifier
	snapshots        SnapshotStore
	minPositionValue float64
	log              zerolog.Logger
}

// NewService creates a portfolio service. Positions worth less than
// minPositionValue are dropped from views.
func NewService(
	client BrokerClient,
	classifier *buckets.Classifier,
	store SnapshotStore,
	minPositionValue float64,
	log zerolog.Logger,
) *Service {
	return &Service{
		client:           client,
		classifier:       classifier,
		snapshots:        store,
		minPositionValue: minPositionValue,
		log:              log.With().Str("service", "portfolio").Logger(),
	}
}

// Accounts lists the brokerage accounts.
func (s *Service) Accounts() ([]domain.Account, error) {
	return s.client.ListAccounts()
}

// View returns the account's portfolio view. On broker errors it falls back
// to the cached snapshot, marked stale; the fetch error is returned only
// when no cached view exists either.
func (s *Service) View(accountIDKey string) (*View, error) {
	view, err := s.Refresh(accountIDKey)
	if err == nil {
		return view, nil
	}

	s.log.Warn().Err(err).Str("account", accountIDKey).Msg("Live fetch failed, trying cached snapshot")

	var cached View
	fetchedAt, ok, loadErr := s.snapshots.Load(snapshots.KindPortfolio, accountIDKey, &cached)
	if loadErr != nil {
		s.log.Error().Err(loadErr).Str("account", accountIDKey).Msg("Failed to load cached snapshot")
	}
	if loadErr != nil || !ok {
		return nil, err
	}

	cached.Stale = true
	cached.FetchedAt = fetchedAt
	return &cached, nil
}

// Refresh fetches the account's state from the broker, builds the view and
// caches it. Unlike View it never serves cached data: callers that need the
// distinction (sync jobs, manual refresh) see the real error.
func (s *Service) Refresh(accountIDKey string) (*View, error) {
	defer utils.OperationTimer("portfolio_refresh", s.log)()

	balance, err := s.client.GetBalance(accountIDKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balance: %w", err)
	}

	positions, err := s.client.GetPositions(accountIDKey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch positions: %w", err)
	}

	kept := s.filterPositions(positions)
	kept = s.classifier.Assign(kept)

	view := &View{
		AccountIDKey:      accountIDKey,
		Balance:           *balance,
		Positions:         kept,
		Totals:            computeTotals(kept),
		MarginUtilization: marginUtilization(*balance),
		FetchedAt:         time.Now(),
	}

	if err := s.snapshots.Save(snapshots.KindPortfolio, accountIDKey, view); err != nil {
		// The live view is still good; only the stale fallback suffers
		s.log.Warn().Err(err).Str("account", accountIDKey).Msg("Failed to cache portfolio snapshot")
	}

	s.log.Info().
		Str("account", accountIDKey).
		Int("positions", len(kept)).
		Float64("total_value", view.Totals.TotalValue).
		Msg("Portfolio refreshed")

	return view, nil
}

// filterPositions drops closed/short positions, holdings below the minimum
// value and anything with a non-finite market value. One bad position never
// aborts the run.
func (s *Service) filterPositions(positions []domain.Position) []domain.Position {
	kept := make([]domain.Position, 0, len(positions))
	for _, p := range positions {
		if math.IsNaN(p.MarketValue) || math.IsInf(p.MarketValue, 0) {
			s.log.Warn().Str("symbol", p.Symbol).Msg("Position has non-finite market value, skipping")
			continue
		}
		if p.Quantity <= 0 {
			continue
		}
		if p.MarketValue < s.minPositionValue {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// computeTotals sums market values and gains. GainLossPct is measured
// against cost basis (value minus gain).
func computeTotals(positions []domain.Position) Totals {
	t := Totals{PositionCount: len(positions)}
	for _, p := range positions {
		t.TotalValue += p.MarketValue
		t.TotalGainLoss += p.GainLoss
	}

	costBasis := t.TotalValue - t.TotalGainLoss
	if costBasis > 0 {
		t.GainLossPct = utils.Round(t.TotalGainLoss/costBasis*100, 2)
	}

	t.TotalValue = utils.Round(t.TotalValue, 2)
	t.TotalGainLoss = utils.Round(t.TotalGainLoss, 2)
	return t
}

// marginUtilization is borrowed amount as a percent of net account value.
// MarginBalance is negative while borrowing; zero or positive means no debt.
func marginUtilization(b domain.Balance) float64 {
	if b.MarginBalance >= 0 || b.NetAccountValue <= 0 {
		return 0
	}
	return utils.Round(-b.MarginBalance/b.NetAccountValue*100, 2)
}
