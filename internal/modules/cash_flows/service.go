package cash_flows

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/andrew-rosca/etrade-report/internal/clients/etrade"
	"github.com/andrew-rosca/etrade-report/internal/domain"
	"github.com/andrew-rosca/etrade-report/internal/utils"
)

const (
	// pageSize is the broker's maximum transactions per page.
	pageSize = 50
	// maxBackfillPages caps one backfill run so a bad marker loop or a
	// huge account cannot pin the process against the API.
	maxBackfillPages = 20
)

// Service keeps per-account transaction ledgers in sync with the broker
// and derives cash flow series from them. Reads refresh opportunistically:
// a failed broker call downgrades to serving ledger data with a warning.
type Service struct {
	client       TransactionSource
	dataDir      string
	backfillDays int
	log          zerolog.Logger

	mu      sync.Mutex
	ledgers map[string]*Ledger
}

// NewService creates the transaction ledger service. backfillDays bounds
// how far back an empty ledger is rebuilt from the broker.
func NewService(client TransactionSource, dataDir string, backfillDays int, log zerolog.Logger) *Service {
	if backfillDays <= 0 {
		backfillDays = 90
	}
	return &Service{
		client:       client,
		dataDir:      dataDir,
		backfillDays: backfillDays,
		log:          log.With().Str("service", "cash_flows").Logger(),
		ledgers:      make(map[string]*Ledger),
	}
}

// Close closes all open ledger databases.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, l := range s.ledgers {
		if err := l.Close(); err != nil {
			s.log.Warn().Err(err).Str("account", key).Msg("Failed to close transaction ledger")
		}
	}
	s.ledgers = make(map[string]*Ledger)
}

// ledgerFor returns the account's ledger, creating the handle on first use.
func (s *Service) ledgerFor(accountIDKey string) *Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.ledgers[accountIDKey]; ok {
		return l
	}
	l := NewLedger(accountIDKey, s.dataDir, s.log)
	s.ledgers[accountIDKey] = l
	return l
}

// Sync brings an account's ledger up to date. An empty ledger triggers a
// paginated backfill over the configured window; otherwise one page of
// recent transactions is fetched and merged by transaction ID.
func (s *Service) Sync(accountIDKey string) (*SyncResult, error) {
	if accountIDKey == "" {
		return nil, fmt.Errorf("account key is required")
	}

	l := s.ledgerFor(accountIDKey)
	count, err := l.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	if count == 0 {
		return s.backfill(l, accountIDKey)
	}

	page, err := s.client.ListTransactions(accountIDKey, etrade.TransactionsQuery{Count: pageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent transactions: %w", err)
	}

	newCount, err := l.SaveBatch(page.Transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to update ledger: %w", err)
	}

	total, err := l.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	s.log.Info().
		Str("account", accountIDKey).
		Int("fetched", len(page.Transactions)).
		Int("new", newCount).
		Msg("Transaction ledger refreshed")

	return &SyncResult{
		AccountIDKey: accountIDKey,
		Fetched:      len(page.Transactions),
		New:          newCount,
		Pages:        1,
		LedgerCount:  total,
	}, nil
}

// backfill rebuilds an empty ledger by walking the broker's marker
// pagination, newest first, until the window is covered or a stop
// condition hits. A failed page after the first keeps partial history.
func (s *Service) backfill(l *Ledger, accountIDKey string) (*SyncResult, error) {
	endDate := time.Now().UTC().Format("2006-01-02")
	startDate := time.Now().UTC().AddDate(0, 0, -s.backfillDays).Format("2006-01-02")

	s.log.Info().
		Str("account", accountIDKey).
		Str("start", startDate).
		Str("end", endDate).
		Msg("Ledger empty, backfilling transaction history")

	seen := make(map[string]bool)
	result := &SyncResult{AccountIDKey: accountIDKey, Backfill: true}
	marker := ""
	oldest := ""

	for page := 1; page <= maxBackfillPages; page++ {
		resp, err := s.client.ListTransactions(accountIDKey, etrade.TransactionsQuery{
			StartDate: startDate,
			EndDate:   endDate,
			Count:     pageSize,
			Marker:    marker,
		})
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("failed to backfill transactions: %w", err)
			}
			s.log.Warn().Err(err).Int("page", page).Msg("Backfill page failed, keeping partial history")
			break
		}

		result.Pages++
		result.Fetched += len(resp.Transactions)

		var fresh []domain.Transaction
		newUnique := 0
		for _, t := range resp.Transactions {
			if t.TransactionID == "" || seen[t.TransactionID] {
				continue
			}
			seen[t.TransactionID] = true
			newUnique++

			if t.Date != "" && (oldest == "" || t.Date < oldest) {
				oldest = t.Date
			}
			if t.Date >= startDate && t.Date <= endDate {
				fresh = append(fresh, t)
			}
		}

		inserted, err := l.SaveBatch(fresh)
		if err != nil {
			return nil, fmt.Errorf("failed to write ledger during backfill: %w", err)
		}
		result.New += inserted

		// Stop conditions, checked in order: a page of pure duplicates,
		// pagination walked past the window start, the full set seen, or
		// the broker signaling the end.
		if newUnique == 0 {
			break
		}
		if oldest != "" && oldest < startDate {
			break
		}
		if resp.TotalCount > 0 && len(seen) >= resp.TotalCount {
			break
		}
		if !resp.MoreTransactions && resp.TotalCount == 0 {
			break
		}

		next := resp.Marker
		if next == "" && resp.MoreTransactions && len(resp.Transactions) > 0 {
			// Some responses omit the marker; the last transaction ID works.
			next = resp.Transactions[len(resp.Transactions)-1].TransactionID
		}
		if next == "" {
			break
		}
		marker = next
	}

	total, err := l.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	result.LedgerCount = total

	s.log.Info().
		Str("account", accountIDKey).
		Int("pages", result.Pages).
		Int("new", result.New).
		Msg("Transaction backfill complete")

	return result, nil
}

// Transactions returns ledger transactions in the range, most recent
// first, after an opportunistic sync. When the broker is unreachable the
// existing ledger is served; an empty ledger surfaces the sync error.
func (s *Service) Transactions(accountIDKey, startDate, endDate string, types []string) ([]domain.Transaction, error) {
	l := s.ledgerFor(accountIDKey)

	if _, err := s.Sync(accountIDKey); err != nil {
		count, countErr := l.Count()
		if countErr != nil || count == 0 {
			return nil, err
		}
		s.log.Warn().Err(err).Str("account", accountIDKey).Msg("Transaction refresh failed, serving ledger data")
	}

	return l.GetByDateRange(startDate, endDate, types)
}

// Flows classifies the range's transactions and builds the daily cash
// flow series with summary statistics.
func (s *Service) Flows(accountIDKey, startDate, endDate string) (*FlowReport, error) {
	txs, err := s.Transactions(accountIDKey, startDate, endDate, nil)
	if err != nil {
		return nil, err
	}
	return s.buildReport(accountIDKey, startDate, endDate, txs)
}

// buildReport turns classified transactions into a zero-filled daily
// series over the range plus aggregate statistics.
func (s *Service) buildReport(accountIDKey, startDate, endDate string, txs []domain.Transaction) (*FlowReport, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date (expected YYYY-MM-DD): %w", err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date (expected YYYY-MM-DD): %w", err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s precedes start date %s", endDate, startDate)
	}

	dailyNet := make(map[string]float64)
	dailyCount := make(map[string]int)
	stats := FlowStats{ByCategory: make(map[string]float64)}

	for _, t := range txs {
		c := Classify(t.Type, t.Description, t.Amount)
		if !c.Recognized {
			stats.UnrecognizedCount++
			s.log.Warn().
				Str("type", t.Type).
				Str("transaction_id", t.TransactionID).
				Msg("Unknown transaction type, counting amount toward cash flow")
		}

		dailyCount[t.Date]++
		if c.Neutral() {
			stats.NeutralCount++
			continue
		}

		stats.FlowCount++
		dailyNet[t.Date] += c.Impact
		stats.ByCategory[c.Category] += c.Impact
		if c.Impact >= 0 {
			stats.TotalIn += c.Impact
		} else {
			stats.TotalOut += c.Impact
		}
	}

	var days []DailyFlow
	var series []float64
	running := 0.0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		net := dailyNet[key]
		running += net
		days = append(days, DailyFlow{
			Date:             key,
			NetFlow:          utils.Round(net, 2),
			CumulativeFlow:   utils.Round(running, 2),
			TransactionCount: dailyCount[key],
		})
		series = append(series, net)
	}

	stats.NetFlow = utils.Round(stats.TotalIn+stats.TotalOut, 2)
	stats.TotalIn = utils.Round(stats.TotalIn, 2)
	stats.TotalOut = utils.Round(stats.TotalOut, 2)
	for k, v := range stats.ByCategory {
		stats.ByCategory[k] = utils.Round(v, 2)
	}
	if len(series) > 0 {
		stats.MeanDailyFlow = utils.Round(stat.Mean(series, nil), 2)
	}
	if len(series) > 1 {
		stats.StdDevDailyFlow = utils.Round(stat.StdDev(series, nil), 2)
	}

	return &FlowReport{
		AccountIDKey: accountIDKey,
		StartDate:    startDate,
		EndDate:      endDate,
		Days:         days,
		Stats:        stats,
	}, nil
}
