package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andrew-rosca/etrade-report/internal/domain"
	"github.com/andrew-rosca/etrade-report/internal/modules/cash_flows"
	"github.com/andrew-rosca/etrade-report/internal/modules/portfolio"
	"github.com/andrew-rosca/etrade-report/internal/utils"
)

// AuthChecker gates sync jobs on broker authorization. *etrade.Client
// satisfies it.
type AuthChecker interface {
	IsAuthenticated() bool
}

// AccountLister enumerates broker accounts. *portfolio.Service satisfies it.
type AccountLister interface {
	Accounts() ([]domain.Account, error)
}

// PortfolioSyncer refreshes portfolio state. *portfolio.Service satisfies it.
type PortfolioSyncer interface {
	AccountLister
	Refresh(accountIDKey string) (*portfolio.View, error)
}

// TransactionSyncer updates transaction ledgers. *cash_flows.Service
// satisfies it.
type TransactionSyncer interface {
	Sync(accountIDKey string) (*cash_flows.SyncResult, error)
}

// PortfolioSyncJob refreshes balances and positions for all active
// accounts so snapshots stay warm for stale-fallback serving.
type PortfolioSyncJob struct {
	auth      AuthChecker
	portfolio PortfolioSyncer
	log       zerolog.Logger
}

// NewPortfolioSyncJob creates the portfolio sync job.
func NewPortfolioSyncJob(auth AuthChecker, portfolio PortfolioSyncer, log zerolog.Logger) *PortfolioSyncJob {
	return &PortfolioSyncJob{
		auth:      auth,
		portfolio: portfolio,
		log:       log.With().Str("job", "portfolio_sync").Logger(),
	}
}

// Name returns the job name
func (j *PortfolioSyncJob) Name() string {
	return "portfolio_sync"
}

// Run refreshes every active account. Per-account failures are logged and
// the rest of the accounts still sync; the run fails only when no account
// could be refreshed.
func (j *PortfolioSyncJob) Run() error {
	if !j.auth.IsAuthenticated() {
		j.log.Debug().Msg("Not authorized, skipping portfolio sync")
		return nil
	}
	defer utils.OperationTimer("portfolio_sync", j.log)()

	accounts, err := j.portfolio.Accounts()
	if err != nil {
		return fmt.Errorf("failed to list accounts for sync: %w", err)
	}

	synced, failed := 0, 0
	for _, account := range accounts {
		if account.Status != "ACTIVE" {
			continue
		}

		if _, err := j.portfolio.Refresh(account.AccountIDKey); err != nil {
			failed++
			j.log.Error().Err(err).Str("account", account.AccountIDKey).Msg("Portfolio refresh failed")
			continue
		}
		synced++
	}

	if failed > 0 && synced == 0 {
		return fmt.Errorf("portfolio sync failed for all %d active accounts", failed)
	}

	j.log.Info().Int("synced", synced).Int("failed", failed).Msg("Portfolio sync complete")
	return nil
}

// TransactionSyncJob keeps per-account transaction ledgers current.
type TransactionSyncJob struct {
	auth         AuthChecker
	accounts     AccountLister
	transactions TransactionSyncer
	log          zerolog.Logger
}

// NewTransactionSyncJob creates the transaction sync job.
func NewTransactionSyncJob(auth AuthChecker, accounts AccountLister, transactions TransactionSyncer, log zerolog.Logger) *TransactionSyncJob {
	return &TransactionSyncJob{
		auth:         auth,
		accounts:     accounts,
		transactions: transactions,
		log:          log.With().Str("job", "transaction_sync").Logger(),
	}
}

// Name returns the job name
func (j *TransactionSyncJob) Name() string {
	return "transaction_sync"
}

// Run syncs every active account's ledger, tolerating per-account failures.
func (j *TransactionSyncJob) Run() error {
	if !j.auth.IsAuthenticated() {
		j.log.Debug().Msg("Not authorized, skipping transaction sync")
		return nil
	}
	defer utils.OperationTimer("transaction_sync", j.log)()

	accounts, err := j.accounts.Accounts()
	if err != nil {
		return fmt.Errorf("failed to list accounts for sync: %w", err)
	}

	synced, failed := 0, 0
	for _, account := range accounts {
		if account.Status != "ACTIVE" {
			continue
		}

		result, err := j.transactions.Sync(account.AccountIDKey)
		if err != nil {
			failed++
			j.log.Error().Err(err).Str("account", account.AccountIDKey).Msg("Transaction sync failed")
			continue
		}

		synced++
		j.log.Debug().
			Str("account", account.AccountIDKey).
			Int("new", result.New).
			Int("ledger_count", result.LedgerCount).
			Msg("Ledger synced")
	}

	if failed > 0 && synced == 0 {
		return fmt.Errorf("transaction sync failed for all %d active accounts", failed)
	}

	j.log.Info().Int("synced", synced).Int("failed", failed).Msg("Transaction sync complete")
	return nil
}
