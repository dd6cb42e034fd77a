package cash_flows

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
	"github.com/rs/zerolog"

	"github.com/andrew-rosca/etrade-report/internal/database"
	"github.com/andrew-rosca/etrade-report/internal/domain"
	"github.com/andrew-rosca/etrade-report/internal/utils"
)

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	transaction_id TEXT PRIMARY KEY,
	date           INTEGER NOT NULL,
	type           TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	symbol         TEXT NOT NULL DEFAULT '',
	amount         REAL NOT NULL DEFAULT 0,
	quantity       REAL NOT NULL DEFAULT 0,
	price          REAL NOT NULL DEFAULT 0,
	fee            REAL NOT NULL DEFAULT 0,
	created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
`

// Ledger is the per-account transaction store. Each account gets its own
// SQLite file under the data directory, created on first write. Dates are
// stored as Unix timestamps at midnight UTC and converted at the edges.
type Ledger struct {
	accountIDKey string
	dataDir      string
	log          zerolog.Logger

	mu sync.Mutex
	db *sql.DB
}

// NewLedger creates a ledger handle for an account. The database file is
// opened lazily on first use.
func NewLedger(accountIDKey, dataDir string, log zerolog.Logger) *Ledger {
	return &Ledger{
		accountIDKey: accountIDKey,
		dataDir:      dataDir,
		log:          log.With().Str("repo", "tx_ledger").Logger(),
	}
}

// LedgerPath returns the database file for an account's ledger. The file
// name embeds a short hash of the account key (not a cryptographic use)
// so broker identifiers never appear on disk.
func LedgerPath(dataDir, accountIDKey string) string {
	sum := md5.Sum([]byte(accountIDKey))
	return filepath.Join(dataDir, fmt.Sprintf("txledger_%s.db", hex.EncodeToString(sum[:])[:8]))
}

// Path returns this ledger's database file path.
func (l *Ledger) Path() string {
	return LedgerPath(l.dataDir, l.accountIDKey)
}

// getDB lazily opens the ledger database and initializes its schema.
func (l *Ledger) getDB() (*sql.DB, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db != nil {
		return l.db, nil
	}

	if err := os.MkdirAll(l.dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	db, err := sql.Open("sqlite", l.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to open transaction ledger: %w", err)
	}

	if _, err := db.Exec(ledgerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	l.db = db
	return db, nil
}

// Close closes the ledger database connection.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db != nil {
		err := l.db.Close()
		l.db = nil
		return err
	}
	return nil
}

// SaveBatch writes transactions to the ledger inside one database
// transaction, skipping IDs already recorded and rows without a usable
// date. Returns the number of newly inserted rows.
func (l *Ledger) SaveBatch(txs []domain.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	db, err := l.getDB()
	if err != nil {
		return 0, err
	}

	inserted := 0
	err = database.WithTransaction(db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT OR IGNORE INTO transactions
				(transaction_id, date, type, description, symbol, amount, quantity, price, fee, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().Unix()
		for _, t := range txs {
			if t.TransactionID == "" {
				l.log.Warn().Str("type", t.Type).Str("date", t.Date).Msg("Skipping transaction without ID")
				continue
			}

			dateUnix, err := utils.DateToUnix(t.Date)
			if err != nil {
				l.log.Warn().Str("transaction_id", t.TransactionID).Str("date", t.Date).Msg("Skipping transaction with unusable date")
				continue
			}

			res, err := stmt.Exec(t.TransactionID, dateUnix, t.Type, t.Description, t.Symbol, t.Amount, t.Quantity, t.Price, t.Fee, now)
			if err != nil {
				return fmt.Errorf("failed to insert transaction: %w", err)
			}
			if n, err := res.RowsAffected(); err == nil && n > 0 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

// Exists checks whether a transaction ID is already recorded.
func (l *Ledger) Exists(transactionID string) (bool, error) {
	db, err := l.getDB()
	if err != nil {
		return false, err
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM transactions WHERE transaction_id = ?", transactionID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return count > 0, nil
}

// Count returns the number of transactions in the ledger.
func (l *Ledger) Count() (int, error) {
	db, err := l.getDB()
	if err != nil {
		return 0, err
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

// GetByDateRange retrieves transactions within an inclusive date range,
// most recent first. Types, when given, filter case-insensitively on the
// exact transaction type.
func (l *Ledger) GetByDateRange(startDate, endDate string, types []string) ([]domain.Transaction, error) {
	startUnix, err := utils.DateToUnix(startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date (expected YYYY-MM-DD): %w", err)
	}
	endUnix, err := utils.EndOfDayUnix(endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid end date (expected YYYY-MM-DD): %w", err)
	}

	db, err := l.getDB()
	if err != nil {
		return nil, err
	}

	query := `
		SELECT transaction_id, date, type, description, symbol, amount, quantity, price, fee
		FROM transactions
		WHERE date >= ? AND date <= ?
	`
	args := []interface{}{startUnix, endUnix}

	if len(types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
		query += " AND LOWER(type) IN (" + placeholders + ")"
		for _, t := range types {
			args = append(args, strings.ToLower(strings.TrimSpace(t)))
		}
	}

	query += " ORDER BY date DESC, transaction_id DESC"

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var dateUnix int64

		if err := rows.Scan(&t.TransactionID, &dateUnix, &t.Type, &t.Description, &t.Symbol, &t.Amount, &t.Quantity, &t.Price, &t.Fee); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}

		t.Date = utils.UnixToDate(dateUnix)
		txs = append(txs, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}
