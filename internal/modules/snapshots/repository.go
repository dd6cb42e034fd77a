// Package snapshots caches the latest fetched broker state so the dashboard
// can keep serving last-known data when the broker is unreachable. Only the
// newest snapshot per (kind, account) is kept.
package snapshots

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/andrew-rosca/etrade-report/internal/database"
)

// Well-known snapshot kinds.
const (
	KindPortfolio = "portfolio"
	KindAccounts  = "accounts"
)

// Repository stores msgpack-encoded payloads in cache.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates the repository and its schema.
func NewRepository(db *sql.DB, log zerolog.Logger) (*Repository, error) {
	r := &Repository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}

	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			kind           TEXT NOT NULL,
			account_id_key TEXT NOT NULL,
			snapshot_id    TEXT NOT NULL,
			fetched_at     INTEGER NOT NULL,
			payload        BLOB NOT NULL,
			PRIMARY KEY (kind, account_id_key)
		)
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create snapshots table: %w", err)
	}

	return r, nil
}

// Save encodes v and upserts it as the latest snapshot for (kind, account).
func (r *Repository) Save(kind, accountIDKey string, v interface{}) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	snapshotID := uuid.New().String()
	fetchedAt := time.Now().Unix()

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT OR REPLACE INTO snapshots (kind, account_id_key, snapshot_id, fetched_at, payload)
			VALUES (?, ?, ?, ?, ?)
		`, kind, accountIDKey, snapshotID, fetchedAt, payload)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	r.log.Debug().
		Str("kind", kind).
		Str("account", accountIDKey).
		Int("bytes", len(payload)).
		Msg("Snapshot saved")

	return nil
}

// Load decodes the latest snapshot for (kind, account) into v. The second
// return value is false when no snapshot exists.
func (r *Repository) Load(kind, accountIDKey string, v interface{}) (time.Time, bool, error) {
	var payload []byte
	var fetchedAtUnix int64

	err := r.db.QueryRow(`
		SELECT payload, fetched_at FROM snapshots
		WHERE kind = ? AND account_id_key = ?
	`, kind, accountIDKey).Scan(&payload, &fetchedAtUnix)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if err := msgpack.Unmarshal(payload, v); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return time.Unix(fetchedAtUnix, 0).UTC(), true, nil
}

// Delete removes the snapshot for (kind, account). Missing rows are not an
// error.
func (r *Repository) Delete(kind, accountIDKey string) error {
	if _, err := r.db.Exec(`DELETE FROM snapshots WHERE kind = ? AND account_id_key = ?`, kind, accountIDKey); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
