package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// Option keys used by fmx.
const (
	KeyRecentAlbums   = "recent_albums"    // JSON array of {title, uri, thumbnail}
	KeyLastSync       = "last_sync"        // JSON [models.SyncRun] of the most recent pass
	KeyLastFMAPIKey   = "lastfm_api_key"   // overrides lastfm.api_key
	KeyLastFMUserName = "lastfm_user_name" // overrides lastfm.user_name
)

// SettingKeys lists the keys that may be written through the settings commands.
var SettingKeys = []string{KeyLastFMAPIKey, KeyLastFMUserName}

// IsSettingKey reports whether key is user-settable.
func IsSettingKey(key string) bool {
	for _, k := range SettingKeys {
		if k == key {
			return true
		}
	}
	return false
}

// KeyValueStore is a string key-value store.
//
// Get returns [shared.ErrNotFound] (wrapped) for a missing key.
type KeyValueStore interface {
	Get(key string) (string, error)
	Put(key, value string) error
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// withTx runs fn inside a transaction, committing on success and rolling back otherwise.
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func upsertOption(e execer, key, value string, now time.Time) error {
	query := `
		INSERT INTO options (key, value, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := e.Exec(query, key, value, now, now); err != nil {
		return fmt.Errorf("failed to write option %s: %w", key, err)
	}
	return nil
}
