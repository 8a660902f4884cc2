package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/desertthunder/fmx/internal/shared"
)

// Option is a row of the options table.
type Option struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// OptionRepository implements [KeyValueStore] on the options table.
type OptionRepository struct {
	db *sql.DB
}

var _ KeyValueStore = (*OptionRepository)(nil)

// NewOptionRepository creates a new [OptionRepository] with the given database connection
func NewOptionRepository(db *sql.DB) *OptionRepository {
	return &OptionRepository{db: db}
}

// Get returns the value stored under key
func (r *OptionRepository) Get(key string) (string, error) {
	var value string
	err := r.db.QueryRow(`SELECT value FROM options WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: option %s", shared.ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query option: %w", err)
	}
	return value, nil
}

// Put inserts or replaces the value stored under key
func (r *OptionRepository) Put(key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: option key is empty", shared.ErrInvalidArgument)
	}
	return upsertOption(r.db, key, value, time.Now())
}

// PutMany writes every entry in a single transaction; either all of them land or none do.
func (r *OptionRepository) PutMany(values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("%w: option key is empty", shared.ErrInvalidArgument)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := time.Now()
	return withTx(r.db, func(tx *sql.Tx) error {
		for _, k := range keys {
			if err := upsertOption(tx, k, values[k], now); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes key. Deleting a missing key returns [shared.ErrNotFound].
func (r *OptionRepository) Delete(key string) error {
	result, err := r.db.Exec(`DELETE FROM options WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete option: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: option %s", shared.ErrNotFound, key)
	}
	return nil
}

// List returns all options whose key starts with prefix, ordered by key. An empty prefix lists everything.
func (r *OptionRepository) List(prefix string) ([]Option, error) {
	query := `SELECT key, value, updated_at FROM options`
	args := []any{}
	if prefix != "" {
		query += ` WHERE substr(key, 1, ?) = ?`
		args = append(args, len(prefix), prefix)
	}
	query += ` ORDER BY key ASC`

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	var options []Option
	for rows.Next() {
		var opt Option
		if err := rows.Scan(&opt.Key, &opt.Value, &opt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return options, nil
}
