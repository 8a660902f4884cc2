package repositories

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/fmx/internal/models"
	"github.com/desertthunder/fmx/internal/shared"
)

// SnapshotRepository persists the album snapshot under [KeyRecentAlbums] and the run that produced it under [KeyLastSync].
type SnapshotRepository struct {
	db   *sql.DB
	runs *SyncRunRepository
}

// NewSnapshotRepository creates a new [SnapshotRepository] with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, runs: NewSyncRunRepository(db)}
}

// Load returns the current snapshot.
//
// A database that has never been synced yields an empty snapshot, not an error.
func (r *SnapshotRepository) Load() (*models.Snapshot, error) {
	snapshot := &models.Snapshot{Albums: []models.Album{}}
	options := NewOptionRepository(r.db)

	raw, err := options.Get(KeyRecentAlbums)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return snapshot, nil
	case err != nil:
		return nil, err
	}

	if err := json.Unmarshal([]byte(raw), &snapshot.Albums); err != nil {
		return nil, fmt.Errorf("%w: stored %s: %v", shared.ErrMalformedPayload, KeyRecentAlbums, err)
	}
	if snapshot.Albums == nil {
		snapshot.Albums = []models.Album{}
	}

	run, err := r.LastRun()
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	if run != nil {
		snapshot.RunID = run.RunID
		snapshot.SyncedAt = run.FinishedAt
	}

	return snapshot, nil
}

// Save replaces the album list and records run in one transaction.
func (r *SnapshotRepository) Save(snapshot *models.Snapshot, run *models.SyncRun) error {
	if snapshot == nil {
		return fmt.Errorf("%w: nil snapshot", shared.ErrInvalidArgument)
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	albums := snapshot.Albums
	if albums == nil {
		albums = []models.Album{}
	}
	if err := models.ValidateAlbums(albums, 0); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	albumsJSON, err := json.Marshal(albums)
	if err != nil {
		return fmt.Errorf("failed to encode albums: %w", err)
	}
	runJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode sync run: %w", err)
	}

	return withTx(r.db, func(tx *sql.Tx) error {
		if err := upsertOption(tx, KeyRecentAlbums, string(albumsJSON), run.FinishedAt); err != nil {
			return err
		}
		if err := upsertOption(tx, KeyLastSync, string(runJSON), run.FinishedAt); err != nil {
			return err
		}
		return r.runs.insert(tx, run)
	})
}

// RecordRun stores a pass that did not replace the snapshot (preserved or failed).
// The album list is left untouched.
func (r *SnapshotRepository) RecordRun(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	runJSON, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode sync run: %w", err)
	}

	return withTx(r.db, func(tx *sql.Tx) error {
		if err := upsertOption(tx, KeyLastSync, string(runJSON), run.FinishedAt); err != nil {
			return err
		}
		return r.runs.insert(tx, run)
	})
}

// LastRun returns the most recent recorded pass.
func (r *SnapshotRepository) LastRun() (*models.SyncRun, error) {
	raw, err := NewOptionRepository(r.db).Get(KeyLastSync)
	if err != nil {
		return nil, err
	}

	var run models.SyncRun
	if err := json.Unmarshal([]byte(raw), &run); err != nil {
		return nil, fmt.Errorf("%w: stored %s: %v", shared.ErrMalformedPayload, KeyLastSync, err)
	}
	return &run, nil
}
