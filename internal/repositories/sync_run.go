package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/fmx/internal/models"
	"github.com/desertthunder/fmx/internal/shared"
)

// SyncRunRepository stores the history of sync passes.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new [SyncRunRepository] with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a run record. A run without an ID gets a generated one.
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	if run.RunID == "" {
		run.RunID = shared.GenerateID()
	}
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return r.insert(r.db, run)
}

func (r *SyncRunRepository) insert(e execer, run *models.SyncRun) error {
	query := `
		INSERT INTO sync_runs (id, started_at, finished_at, status, tracks_seen, albums, dropped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := e.Exec(query, run.RunID, run.StartedAt, run.FinishedAt, string(run.Status),
		run.TracksSeen, run.Albums, run.Dropped, run.Error)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID
func (r *SyncRunRepository) Get(id string) (*models.SyncRun, error) {
	query := `
		SELECT id, started_at, finished_at, status, tracks_seen, albums, dropped, error
		FROM sync_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sync run %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync run: %w", err)
	}
	return run, nil
}

// List returns up to limit runs, newest first. A limit of zero or less returns all of them.
func (r *SyncRunRepository) List(limit int) ([]*models.SyncRun, error) {
	query := `
		SELECT id, started_at, finished_at, status, tracks_seen, albums, dropped, error
		FROM sync_runs
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.SyncRun, error) {
	var (
		run    models.SyncRun
		status string
	)
	err := s.Scan(&run.RunID, &run.StartedAt, &run.FinishedAt, &status,
		&run.TracksSeen, &run.Albums, &run.Dropped, &run.Error)
	if err != nil {
		return nil, err
	}
	run.Status = models.RunStatus(status)
	return &run, nil
}
