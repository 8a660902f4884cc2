// package models defines the data model for the recent albums service
package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/fmx/internal/shared"
)

// Model defines the base interface for persisted records.
type Model interface {
	ID() string      // ID returns the unique identifier for this model
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// Track is a single entry of the recent-tracks feed.
//
// AlbumMBID and Thumbnail may be empty; Thumbnail may also be an unusable string.
type Track struct {
	Name       string
	Artist     string
	Album      string
	AlbumMBID  string
	Thumbnail  string
	PlayedAt   time.Time // zero while the track is playing
	NowPlaying bool
}

// Album is one entry of a snapshot.
//
// URI is the empty string when no canonical page was resolved; Thumbnail is always a valid absolute URL.
type Album struct {
	Title     string `json:"title"`
	URI       string `json:"uri"`
	Thumbnail string `json:"thumbnail"`
}

// Key returns the normalized title used for deduplication.
func (a Album) Key() string {
	return shared.NormalizeTitle(a.Title)
}

// HasLink reports whether the album should be rendered wrapped in a link.
func (a Album) HasLink() bool {
	return a.URI != ""
}

// Validate checks the invariants every persisted album must hold.
func (a Album) Validate() error {
	if a.Key() == "" {
		return fmt.Errorf("%w: album title is empty", shared.ErrInvalidInput)
	}
	if !shared.IsValidURL(a.Thumbnail) {
		return fmt.Errorf("%w: album %q", shared.ErrNoThumbnail, a.Title)
	}
	if a.URI != "" && !shared.IsValidURL(a.URI) {
		return fmt.Errorf("%w: album %q has invalid uri %q", shared.ErrInvalidInput, a.Title, a.URI)
	}
	return nil
}

// Snapshot is the album list produced by one sync pass.
type Snapshot struct {
	Albums   []Album
	RunID    string
	SyncedAt time.Time
}

// Len returns the number of albums in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Albums)
}

// IsEmpty reports whether there is nothing to display.
func (s *Snapshot) IsEmpty() bool {
	return s.Len() == 0
}

// ValidateAlbums checks that albums form a well-formed snapshot: every album is valid, titles are unique after normalization, and there are at most limit entries.
//
// A limit of zero or less disables the length check.
func ValidateAlbums(albums []Album, limit int) error {
	if limit > 0 && len(albums) > limit {
		return fmt.Errorf("%w: %d albums exceeds cap of %d", shared.ErrInvalidInput, len(albums), limit)
	}

	seen := make(map[string]struct{}, len(albums))
	for _, album := range albums {
		if err := album.Validate(); err != nil {
			return err
		}
		key := album.Key()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate album title %q", shared.ErrInvalidInput, album.Title)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// RunStatus describes how a sync pass ended.
type RunStatus string

const (
	RunSaved     RunStatus = "saved"     // snapshot replaced
	RunPreserved RunStatus = "preserved" // feed was empty, previous snapshot kept
	RunFailed    RunStatus = "failed"    // feed unavailable or malformed, previous snapshot kept
)

// SyncRun records the outcome of one sync pass.
type SyncRun struct {
	RunID      string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     RunStatus `json:"status"`
	TracksSeen int       `json:"tracks_seen"`
	Albums     int       `json:"albums"`
	Dropped    int       `json:"dropped"`
	Error      string    `json:"error,omitempty"`
}

var _ Model = (*SyncRun)(nil)

func (r *SyncRun) ID() string { return r.RunID }

// Duration returns how long the pass took.
func (r *SyncRun) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *SyncRun) Validate() error {
	if r.RunID == "" {
		return fmt.Errorf("%w: sync run id is empty", shared.ErrInvalidInput)
	}
	switch r.Status {
	case RunSaved, RunPreserved, RunFailed:
	default:
		return fmt.Errorf("%w: unknown sync run status %q", shared.ErrInvalidInput, r.Status)
	}
	return nil
}
