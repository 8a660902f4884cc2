package models

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/fmx/internal/shared"
)

const cover = "https://lastfm.freetls.fastly.net/i/u/174s/cover.png"

func TestAlbum(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name    string
			album   Album
			wantErr error
		}{
			{name: "valid with link", album: Album{Title: "Abbey Road", URI: "https://www.last.fm/music/The+Beatles/Abbey+Road", Thumbnail: cover}},
			{name: "valid without link", album: Album{Title: "Abbey Road", Thumbnail: cover}},
			{name: "empty title", album: Album{Title: "  ", Thumbnail: cover}, wantErr: shared.ErrInvalidInput},
			{name: "missing thumbnail", album: Album{Title: "Abbey Road"}, wantErr: shared.ErrNoThumbnail},
			{name: "relative thumbnail", album: Album{Title: "Abbey Road", Thumbnail: "/i/u/cover.png"}, wantErr: shared.ErrNoThumbnail},
			{name: "invalid uri", album: Album{Title: "Abbey Road", URI: "last.fm/x", Thumbnail: cover}, wantErr: shared.ErrInvalidInput},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.album.Validate()
				if tt.wantErr == nil && err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			})
		}
	})

	t.Run("HasLink", func(t *testing.T) {
		if (Album{Title: "x", Thumbnail: cover}).HasLink() {
			t.Error("album without uri should not have a link")
		}
		if !(Album{Title: "x", URI: "https://www.last.fm/x", Thumbnail: cover}).HasLink() {
			t.Error("album with uri should have a link")
		}
	})
}

func TestValidateAlbums(t *testing.T) {
	t.Run("accepts distinct albums", func(t *testing.T) {
		albums := []Album{
			{Title: "Abbey Road", Thumbnail: cover},
			{Title: "Revolver", Thumbnail: cover},
		}
		if err := ValidateAlbums(albums, 8); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("rejects normalized duplicates", func(t *testing.T) {
		albums := []Album{
			{Title: "Abbey Road", Thumbnail: cover},
			{Title: "abbey   road", Thumbnail: cover},
		}
		if err := ValidateAlbums(albums, 8); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("rejects over cap", func(t *testing.T) {
		albums := []Album{
			{Title: "A", Thumbnail: cover},
			{Title: "B", Thumbnail: cover},
		}
		if err := ValidateAlbums(albums, 1); err == nil {
			t.Error("expected error when over cap")
		}
		if err := ValidateAlbums(albums, 0); err != nil {
			t.Errorf("zero cap disables length check, got %v", err)
		}
	})
}

func TestSnapshot(t *testing.T) {
	var nilSnap *Snapshot
	if !nilSnap.IsEmpty() || nilSnap.Len() != 0 {
		t.Error("nil snapshot should be empty")
	}

	snap := &Snapshot{Albums: []Album{{Title: "A", Thumbnail: cover}}}
	if snap.IsEmpty() || snap.Len() != 1 {
		t.Errorf("expected one album, got %d", snap.Len())
	}
}

func TestSyncRun(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	run := &SyncRun{RunID: "run-1", StartedAt: start, FinishedAt: start.Add(3 * time.Second), Status: RunSaved}

	if err := run.Validate(); err != nil {
		t.Errorf("expected valid run, got %v", err)
	}
	if run.ID() != "run-1" {
		t.Errorf("expected id run-1, got %s", run.ID())
	}
	if run.Duration() != 3*time.Second {
		t.Errorf("expected 3s, got %s", run.Duration())
	}

	run.Status = "weird"
	if err := run.Validate(); err == nil {
		t.Error("expected error for unknown status")
	}

	run.Status = RunFailed
	run.RunID = ""
	if err := run.Validate(); err == nil {
		t.Error("expected error for empty id")
	}
}
