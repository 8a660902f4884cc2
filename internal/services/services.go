// package services defines interface Scrobbler for reading listening history from HTTP APIs
//
// Last.fm (audioscrobbler 2.0)
package services

import (
	"context"

	"github.com/desertthunder/fmx/internal/models"
)

// Scrobbler defines the read-only operations a sync pass needs from a listening-history service.
type Scrobbler interface {
	// Authenticate stores API credentials for subsequent requests.
	// Returns an error if required credentials are missing.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// RecentTracks returns up to limit of the user's most recent tracks, most recent first.
	// Returns an error wrapping [shared.ErrMalformedPayload] when the track list is not a JSON array.
	RecentTracks(ctx context.Context, user string, limit int) ([]models.Track, error)

	// AlbumInfoByMBID looks an album up by its MusicBrainz release ID.
	AlbumInfoByMBID(ctx context.Context, mbid string) (*AlbumInfo, error)

	// AlbumInfoByName looks an album up by artist and album title.
	AlbumInfoByName(ctx context.Context, artist, album string) (*AlbumInfo, error)

	// Name returns the name of the service (e.g., "Last.fm")
	Name() string
}

// AlbumInfo is the subset of an album lookup a sync pass uses.
//
// URL and Thumbnail are passed through as returned and may be empty or unusable.
type AlbumInfo struct {
	Name      string
	Artist    string
	MBID      string
	URL       string
	Thumbnail string
}
