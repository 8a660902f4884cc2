// Last.fm API implementation of [Scrobbler]
//
// Response types based on https://www.last.fm/api/show/user.getRecentTracks and https://www.last.fm/api/show/album.getInfo
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/fmx/internal/models"
	"github.com/desertthunder/fmx/internal/shared"
	"github.com/go-resty/resty/v2"
)

const (
	lastFMBaseURL   = "https://ws.audioscrobbler.com/2.0/"
	lastFMUserAgent = "fmx (+https://github.com/desertthunder/fmx)"

	// largeImageIndex is the position of the "large" (174px) variant in Last.fm image lists.
	largeImageIndex = 2
)

// LastFMText is the {"#text": ..., "mbid": ...} node Last.fm uses for artist and album references.
type LastFMText struct {
	Text string `json:"#text"`
	MBID string `json:"mbid"`
}

// LastFMImage is one size variant of an image.
type LastFMImage struct {
	Size string `json:"size"`
	URL  string `json:"#text"`
}

type lastFMDate struct {
	UTS string `json:"uts"`
}

type lastFMTrackAttr struct {
	NowPlaying string `json:"nowplaying"`
}

// LastFMRecentTrack is a track node of user.getrecenttracks.
type LastFMRecentTrack struct {
	Name   string           `json:"name"`
	URL    string           `json:"url"`
	MBID   string           `json:"mbid"`
	Artist LastFMText       `json:"artist"`
	Album  LastFMText       `json:"album"`
	Image  []LastFMImage    `json:"image"`
	Date   *lastFMDate      `json:"date,omitempty"`
	Attr   *lastFMTrackAttr `json:"@attr,omitempty"`
}

// LastFMRecentTracksAttr is the paging block of user.getrecenttracks.
type LastFMRecentTracksAttr struct {
	User       string `json:"user"`
	Page       string `json:"page"`
	PerPage    string `json:"perPage"`
	TotalPages string `json:"totalPages"`
	Total      string `json:"total"`
}

// LastFMRecentTracks is the user.getrecenttracks payload.
//
// Track is kept raw so a non-array value can be told apart from an empty list.
type LastFMRecentTracks struct {
	RecentTracks *struct {
		Track json.RawMessage        `json:"track"`
		Attr  LastFMRecentTracksAttr `json:"@attr"`
	} `json:"recenttracks"`
}

// LastFMAlbum is the album node of album.getinfo.
type LastFMAlbum struct {
	Name   string        `json:"name"`
	Artist string        `json:"artist"`
	MBID   string        `json:"mbid"`
	URL    string        `json:"url"`
	Image  []LastFMImage `json:"image"`
}

// LastFMAlbumInfo is the album.getinfo payload.
type LastFMAlbumInfo struct {
	Album *LastFMAlbum `json:"album"`
}

// APIError is the error payload Last.fm returns in place of a result, e.g. {"error": 6, "message": "Album not found"}.
type APIError struct {
	Code       int    `json:"error"`
	Message    string `json:"message"`
	Method     string `json:"-"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("last.fm %s error %d (status %d): %s", e.Method, e.Code, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return shared.ErrAPIRequest
}

// Temporary reports whether the same request may succeed later (operation failed, service offline, temporarily unavailable, rate limit exceeded).
func (e *APIError) Temporary() bool {
	switch e.Code {
	case 8, 11, 16, 29:
		return true
	default:
		return false
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
}

// LastFMOpts configures a [LastFMService].
type LastFMOpts struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// LastFMService implements [Scrobbler] against the Last.fm 2.0 API using a [resty.Client].
type LastFMService struct {
	client *resty.Client
	apiKey string
}

var _ Scrobbler = (*LastFMService)(nil)

// NewLastFMService creates a Last.fm client. A nil HTTPClient gets one with the configured timeout.
func NewLastFMService(opts LastFMOpts) *LastFMService {
	if opts.BaseURL == "" {
		opts.BaseURL = lastFMBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	client := resty.NewWithClient(opts.HTTPClient).
		SetBaseURL(opts.BaseURL).
		SetHeader("User-Agent", lastFMUserAgent).
		SetHeader("Accept", "application/json")

	return &LastFMService{client: client, apiKey: opts.APIKey}
}

// Name returns the service name.
func (s *LastFMService) Name() string {
	return "Last.fm"
}

// Authenticate stores the API key for subsequent requests.
//
// Expects credentials["api_key"]. Read-only methods need no session key.
func (s *LastFMService) Authenticate(ctx context.Context, credentials map[string]string) error {
	apiKey := strings.TrimSpace(credentials["api_key"])
	if apiKey == "" {
		return fmt.Errorf("%w: missing api_key", shared.ErrMissingCredentials)
	}
	s.apiKey = apiKey
	return nil
}

// Call performs a raw GET for an API method and returns the response without interpreting it.
func (s *LastFMService) Call(ctx context.Context, method string, params map[string]string) (*APIResponse, error) {
	resp, err := s.request(ctx, method, params)
	if err != nil {
		return nil, err
	}

	return &APIResponse{
		StatusCode: resp.StatusCode(),
		Headers:    resp.Header(),
		Body:       resp.Body(),
		IsJSON:     json.Valid(resp.Body()),
	}, nil
}

func (s *LastFMService) request(ctx context.Context, method string, params map[string]string) (*resty.Response, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("%w: last.fm api key not set", shared.ErrMissingCredentials)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("method", method).
		SetQueryParam("api_key", s.apiKey).
		SetQueryParam("format", "json").
		Get("/")
	if err != nil {
		return nil, fmt.Errorf("%w: %s request failed: %v", shared.ErrServiceUnavailable, method, err)
	}

	return resp, nil
}

// doRequest calls method and decodes a successful JSON body into result.
//
// A body that is not JSON yields [shared.ErrMalformedPayload]; a Last.fm error payload yields an [*APIError].
func (s *LastFMService) doRequest(ctx context.Context, method string, params map[string]string, result any) error {
	resp, err := s.request(ctx, method, params)
	if err != nil {
		return err
	}

	body := resp.Body()
	if !json.Valid(body) {
		return fmt.Errorf("%w: %s returned a non-JSON body (status %d)", shared.ErrMalformedPayload, method, resp.StatusCode())
	}

	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		apiErr.Method = method
		apiErr.StatusCode = resp.StatusCode()
		return &apiErr
	}

	if resp.IsError() {
		return fmt.Errorf("%w: %s: status %d", shared.ErrAPIRequest, method, resp.StatusCode())
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", shared.ErrMalformedPayload, method, err)
	}

	return nil
}

// RecentTracks calls user.getrecenttracks for a single page of at most limit tracks.
func (s *LastFMService) RecentTracks(ctx context.Context, user string, limit int) ([]models.Track, error) {
	if strings.TrimSpace(user) == "" {
		return nil, fmt.Errorf("%w: missing user name", shared.ErrMissingCredentials)
	}
	if limit <= 0 {
		limit = shared.DefaultPageLimit
	}

	var payload LastFMRecentTracks
	params := map[string]string{"user": user, "limit": strconv.Itoa(limit)}
	if err := s.doRequest(ctx, "user.getrecenttracks", params, &payload); err != nil {
		return nil, err
	}

	if payload.RecentTracks == nil {
		return nil, fmt.Errorf("%w: missing recenttracks node", shared.ErrMalformedPayload)
	}

	raw := bytes.TrimSpace(payload.RecentTracks.Track)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: recenttracks.track is not a list", shared.ErrMalformedPayload)
	}

	var nodes []LastFMRecentTrack
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("%w: failed to decode track list: %v", shared.ErrMalformedPayload, err)
	}

	tracks := make([]models.Track, 0, len(nodes))
	for _, node := range nodes {
		tracks = append(tracks, node.toTrack())
	}

	return tracks, nil
}

// AlbumInfoByMBID calls album.getinfo with an album MBID.
func (s *LastFMService) AlbumInfoByMBID(ctx context.Context, mbid string) (*AlbumInfo, error) {
	if strings.TrimSpace(mbid) == "" {
		return nil, fmt.Errorf("%w: empty mbid", shared.ErrInvalidArgument)
	}
	return s.albumInfo(ctx, map[string]string{"mbid": mbid})
}

// AlbumInfoByName calls album.getinfo with an artist and album title.
func (s *LastFMService) AlbumInfoByName(ctx context.Context, artist, album string) (*AlbumInfo, error) {
	if strings.TrimSpace(artist) == "" || strings.TrimSpace(album) == "" {
		return nil, fmt.Errorf("%w: artist and album are required", shared.ErrInvalidArgument)
	}
	return s.albumInfo(ctx, map[string]string{"artist": artist, "album": album})
}

func (s *LastFMService) albumInfo(ctx context.Context, params map[string]string) (*AlbumInfo, error) {
	var payload LastFMAlbumInfo
	if err := s.doRequest(ctx, "album.getinfo", params, &payload); err != nil {
		return nil, err
	}
	if payload.Album == nil {
		return nil, fmt.Errorf("%w: missing album node", shared.ErrMalformedPayload)
	}

	return &AlbumInfo{
		Name:      payload.Album.Name,
		Artist:    payload.Album.Artist,
		MBID:      payload.Album.MBID,
		URL:       strings.TrimSpace(payload.Album.URL),
		Thumbnail: LargeImage(payload.Album.Image),
	}, nil
}

func (t LastFMRecentTrack) toTrack() models.Track {
	track := models.Track{
		Name:      t.Name,
		Artist:    t.Artist.Text,
		Album:     t.Album.Text,
		AlbumMBID: strings.TrimSpace(t.Album.MBID),
		Thumbnail: LargeImage(t.Image),
	}

	if t.Attr != nil && t.Attr.NowPlaying == "true" {
		track.NowPlaying = true
	}
	if t.Date != nil {
		if uts, err := strconv.ParseInt(t.Date.UTS, 10, 64); err == nil {
			track.PlayedAt = time.Unix(uts, 0).UTC()
		}
	}

	return track
}

// LargeImage returns the "large" variant of an image list: the entry at index 2, or failing that the entry labelled "large".
func LargeImage(images []LastFMImage) string {
	if len(images) > largeImageIndex {
		return strings.TrimSpace(images[largeImageIndex].URL)
	}
	for _, img := range images {
		if img.Size == "large" {
			return strings.TrimSpace(img.URL)
		}
	}
	return ""
}
