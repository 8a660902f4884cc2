// Package services defines the [Scrobbler] interface for listening-history providers and implements it for Last.fm.
//
// # Scrobbler Interface
//
// A sync pass needs three read operations: the recent-tracks feed and two flavours of album lookup.
// Keeping them behind an interface lets the engine be exercised with in-memory fakes.
//
// # Last.fm Implementation
//
// [LastFMService] issues GET requests against the audioscrobbler 2.0 endpoint through a [resty.Client].
// Every request carries method, api_key and format=json query parameters; no session key is needed for the read-only methods used here.
//
// Responses are decoded into explicit types ([LastFMRecentTracks], [LastFMAlbumInfo]) that keep only the fields a pass reads.
// Optional values (album MBID, image URLs) decode to empty strings rather than failing.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrServiceUnavailable] : transport failure or timeout
//   - [shared.ErrMalformedPayload] : body is not JSON, or the track list is not a JSON array
//   - [shared.ErrAPIRequest] : Last.fm error payload ([APIError]) or non-2xx status
//   - [shared.ErrMissingCredentials] : no API key or user name
//
// The caller decides which of these are fatal: a failed feed request aborts a pass while a failed album lookup only downgrades one album.
package services
