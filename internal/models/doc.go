// Package models defines the domain entities for the fmx recent-albums service.
//
// The package contains two categories of types:
//
// 1. Ephemeral input decoded from the listening-history feed
//   - [Track] : one scrobble with its album name, optional MBID and thumbnail candidate
//
// 2. Persisted output written by a sync pass
//   - [Album] : a deduplicated album with canonical link and validated thumbnail
//   - [Snapshot] : the ordered album list plus the run that produced it
//   - [SyncRun] : bookkeeping for one sync pass
//
// A snapshot is replaced wholesale by each successful pass; there is no per-album lifecycle.
package models
