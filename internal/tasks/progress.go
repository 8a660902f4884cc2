package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a sync pass.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchFeed Phase = iota
	ResolveAlbums
	SaveSnapshot
)

func (p Phase) String() string {
	switch p {
	case FetchFeed:
		return "fetch_feed"
	case ResolveAlbums:
		return "resolve_albums"
	case SaveSnapshot:
		return "save_snapshot"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func fetchFeedUpdate(user string, limit int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeed,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching up to %d recent tracks for %s...", limit, user),
	}
}

func feedFetchedUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchFeed,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d tracks", count),
	}
}

func albumAcceptedUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveAlbums,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, title),
	}
}

func albumDroppedUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveAlbums,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s (no thumbnail)", step, total, title),
	}
}

func snapshotSavedUpdate(result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveSnapshot,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saved %d albums", len(result.Albums)),
		Data:    result,
	}
}

func snapshotPreservedUpdate(result *SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveSnapshot,
		Step:    1,
		Total:   1,
		Message: "No albums resolved, keeping previous snapshot",
		Data:    result,
	}
}
