package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/desertthunder/fmx/internal/models"
	"github.com/desertthunder/fmx/internal/repositories"
	"github.com/desertthunder/fmx/internal/services"
	"github.com/desertthunder/fmx/internal/shared"
)

// SnapshotStore persists the result of a pass.
//
// Save must replace the album list and the run record together.
type SnapshotStore interface {
	Save(snapshot *models.Snapshot, run *models.SyncRun) error
	RecordRun(run *models.SyncRun) error
}

// SyncResult describes one sync pass.
type SyncResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     models.RunStatus
	TracksSeen int            // tracks in the fetched feed
	Skipped    int            // tracks whose album was already accepted or had no title
	Dropped    int            // albums discarded for lack of a usable thumbnail
	Albums     []models.Album // albums in feed order
	Saved      bool           // whether the stored snapshot was replaced
}

// Run converts the result into its persisted form.
func (r *SyncResult) Run(err error) *models.SyncRun {
	run := &models.SyncRun{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Status:     r.Status,
		TracksSeen: r.TracksSeen,
		Albums:     len(r.Albums),
		Dropped:    r.Dropped,
	}
	if err != nil {
		run.Error = err.Error()
	}
	return run
}

// AlbumEngine performs sync passes against a [services.Scrobbler].
type AlbumEngine struct {
	scrobbler services.Scrobbler
	store     SnapshotStore
	options   repositories.KeyValueStore
	lastfm    shared.LastFMConfig
	sync      shared.SyncConfig
	limiter   *rate.Limiter
	logger    *log.Logger
	now       func() time.Time
}

// NewAlbumEngine creates an engine. options may be nil, in which case credentials come from cfg alone.
func NewAlbumEngine(scrobbler services.Scrobbler, store SnapshotStore, options repositories.KeyValueStore, cfg *shared.Config, logger *log.Logger) *AlbumEngine {
	c := *cfg
	c.ApplyDefaults()
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &AlbumEngine{
		scrobbler: scrobbler,
		store:     store,
		options:   options,
		lastfm:    c.LastFM,
		sync:      c.Sync,
		limiter:   rate.NewLimiter(rate.Limit(c.Sync.RateLimit), 1),
		logger:    logger,
		now:       time.Now,
	}
}

// candidate is a track whose album has not been accepted yet.
type candidate struct {
	track models.Track
	title string
	key   string
}

// resolution is the enrichment outcome for a candidate.
type resolution struct {
	uri       string
	thumbnail string
}

// Sync runs one pass and replaces the stored snapshot.
//
// A feed failure returns an error and leaves the snapshot untouched. Enrichment failures never fail the pass.
func (e *AlbumEngine) Sync(ctx context.Context, progress chan<- ProgressUpdate) (*SyncResult, error) {
	result := &SyncResult{
		RunID:     shared.GenerateID(),
		StartedAt: e.now(),
		Albums:    []models.Album{},
	}
	logger := shared.WithLogger(e.logger, "run_id", result.RunID)

	user, err := e.authenticate(ctx)
	if err != nil {
		return e.fail(logger, result, err)
	}

	sendProgress(progress, fetchFeedUpdate(user, e.lastfm.PageLimit))
	tracks, err := e.scrobbler.RecentTracks(ctx, user, e.lastfm.PageLimit)
	if err != nil {
		if !errors.Is(err, shared.ErrMalformedPayload) {
			err = fmt.Errorf("%w: %w", shared.ErrFeedUnavailable, err)
		}
		return e.fail(logger, result, err)
	}
	result.TracksSeen = len(tracks)
	sendProgress(progress, feedFetchedUpdate(len(tracks)))
	logger.Debug("fetched recent tracks", "user", user, "count", len(tracks))

	if err := e.collect(ctx, logger, tracks, result, progress); err != nil {
		return e.fail(logger, result, err)
	}

	result.FinishedAt = e.now()

	if len(result.Albums) == 0 && e.sync.PreserveOnEmpty {
		result.Status = models.RunPreserved
		if err := e.store.RecordRun(result.Run(nil)); err != nil {
			logger.Warn("failed to record sync run", "error", err)
		}
		sendProgress(progress, snapshotPreservedUpdate(result))
		logger.Info("no albums resolved, previous snapshot kept", "tracks", result.TracksSeen, "dropped", result.Dropped)
		return result, nil
	}

	result.Status = models.RunSaved
	snapshot := &models.Snapshot{Albums: result.Albums, RunID: result.RunID, SyncedAt: result.FinishedAt}
	if err := e.store.Save(snapshot, result.Run(nil)); err != nil {
		result.Status = models.RunFailed
		logger.Error("failed to save snapshot", "error", err)
		return result, fmt.Errorf("failed to save snapshot: %w", err)
	}
	result.Saved = true

	sendProgress(progress, snapshotSavedUpdate(result))
	logger.Info("snapshot saved", "albums", len(result.Albums), "tracks", result.TracksSeen, "skipped", result.Skipped, "dropped", result.Dropped)
	return result, nil
}

// authenticate resolves credentials and hands the API key to the scrobbler.
func (e *AlbumEngine) authenticate(ctx context.Context) (string, error) {
	apiKey, user := ResolveCredentials(e.options, e.lastfm)

	if apiKey == "" {
		return "", fmt.Errorf("%w: no Last.fm API key configured", shared.ErrMissingCredentials)
	}
	if user == "" {
		return "", fmt.Errorf("%w: no Last.fm user name configured", shared.ErrMissingCredentials)
	}

	if err := e.scrobbler.Authenticate(ctx, map[string]string{"api_key": apiKey}); err != nil {
		return "", err
	}
	return user, nil
}

// ResolveCredentials returns the API key and user name, preferring non-empty values in options over cfg.
// options may be nil.
func ResolveCredentials(options repositories.KeyValueStore, cfg shared.LastFMConfig) (apiKey, user string) {
	lookup := func(key, fallback string) string {
		if options != nil {
			if v, err := options.Get(key); err == nil && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return strings.TrimSpace(fallback)
	}
	return lookup(repositories.KeyLastFMAPIKey, cfg.APIKey), lookup(repositories.KeyLastFMUserName, cfg.UserName)
}

// collect walks tracks in order and fills result.Albums.
//
// Candidates are gathered into windows of distinct, not yet accepted titles and resolved concurrently.
// A title that repeats inside a window closes it, so the repeat is judged against the outcome of its first occurrence.
func (e *AlbumEngine) collect(ctx context.Context, logger *log.Logger, tracks []models.Track, result *SyncResult, progress chan<- ProgressUpdate) error {
	limit := e.sync.AlbumCap
	seen := make(map[string]struct{}, limit)
	next := 0
	step := 0

	for next < len(tracks) && len(result.Albums) < limit {
		width := min(e.sync.Concurrency, limit-len(result.Albums))
		window := make([]candidate, 0, width)
		inWindow := make(map[string]struct{}, width)

		for next < len(tracks) && len(window) < width {
			track := tracks[next]
			title := strings.TrimSpace(track.Album)
			key := shared.NormalizeTitle(title)

			if _, dup := inWindow[key]; dup {
				break
			}
			next++

			if key == "" {
				result.Skipped++
				continue
			}
			if _, dup := seen[key]; dup {
				result.Skipped++
				continue
			}

			inWindow[key] = struct{}{}
			window = append(window, candidate{track: track, title: title, key: key})
		}

		if len(window) == 0 {
			continue
		}

		resolved := e.resolveWindow(ctx, logger, window)
		if err := ctx.Err(); err != nil {
			return err
		}

		for i, c := range window {
			step++
			r := resolved[i]
			if !shared.IsValidURL(r.thumbnail) {
				result.Dropped++
				logger.Debug("dropping album without thumbnail", "title", c.title)
				sendProgress(progress, albumDroppedUpdate(step, limit, c.title))
				continue
			}

			result.Albums = append(result.Albums, models.Album{Title: c.title, URI: r.uri, Thumbnail: r.thumbnail})
			seen[c.key] = struct{}{}
			sendProgress(progress, albumAcceptedUpdate(len(result.Albums), limit, c.title))

			if len(result.Albums) == limit {
				break
			}
		}
	}

	return nil
}

func (e *AlbumEngine) resolveWindow(ctx context.Context, logger *log.Logger, window []candidate) []resolution {
	resolved := make([]resolution, len(window))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.sync.Concurrency)
	for i, c := range window {
		g.Go(func() error {
			resolved[i] = e.resolve(ctx, logger, c)
			return nil
		})
	}
	g.Wait()

	return resolved
}

// resolve looks up the canonical link for a candidate.
//
// With an MBID the thumbnail always comes from the track. Without one the lookup goes through the fallback artist
// and its image replaces a track thumbnail that is not a valid URL.
func (e *AlbumEngine) resolve(ctx context.Context, logger *log.Logger, c candidate) resolution {
	r := resolution{thumbnail: strings.TrimSpace(c.track.Thumbnail)}

	if err := e.limiter.Wait(ctx); err != nil {
		return r
	}

	var (
		info *services.AlbumInfo
		err  error
	)
	mbid := strings.TrimSpace(c.track.AlbumMBID)
	if mbid != "" {
		info, err = e.scrobbler.AlbumInfoByMBID(ctx, mbid)
	} else {
		info, err = e.scrobbler.AlbumInfoByName(ctx, e.lastfm.FallbackArtist, c.title)
	}
	if err != nil {
		logger.Debug("album lookup failed", "title", c.title, "mbid", mbid, "error", err)
		return r
	}
	if info == nil {
		return r
	}

	if shared.IsValidURL(info.URL) {
		r.uri = strings.TrimSpace(info.URL)
	}
	if mbid == "" && !shared.IsValidURL(r.thumbnail) && shared.IsValidURL(info.Thumbnail) {
		r.thumbnail = strings.TrimSpace(info.Thumbnail)
	}

	return r
}

// fail records a pass that did not produce a snapshot and returns err.
func (e *AlbumEngine) fail(logger *log.Logger, result *SyncResult, err error) (*SyncResult, error) {
	result.FinishedAt = e.now()
	result.Status = models.RunFailed

	if recErr := e.store.RecordRun(result.Run(err)); recErr != nil {
		logger.Warn("failed to record sync run", "error", recErr)
	}

	logger.Error("sync failed", "error", err)
	return result, err
}
