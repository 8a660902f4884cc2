package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/fmx/internal/models"
	"github.com/desertthunder/fmx/internal/services"
	"github.com/desertthunder/fmx/internal/shared"
	"github.com/urfave/cli/v3"
)

// rawCaller is implemented by clients that can issue arbitrary API methods.
type rawCaller interface {
	Call(ctx context.Context, method string, params map[string]string) (*services.APIResponse, error)
}

func formatTrackTime(t models.Track) string {
	if t.NowPlaying {
		return "now playing"
	}
	if t.PlayedAt.IsZero() {
		return ""
	}
	return t.PlayedAt.Local().Format("2006-01-02 15:04")
}

// LastFMRecent prints the user's recent tracks as the sync pass sees them.
func (r *Runner) LastFMRecent(ctx context.Context, cmd *cli.Command) error {
	scrobbler, user, err := r.authenticatedLastFM(ctx)
	if err != nil {
		return err
	}
	if u := cmd.String("user"); u != "" {
		user = u
	}
	if user == "" {
		return fmt.Errorf("%w: --user or lastfm.user_name", shared.ErrMissingArgument)
	}

	limit := int(cmd.Int("limit"))
	if limit <= 0 {
		return fmt.Errorf("%w: --limit must be positive", shared.ErrInvalidArgument)
	}

	r.logger.Info("fetching recent tracks", "user", user, "limit", limit)
	tracks, err := scrobbler.RecentTracks(ctx, user, limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	if len(tracks) == 0 {
		r.writePlain("No recent tracks for %s\n", user)
		return nil
	}

	r.writePlainHeader(fmt.Sprintf("Recent tracks for %s", user))
	for i, t := range tracks {
		mbid := ""
		if t.AlbumMBID != "" {
			mbid = " [mbid]"
		}
		r.writePlain("%3d. %s - %s (%s)%s  %s\n", i+1, t.Artist, t.Name, t.Album, mbid, formatTrackTime(t))
	}
	return nil
}

// LastFMAlbum performs the same lookup a sync pass uses for enrichment.
func (r *Runner) LastFMAlbum(ctx context.Context, cmd *cli.Command) error {
	mbid := strings.TrimSpace(cmd.String("mbid"))
	title := strings.TrimSpace(cmd.String("title"))
	if mbid == "" && title == "" {
		return fmt.Errorf("%w: either --mbid or --title must be provided", shared.ErrMissingArgument)
	}

	scrobbler, _, err := r.authenticatedLastFM(ctx)
	if err != nil {
		return err
	}

	var info *services.AlbumInfo
	if mbid != "" {
		info, err = scrobbler.AlbumInfoByMBID(ctx, mbid)
	} else {
		artist := cmd.String("artist")
		if artist == "" {
			artist = r.cfg().LastFM.FallbackArtist
		}
		info, err = scrobbler.AlbumInfoByName(ctx, artist, title)
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(info, true)
	}

	r.writePlain("Album:     %s\n", info.Name)
	r.writePlain("Artist:    %s\n", info.Artist)
	if info.MBID != "" {
		r.writePlain("MBID:      %s\n", info.MBID)
	}
	r.writePlain("URL:       %s (valid: %t)\n", info.URL, shared.IsValidURL(info.URL))
	r.writePlain("Thumbnail: %s (valid: %t)\n", info.Thumbnail, shared.IsValidURL(info.Thumbnail))
	return nil
}

// parseParams turns repeated key=value flags into request parameters.
func parseParams(values []string) (map[string]string, error) {
	params := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: parameter %q is not key=value", shared.ErrInvalidArgument, v)
		}
		params[key] = value
	}
	return params, nil
}

// LastFMCall calls an arbitrary API method and prints the raw response.
func (r *Runner) LastFMCall(ctx context.Context, cmd *cli.Command) error {
	method := strings.TrimSpace(cmd.StringArg("method"))
	if method == "" {
		return fmt.Errorf("%w: method", shared.ErrMissingArgument)
	}

	params, err := parseParams(cmd.StringSlice("param"))
	if err != nil {
		return err
	}

	scrobbler, _, err := r.authenticatedLastFM(ctx)
	if err != nil {
		return err
	}

	caller, ok := scrobbler.(rawCaller)
	if !ok {
		return fmt.Errorf("%w: %T does not support raw calls", shared.ErrServiceUnavailable, scrobbler)
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r.logger.Info("calling Last.fm", "method", method, "params", keys)

	resp, err := caller.Call(ctx, method, params)
	if err != nil {
		return err
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}
	return nil
}
