package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/fmx/internal/models"
	"github.com/desertthunder/fmx/internal/shared"
	tu "github.com/desertthunder/fmx/internal/testing"
)

const testThumb = "https://lastfm.freetls.fastly.net/i/u/174s/%s.png"

func recentTracksJSON(albums ...string) string {
	nodes := make([]string, 0, len(albums))
	for i, album := range albums {
		nodes = append(nodes, fmt.Sprintf(`{
			"name": "Track %d",
			"artist": {"#text": "Artist %d", "mbid": ""},
			"album": {"#text": %q, "mbid": ""},
			"image": [
				{"size": "small", "#text": ""},
				{"size": "medium", "#text": ""},
				{"size": "large", "#text": %q}
			],
			"date": {"uts": "1700000000"}
		}`, i, i, album, fmt.Sprintf(testThumb, fmt.Sprint(i))))
	}
	return fmt.Sprintf(`{"recenttracks": {"track": [%s], "@attr": {"user": "rj"}}}`, strings.Join(nodes, ","))
}

// fakeLastFM serves user.getrecenttracks with the given albums and album.getinfo for any title.
type fakeLastFM struct {
	albums   []string
	requests atomic.Int64

	mu      sync.Mutex
	apiKeys []string
	feed    func(w http.ResponseWriter)
}

func (f *fakeLastFM) setFeed(feed func(w http.ResponseWriter)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feed = feed
}

func (f *fakeLastFM) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.apiKeys...)
}

func (f *fakeLastFM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	q := r.URL.Query()

	f.mu.Lock()
	f.apiKeys = append(f.apiKeys, q.Get("api_key"))
	feed := f.feed
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch q.Get("method") {
	case "user.getrecenttracks":
		if feed != nil {
			feed(w)
			return
		}
		io.WriteString(w, recentTracksJSON(f.albums...))
	case "album.getinfo":
		slug := strings.ReplaceAll(q.Get("album"), " ", "+")
		fmt.Fprintf(w, `{"album": {"name": %q, "artist": %q, "url": "https://www.last.fm/music/%s", "image": []}}`,
			q.Get("album"), q.Get("artist"), slug)
	default:
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": 3, "message": "Invalid Method - No method with that name in this package"}`)
	}
}

type testApp struct {
	runner *Runner
	output *bytes.Buffer
	lastfm *fakeLastFM
	dir    string
}

func newTestApp(t *testing.T, albums ...string) *testApp {
	t.Helper()

	fake := &fakeLastFM{albums: albums}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.LastFM.BaseURL = server.URL
	config.LastFM.APIKey = "config-key"
	config.LastFM.UserName = "rj"
	config.Sync.RateLimit = 1000
	config.Database.Path = filepath.Join(dir, "fmx.db")

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: filepath.Join(dir, "config.toml"),
		Logger:     shared.NewLogger(io.Discard),
		Output:     output,
	})
	t.Cleanup(func() { runner.Close() })

	return &testApp{runner: runner, output: output, lastfm: fake, dir: dir}
}

// run executes args against a fresh command tree and returns what was written to output.
func (a *testApp) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a.output.Reset()
	err := newApp(a.runner).Run(context.Background(), append([]string{"fmx"}, args...))
	return a.output.String(), err
}

func TestSettingsCommands(t *testing.T) {
	t.Run("set then get", func(t *testing.T) {
		app := newTestApp(t)

		if _, err := app.run(t, "settings", "set", "lastfm_user_name", "someone"); err != nil {
			t.Fatalf("set failed: %v", err)
		}

		out, err := app.run(t, "settings", "get", "lastfm_user_name")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if strings.TrimSpace(out) != "someone" {
			t.Errorf("expected stored value, got %q", out)
		}
	})

	t.Run("list masks the api key", func(t *testing.T) {
		app := newTestApp(t)
		if _, err := app.run(t, "settings", "set", "lastfm_api_key", "abcdef123456"); err != nil {
			t.Fatalf("set failed: %v", err)
		}

		out, err := app.run(t, "settings", "list")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if strings.Contains(out, "abcdef123456") {
			t.Error("expected api key to be masked")
		}
		if !strings.Contains(out, "********3456") {
			t.Errorf("expected masked key in output, got %q", out)
		}
	})

	t.Run("list with nothing stored", func(t *testing.T) {
		app := newTestApp(t)
		out, err := app.run(t, "settings", "list")
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if !strings.Contains(out, "No settings stored") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("unknown key is rejected", func(t *testing.T) {
		app := newTestApp(t)
		_, err := app.run(t, "settings", "set", "recent_albums", "[]")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("get missing key", func(t *testing.T) {
		app := newTestApp(t)
		_, err := app.run(t, "settings", "get", "lastfm_api_key")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unset removes the value", func(t *testing.T) {
		app := newTestApp(t)
		app.run(t, "settings", "set", "lastfm_user_name", "someone")

		if _, err := app.run(t, "settings", "unset", "lastfm_user_name"); err != nil {
			t.Fatalf("unset failed: %v", err)
		}
		if _, err := app.run(t, "settings", "get", "lastfm_user_name"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after unset, got %v", err)
		}
	})

	t.Run("missing value", func(t *testing.T) {
		app := newTestApp(t)
		_, err := app.run(t, "settings", "set", "lastfm_user_name")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestSyncCommands(t *testing.T) {
	t.Run("run saves the snapshot", func(t *testing.T) {
		app := newTestApp(t, "Abbey Road", "abbey   road", "Kid A")

		out, err := app.run(t, "sync", "run")
		if err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if !strings.Contains(out, "Sync Complete!") {
			t.Errorf("expected summary, got %q", out)
		}
		if !strings.Contains(out, "Albums: 2") {
			t.Errorf("expected two albums, got %q", out)
		}

		out, err = app.run(t, "albums", "--format", "json")
		if err != nil {
			t.Fatalf("albums failed: %v", err)
		}

		var albums []models.Album
		if err := json.Unmarshal([]byte(out), &albums); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if len(albums) != 2 || albums[0].Title != "Abbey Road" || albums[1].Title != "Kid A" {
			t.Fatalf("unexpected albums %+v", albums)
		}
		if albums[0].URI != "https://www.last.fm/music/Abbey+Road" {
			t.Errorf("expected fallback lookup URI, got %q", albums[0].URI)
		}
		if albums[0].Thumbnail != fmt.Sprintf(testThumb, "0") {
			t.Errorf("expected track thumbnail, got %q", albums[0].Thumbnail)
		}
	})

	t.Run("run with json output", func(t *testing.T) {
		app := newTestApp(t, "Blue")

		out, err := app.run(t, "sync", "run", "--json")
		if err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		var result syncRunOutput
		if err := json.Unmarshal([]byte(out), &result); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if result.Status != models.RunSaved || !result.Saved {
			t.Errorf("expected saved run, got %+v", result)
		}
		if result.TracksSeen != 1 || len(result.Albums) != 1 {
			t.Errorf("unexpected counts %+v", result)
		}
	})

	t.Run("stored api key wins over config", func(t *testing.T) {
		app := newTestApp(t, "Blue")
		app.run(t, "settings", "set", "lastfm_api_key", "stored-key")

		if _, err := app.run(t, "sync", "run", "--quiet"); err != nil {
			t.Fatalf("sync failed: %v", err)
		}

		for _, key := range app.lastfm.keys() {
			if key != "stored-key" {
				t.Fatalf("expected stored key on every request, got %q", key)
			}
		}
	})

	t.Run("feed error keeps the previous snapshot", func(t *testing.T) {
		app := newTestApp(t, "Blue")
		if _, err := app.run(t, "sync", "run", "--quiet"); err != nil {
			t.Fatalf("first sync failed: %v", err)
		}

		app.lastfm.setFeed(func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, `{"error": 16, "message": "There was a temporary error processing your request"}`)
		})

		_, err := app.run(t, "sync", "run", "--quiet")
		if !errors.Is(err, shared.ErrFeedUnavailable) {
			t.Fatalf("expected ErrFeedUnavailable, got %v", err)
		}

		out, err := app.run(t, "albums", "--format", "text")
		if err != nil {
			t.Fatalf("albums failed: %v", err)
		}
		if !strings.Contains(out, "Blue") {
			t.Errorf("expected previous snapshot, got %q", out)
		}
	})

	t.Run("malformed feed", func(t *testing.T) {
		app := newTestApp(t)
		app.lastfm.setFeed(func(w http.ResponseWriter) {
			io.WriteString(w, `{"recenttracks": {"track": {"name": "single"}}}`)
		})

		_, err := app.run(t, "sync", "run", "--quiet")
		if !errors.Is(err, shared.ErrMalformedPayload) {
			t.Errorf("expected ErrMalformedPayload, got %v", err)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		app := newTestApp(t, "Blue")
		app.runner.config.LastFM.APIKey = ""

		_, err := app.run(t, "sync", "run", "--quiet")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if app.lastfm.requests.Load() != 0 {
			t.Error("expected no requests without an api key")
		}
	})

	t.Run("status lists runs", func(t *testing.T) {
		app := newTestApp(t, "Blue")
		app.run(t, "sync", "run", "--quiet")

		out, err := app.run(t, "status", "--json")
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}

		var runs []models.SyncRun
		if err := json.Unmarshal([]byte(out), &runs); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if len(runs) != 1 || runs[0].Status != models.RunSaved || runs[0].Albums != 1 {
			t.Errorf("unexpected runs %+v", runs)
		}
	})

	t.Run("status with no runs", func(t *testing.T) {
		app := newTestApp(t)
		out, err := app.run(t, "status")
		if err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(out, "No sync runs recorded") {
			t.Errorf("unexpected output %q", out)
		}
	})
}

func TestAlbumsCommand(t *testing.T) {
	t.Run("empty snapshot renders heading only", func(t *testing.T) {
		app := newTestApp(t)
		out, err := app.run(t, "albums", "--format", "html", "--heading", "Listening")
		if err != nil {
			t.Fatalf("albums failed: %v", err)
		}
		if !strings.Contains(out, "Listening") {
			t.Errorf("expected heading, got %q", out)
		}
		if strings.Contains(out, "<li>") {
			t.Errorf("expected no list items, got %q", out)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		app := newTestApp(t)
		_, err := app.run(t, "albums", "--format", "yaml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("writes to a file", func(t *testing.T) {
		app := newTestApp(t, "Blue")
		app.run(t, "sync", "run", "--quiet")

		path := filepath.Join(app.dir, "albums.html")
		if _, err := app.run(t, "albums", "--format", "html", "--output", path); err != nil {
			t.Fatalf("albums failed: %v", err)
		}

		content := tu.MustReadFile(t, path)
		if !strings.Contains(content, `class="fmx-recent-albums"`) || !strings.Contains(content, `alt="Blue"`) {
			t.Errorf("unexpected widget %q", content)
		}
	})

	t.Run("export directory", func(t *testing.T) {
		app := newTestApp(t, "Blue")
		app.run(t, "sync", "run", "--quiet")

		dir := filepath.Join(app.dir, "export")
		out, err := app.run(t, "albums", "--export-dir", dir)
		if err != nil {
			t.Fatalf("albums failed: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "README.md"))
		if !strings.Contains(out, "Exported 1 albums") {
			t.Errorf("unexpected output %q", out)
		}
	})
}

func TestLastFMCommands(t *testing.T) {
	t.Run("recent", func(t *testing.T) {
		app := newTestApp(t, "Blue", "Hejira")
		out, err := app.run(t, "lastfm", "recent", "--limit", "2")
		if err != nil {
			t.Fatalf("recent failed: %v", err)
		}
		if !strings.Contains(out, "Artist 0 - Track 0 (Blue)") || !strings.Contains(out, "(Hejira)") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("album by title uses the fallback artist", func(t *testing.T) {
		app := newTestApp(t)
		out, err := app.run(t, "lastfm", "album", "--title", "Blue")
		if err != nil {
			t.Fatalf("album failed: %v", err)
		}
		if !strings.Contains(out, "Artist:    Various Artists") {
			t.Errorf("expected fallback artist, got %q", out)
		}
		if !strings.Contains(out, "(valid: true)") {
			t.Errorf("expected valid URL, got %q", out)
		}
	})

	t.Run("album without mbid or title", func(t *testing.T) {
		app := newTestApp(t)
		_, err := app.run(t, "lastfm", "album")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("call prints the raw body", func(t *testing.T) {
		app := newTestApp(t, "Blue")
		out, err := app.run(t, "lastfm", "call", "user.getrecenttracks", "--param", "user=rj")
		if err != nil {
			t.Fatalf("call failed: %v", err)
		}
		if !strings.Contains(out, `"recenttracks"`) {
			t.Errorf("expected raw payload, got %q", out)
		}
	})

	t.Run("call reports error status", func(t *testing.T) {
		app := newTestApp(t)
		out, err := app.run(t, "lastfm", "call", "nope.nothing")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(out, "Invalid Method") {
			t.Errorf("expected body to be printed, got %q", out)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("database", func(t *testing.T) {
		app := newTestApp(t)
		if _, err := app.run(t, "setup", "database"); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		tu.AssertFileExists(t, app.runner.config.Database.Path)
	})

	t.Run("config", func(t *testing.T) {
		app := newTestApp(t)
		path := filepath.Join(app.dir, "new.toml")

		if _, err := app.run(t, "--config", path, "setup", "config"); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)

		if _, err := app.run(t, "--config", path, "setup", "config"); err == nil {
			t.Error("expected an error when the file exists")
		}
		if _, err := app.run(t, "--config", path, "setup", "config", "--force"); err != nil {
			t.Errorf("expected --force to overwrite, got %v", err)
		}
	})

	t.Run("config at the default path", func(t *testing.T) {
		app := newTestApp(t)
		app.runner.configPath = ""

		wd := tu.MustGetwd(t)
		tu.MustChdir(t, app.dir)
		t.Cleanup(func() { tu.MustChdir(t, wd) })

		if _, err := app.run(t, "setup", "config"); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(app.dir, "config.toml"))
	})

	t.Run("config without a loaded configuration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "fresh.toml")
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: output})

		err := newApp(runner).Run(context.Background(), []string{"fmx", "--config", path, "setup", "config"})
		if err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), "Wrote "+path) {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("rollback", func(t *testing.T) {
		app := newTestApp(t)
		if _, err := app.run(t, "setup", "rollback"); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
	})
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"user=rj", "limit=5", "empty="})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if params["user"] != "rj" || params["limit"] != "5" || params["empty"] != "" {
		t.Errorf("unexpected params %v", params)
	}

	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parseParams([]string{bad}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for %q, got %v", bad, err)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":           "",
		"abc":        "***",
		"abcd":       "****",
		"abcdef1234": "******1234",
	}
	for in, want := range tests {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
