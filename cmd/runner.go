package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/fmx/internal/repositories"
	"github.com/desertthunder/fmx/internal/services"
	"github.com/desertthunder/fmx/internal/shared"
	"github.com/desertthunder/fmx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	scrobbler  services.Scrobbler
	httpClient *http.Client
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A nil Config is loaded from ConfigPath by [Runner.Before]. Scrobbler and DB are created on first use when nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Scrobbler  services.Scrobbler
	HTTPClient *http.Client
	DB         *sql.DB
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		scrobbler:  opts.Scrobbler,
		httpClient: opts.HTTPClient,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, settingsCommand, syncCommand, albumsCommand, statusCommand, lastfmCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads configuration for every command.
//
// A missing config file is not an error: defaults and FMX_* variables apply, so `setup config` can create it.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.configPath == "" || cmd.IsSet("config") {
		r.configPath = cmd.String("config")
	}

	if r.config == nil {
		path := r.configPath
		if _, err := os.Stat(path); err == nil {
			cfg, err := shared.LoadConfig(path)
			if err != nil {
				return ctx, err
			}
			r.config = cfg
		} else {
			if cmd.IsSet("config") {
				r.logger.Warn("config file not found, using defaults", "path", path)
			}
			r.config = shared.DefaultConfig()
			shared.ApplyEnvOverrides(r.config)
		}
	}

	if level := cmd.String("log-level"); level != "" {
		r.config.Log.Level = level
	}
	if r.config.Log.File != "" {
		fileLogger, err := shared.NewFileLogger(r.config.Log.File)
		if err != nil {
			return ctx, fmt.Errorf("failed to create file logger: %w", err)
		}
		r.SetLogger(fileLogger)
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))

	if err := r.config.Validate(); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// After closes the database if a command opened it.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	return r.Close()
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the database connection.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) cfg() *shared.Config {
	if r.config == nil {
		r.config = shared.DefaultConfig()
	}
	return r.config
}

// database opens the configured database on first use and applies pending migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.cfg().Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

func (r *Runner) lastfm() services.Scrobbler {
	if r.scrobbler == nil {
		c := r.cfg().LastFM
		r.scrobbler = services.NewLastFMService(services.LastFMOpts{
			BaseURL:    c.BaseURL,
			APIKey:     c.APIKey,
			Timeout:    c.Timeout,
			HTTPClient: &http.Client{Timeout: c.Timeout, Transport: r.httpClient.Transport},
		})
	}
	return r.scrobbler
}

// authenticatedLastFM resolves stored credentials and authenticates the scrobbler.
func (r *Runner) authenticatedLastFM(ctx context.Context) (services.Scrobbler, string, error) {
	db, err := r.database()
	if err != nil {
		return nil, "", err
	}

	apiKey, user := tasks.ResolveCredentials(repositories.NewOptionRepository(db), r.cfg().LastFM)
	if apiKey == "" {
		return nil, "", fmt.Errorf("%w: set lastfm.api_key, FMX_LASTFM_API_KEY or 'fmx settings set %s'", shared.ErrMissingCredentials, repositories.KeyLastFMAPIKey)
	}

	scrobbler := r.lastfm()
	if err := scrobbler.Authenticate(ctx, map[string]string{"api_key": apiKey}); err != nil {
		return nil, "", err
	}
	return scrobbler, user, nil
}

func (r *Runner) engine() (*tasks.AlbumEngine, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}

	return tasks.NewAlbumEngine(
		r.lastfm(),
		repositories.NewSnapshotRepository(db),
		repositories.NewOptionRepository(db),
		r.cfg(),
		r.logger,
	), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// exitCode maps an error returned by a command to a process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidArgument),
		errors.Is(err, shared.ErrInvalidConfig), errors.Is(err, shared.ErrMissingConfig):
		return 2
	default:
		return 1
	}
}
