package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	DefaultAlbumCap       = 8
	DefaultPageLimit      = 200
	DefaultFallbackArtist = "Various Artists"
	DefaultLastFMBaseURL  = "https://ws.audioscrobbler.com/2.0/"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	LastFM   LastFMConfig   `toml:"lastfm"`
	Sync     SyncConfig     `toml:"sync"`
	Database DatabaseConfig `toml:"database"`
	Log      LogConfig      `toml:"log"`
}

// LastFMConfig contains Last.fm API credentials and request settings.
type LastFMConfig struct {
	APIKey         string        `toml:"api_key"`
	UserName       string        `toml:"user_name"`
	BaseURL        string        `toml:"base_url"`
	PageLimit      int           `toml:"page_limit"`
	FallbackArtist string        `toml:"fallback_artist"`
	Timeout        time.Duration `toml:"timeout"`
}

// SyncConfig controls a sync pass and the scheduler that repeats it.
type SyncConfig struct {
	AlbumCap        int           `toml:"album_cap"`
	Interval        time.Duration `toml:"interval"`
	Concurrency     int           `toml:"concurrency"`
	RateLimit       float64       `toml:"rate_limit"`
	PreserveOnEmpty bool          `toml:"preserve_on_empty"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values and FMX_* environment variables are applied last.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	config.ApplyDefaults()
	ApplyEnvOverrides(config)
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyDefaults fills zero values that would make a sync pass misbehave.
func (c *Config) ApplyDefaults() {
	if c.LastFM.BaseURL == "" {
		c.LastFM.BaseURL = DefaultLastFMBaseURL
	}
	if c.LastFM.PageLimit <= 0 {
		c.LastFM.PageLimit = DefaultPageLimit
	}
	if c.LastFM.FallbackArtist == "" {
		c.LastFM.FallbackArtist = DefaultFallbackArtist
	}
	if c.LastFM.Timeout <= 0 {
		c.LastFM.Timeout = 15 * time.Second
	}
	if c.Sync.AlbumCap <= 0 {
		c.Sync.AlbumCap = DefaultAlbumCap
	}
	if c.Sync.Interval <= 0 {
		c.Sync.Interval = 24 * time.Hour
	}
	if c.Sync.Concurrency <= 0 {
		c.Sync.Concurrency = 1
	}
	if c.Sync.RateLimit <= 0 {
		c.Sync.RateLimit = 5
	}
	if c.Database.Path == "" {
		c.Database.Path = "./fmx.db"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ApplyEnvOverrides applies FMX_* environment variable overrides to the config.
func ApplyEnvOverrides(c *Config) {
	if v := os.Getenv("FMX_LASTFM_API_KEY"); v != "" {
		c.LastFM.APIKey = v
	}
	if v := os.Getenv("FMX_LASTFM_USER_NAME"); v != "" {
		c.LastFM.UserName = v
	}
	if v := os.Getenv("FMX_LASTFM_BASE_URL"); v != "" {
		c.LastFM.BaseURL = v
	}
	if v := os.Getenv("FMX_SYNC_ALBUM_CAP"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i > 0 {
			c.Sync.AlbumCap = i
		}
	}
	if v := os.Getenv("FMX_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Sync.Interval = d
		}
	}
	if v := os.Getenv("FMX_DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("FMX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate reports configuration that cannot drive a sync pass.
//
// Missing credentials are not reported here since they may live in the options store.
func (c *Config) Validate() error {
	if !IsValidURL(c.LastFM.BaseURL) {
		return fmt.Errorf("%w: lastfm.base_url %q is not an absolute URL", ErrInvalidConfig, c.LastFM.BaseURL)
	}
	if c.Sync.AlbumCap <= 0 {
		return fmt.Errorf("%w: sync.album_cap must be positive", ErrInvalidConfig)
	}
	if c.LastFM.PageLimit <= 0 {
		return fmt.Errorf("%w: lastfm.page_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
