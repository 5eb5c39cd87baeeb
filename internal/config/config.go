package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/localscene/internal/logging"
	"github.com/sydlexius/localscene/internal/provider"
)

// Catalog backends.
const (
	CatalogSpotify     = "spotify"
	CatalogMusicBrainz = "musicbrainz"
	CatalogNone        = "none"
)

// DefaultBrowserUserAgent is sent to venue sites that reject bot agents.
const DefaultBrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Config holds all application configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Venues     VenuesConfig     `yaml:"venues"`
	Scraper    ScraperConfig    `yaml:"scraper"`
	Backup     BackupConfig     `yaml:"backup"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level          string `yaml:"level"`
	Format         string `yaml:"format"`
	FilePath       string `yaml:"file_path"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxFiles   int    `yaml:"file_max_files"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// CatalogConfig selects and configures the music catalog backend.
type CatalogConfig struct {
	Provider    string            `yaml:"provider"`
	Spotify     SpotifyConfig     `yaml:"spotify"`
	MusicBrainz MusicBrainzConfig `yaml:"musicbrainz"`
}

// SpotifyConfig holds Spotify client credentials.
type SpotifyConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// MusicBrainzConfig holds MusicBrainz settings.
type MusicBrainzConfig struct {
	BaseURL string `yaml:"base_url"`
}

// EnrichmentConfig controls how sources are consulted for a new artist.
type EnrichmentConfig struct {
	AdapterTimeout time.Duration `yaml:"adapter_timeout"`
	Sequential     bool          `yaml:"sequential"`
}

// VenuesConfig lists the local venue pages searched for artist mentions.
type VenuesConfig struct {
	HistoryURLs []string `yaml:"history_urls"`
}

// ScraperConfig holds calendar scraper settings.
type ScraperConfig struct {
	CalendarURL string `yaml:"calendar_url"`
	UserAgent   string `yaml:"user_agent"`
}

// BackupConfig controls database snapshots. An empty Dir places snapshots in
// a "backups" directory next to the database.
type BackupConfig struct {
	Dir        string `yaml:"dir"`
	Keep       int    `yaml:"keep"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// BackupDir resolves the snapshot directory.
func (c *Config) BackupDir() string {
	if c.Backup.Dir != "" {
		return c.Backup.Dir
	}
	return filepath.Join(filepath.Dir(c.Database.Path), "backups")
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "artists.db",
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			FileMaxSizeMB:  20,
			FileMaxFiles:   3,
			FileMaxAgeDays: 30,
		},
		Catalog: CatalogConfig{
			Provider: CatalogSpotify,
			MusicBrainz: MusicBrainzConfig{
				BaseURL: "https://musicbrainz.org/ws/2",
			},
		},
		Enrichment: EnrichmentConfig{
			AdapterTimeout: 5 * time.Second,
		},
		Venues: VenuesConfig{
			HistoryURLs: append([]string(nil), provider.DefaultVenueSites...),
		},
		Scraper: ScraperConfig{
			CalendarURL: "https://docstavernsc.com/calendar/",
			UserAgent:   DefaultBrowserUserAgent,
		},
		Backup: BackupConfig{
			Keep: 7,
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoggingManagerConfig converts the logging section for logging.NewManager.
func (c *Config) LoggingManagerConfig() logging.Config {
	return logging.Config{
		Level:          c.Logging.Level,
		Format:         c.Logging.Format,
		FilePath:       c.Logging.FilePath,
		FileMaxSizeMB:  c.Logging.FileMaxSizeMB,
		FileMaxFiles:   c.Logging.FileMaxFiles,
		FileMaxAgeDays: c.Logging.FileMaxAgeDays,
	}
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() error {
	if v := os.Getenv("LS_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("LS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LS_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("LS_LOG_FILE"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("LS_CATALOG_PROVIDER"); v != "" {
		c.Catalog.Provider = v
	}
	if v := os.Getenv("LS_SPOTIFY_CLIENT_ID"); v != "" {
		c.Catalog.Spotify.ClientID = v
	}
	if v := os.Getenv("LS_SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Catalog.Spotify.ClientSecret = v
	}
	// Spotipy-style variables are honored when nothing else set credentials.
	if c.Catalog.Spotify.ClientID == "" {
		c.Catalog.Spotify.ClientID = os.Getenv("SPOTIPY_CLIENT_ID")
	}
	if c.Catalog.Spotify.ClientSecret == "" {
		c.Catalog.Spotify.ClientSecret = os.Getenv("SPOTIPY_CLIENT_SECRET")
	}
	if v := os.Getenv("LS_MUSICBRAINZ_URL"); v != "" {
		c.Catalog.MusicBrainz.BaseURL = v
	}
	if v := os.Getenv("LS_ADAPTER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LS_ADAPTER_TIMEOUT: %w", err)
		}
		c.Enrichment.AdapterTimeout = d
	}
	if v := os.Getenv("LS_ENRICHMENT_SEQUENTIAL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LS_ENRICHMENT_SEQUENTIAL: %w", err)
		}
		c.Enrichment.Sequential = b
	}
	if v, ok := os.LookupEnv("LS_VENUE_URLS"); ok {
		c.Venues.HistoryURLs = splitList(v)
	}
	if v := os.Getenv("LS_CALENDAR_URL"); v != "" {
		c.Scraper.CalendarURL = v
	}
	if v := os.Getenv("LS_USER_AGENT"); v != "" {
		c.Scraper.UserAgent = v
	}
	if v := os.Getenv("LS_BACKUP_DIR"); v != "" {
		c.Backup.Dir = v
	}
	if v := os.Getenv("LS_BACKUP_KEEP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LS_BACKUP_KEEP: %w", err)
		}
		c.Backup.Keep = n
	}
	return nil
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}

	c.Catalog.Provider = strings.ToLower(strings.TrimSpace(c.Catalog.Provider))
	switch c.Catalog.Provider {
	case CatalogSpotify, CatalogNone:
	case CatalogMusicBrainz:
		if err := checkURL(c.Catalog.MusicBrainz.BaseURL); err != nil {
			return fmt.Errorf("catalog.musicbrainz.base_url: %w", err)
		}
	default:
		return fmt.Errorf("invalid catalog provider: %q", c.Catalog.Provider)
	}

	if c.Enrichment.AdapterTimeout <= 0 {
		return fmt.Errorf("enrichment.adapter_timeout must be positive, got %s", c.Enrichment.AdapterTimeout)
	}

	for _, u := range c.Venues.HistoryURLs {
		if err := checkURL(u); err != nil {
			return fmt.Errorf("venues.history_urls: %w", err)
		}
	}
	if err := checkURL(c.Scraper.CalendarURL); err != nil {
		return fmt.Errorf("scraper.calendar_url: %w", err)
	}
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = DefaultBrowserUserAgent
	}
	if c.Backup.Keep < 1 {
		return fmt.Errorf("backup.keep must be at least 1, got %d", c.Backup.Keep)
	}
	if c.Backup.MaxAgeDays < 0 {
		return fmt.Errorf("backup.max_age_days must not be negative, got %d", c.Backup.MaxAgeDays)
	}
	return nil
}

// checkURL requires an absolute http(s) URL.
func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%q is not an absolute http(s) URL", raw)
	}
	return nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
