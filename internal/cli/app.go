package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sydlexius/localscene/internal/artist"
	"github.com/sydlexius/localscene/internal/config"
	"github.com/sydlexius/localscene/internal/database"
	"github.com/sydlexius/localscene/internal/event"
	"github.com/sydlexius/localscene/internal/logging"
	"github.com/sydlexius/localscene/internal/provider"
	"github.com/sydlexius/localscene/internal/provider/musicbrainz"
	"github.com/sydlexius/localscene/internal/provider/spotify"
	"github.com/sydlexius/localscene/internal/resolver"
	"github.com/sydlexius/localscene/internal/scraper"
)

// app holds the services shared by every command for one invocation.
type app struct {
	cfg      *config.Config
	logMgr   *logging.Manager
	logger   *slog.Logger
	db       *sql.DB
	store    *artist.Store
	bus      *event.Bus
	resolver *resolver.Service
	scraper  *scraper.Scraper

	// created counts artist.new events seen during this invocation.
	created atomic.Int64
}

// newApp loads configuration, opens and migrates the database, and wires
// the resolution pipeline. stderr receives log output.
func newApp(ctx context.Context, configPath, logLevel string, stderr io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logMgr, logger := logging.NewManager(cfg.LoggingManagerConfig(), stderr)
	if logLevel != "" {
		logMgr.SetLevel(logLevel)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		logMgr.Close() //nolint:errcheck,gosec
		return nil, fmt.Errorf("opening database: %w", err)
	}
	applied, err := database.MigrateVersions(ctx, db)
	if err != nil {
		db.Close()     //nolint:errcheck,gosec
		logMgr.Close() //nolint:errcheck,gosec
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("schema migrated", slog.Any("versions", applied))
	}
	logger.Debug("database ready", slog.String("path", cfg.Database.Path))

	a := &app{
		cfg:    cfg,
		logMgr: logMgr,
		logger: logger,
		db:     db,
	}

	bus := event.NewBus(logger, 256)
	bus.Subscribe(event.ArtistNew, func(event.Event) { a.created.Add(1) })
	bus.SubscribeAll(event.LogHandler(logger.With(slog.String("component", "events"))))
	go bus.Start()

	limiter := provider.NewRateLimiterMap()
	orch := provider.NewOrchestrator(
		buildSources(cfg, limiter, logger),
		provider.Options{
			Timeout:    cfg.Enrichment.AdapterTimeout,
			Sequential: cfg.Enrichment.Sequential,
		},
		logger,
	)
	a.store = artist.NewStore(db)
	a.bus = bus
	a.resolver = resolver.NewService(a.store, orch, bus, logger)
	a.scraper = scraper.New(cfg.Scraper.CalendarURL, cfg.Scraper.UserAgent, logger)
	return a, nil
}

// buildSources constructs the enrichment sources from configuration. The
// catalog is left nil when no catalog provider is selected.
func buildSources(cfg *config.Config, limiter *provider.RateLimiterMap, logger *slog.Logger) provider.Sources {
	var catalog provider.Catalog
	credentialed := false
	switch cfg.Catalog.Provider {
	case config.CatalogSpotify:
		creds := spotify.Credentials{
			ClientID:     cfg.Catalog.Spotify.ClientID,
			ClientSecret: cfg.Catalog.Spotify.ClientSecret,
		}
		credentialed = creds.Configured()
		catalog = spotify.New(creds, limiter, logger)
	case config.CatalogMusicBrainz:
		catalog = musicbrainz.NewWithBaseURL(limiter, logger, cfg.Catalog.MusicBrainz.BaseURL)
	}
	if catalog != nil && catalog.RequiresAuth() && !credentialed {
		logger.Info("catalog credentials not set; catalog lookups will be skipped",
			slog.String("catalog", catalog.Name().DisplayName()))
	}

	sources := provider.Sources{
		Social:       provider.NewSocialCheck(logger),
		VenueHistory: provider.NewVenueHistoryCheck(cfg.Venues.HistoryURLs, cfg.Scraper.UserAgent, limiter, logger),
	}
	if catalog != nil {
		sources.Catalog = provider.NewCatalogLookup(catalog, logger)
	}
	return sources
}

// Close drains pending events and releases the database and log file.
func (a *app) Close() error {
	if !a.bus.Stop(2 * time.Second) {
		a.logger.Warn("event bus did not drain before shutdown")
	}
	if n := a.bus.Dropped(); n > 0 {
		a.logger.Warn("events dropped", slog.Int64("count", n))
	}
	if n := a.created.Load(); n > 0 {
		a.logger.Info("new artists added", slog.Int64("count", n))
	}
	err := a.db.Close()
	if cerr := a.logMgr.Close(); err == nil {
		err = cerr
	}
	return err
}
