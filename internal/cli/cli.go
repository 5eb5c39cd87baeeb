// Package cli implements the localscene command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/localscene/internal/artist"
	"github.com/sydlexius/localscene/internal/backup"
	"github.com/sydlexius/localscene/internal/event"
	"github.com/sydlexius/localscene/internal/maintenance"
	"github.com/sydlexius/localscene/internal/scraper"
	"github.com/sydlexius/localscene/internal/version"
)

// scrapeResolveWorkers bounds concurrent resolutions during scrape --resolve.
const scrapeResolveWorkers = 4

// session carries the global flags and builds the app for each command.
type session struct {
	configPath string
	logLevel   string
}

// withApp wraps a command body so it runs with a fully wired app that is
// closed afterwards, whether or not the body fails.
func (s *session) withApp(fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		path := s.configPath
		if path == "" {
			path = os.Getenv("LS_CONFIG_PATH")
		}
		a, err := newApp(cmd.Context(), path, s.logLevel, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); err == nil && cerr != nil {
				err = fmt.Errorf("shutting down: %w", cerr)
			}
		}()
		return fn(cmd, args, a)
	}
}

// NewRootCmd creates the root command and all subcommands.
func NewRootCmd() *cobra.Command {
	s := &session{}

	cmd := &cobra.Command{
		Use:   "localscene",
		Short: "Resolve and enrich artists from the local live music scene",
		Long: `localscene keeps a local database of artists seen on venue calendars.
The first time a name is resolved it is enriched from a music catalog, social
presence, and local venue websites; later lookups are served from the database.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&s.configPath, "config", "", "Path to config file (default $LS_CONFIG_PATH)")
	cmd.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "Override log level: debug, info, warn, error")

	cmd.AddCommand(
		newResolveCmd(s),
		newShowCmd(s),
		newListCmd(s),
		newScrapeCmd(s),
		newMigrateCmd(s),
		newBackupCmd(s),
		newMaintainCmd(s),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command with ctx and returns the process exit code.
func Execute(ctx context.Context) int {
	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
		return 1
	}
	return 0
}

func newResolveCmd(s *session) *cobra.Command {
	var venue, format string
	cmd := &cobra.Command{
		Use:   "resolve NAME",
		Short: "Resolve an artist name, enriching it on first sight",
		Long: `Resolve returns the stored record for NAME, creating it from the
enrichment sources if it has never been seen. With --venue, a visit to that
venue is recorded every time.`,
		Args: cobra.MinimumNArgs(1),
		RunE: s.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			f, err := parseOutputFormat(format)
			if err != nil {
				return err
			}
			rec, err := a.resolver.Resolve(cmd.Context(), strings.Join(args, " "), venue)
			if err != nil {
				return fmt.Errorf("resolving artist: %w", err)
			}
			return writeArtist(cmd.OutOrStdout(), rec, f)
		}),
	}
	cmd.Flags().StringVar(&venue, "venue", "", "Record a visit at this venue")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func newShowCmd(s *session) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show NAME",
		Short: "Show a stored artist without enriching",
		Args:  cobra.MinimumNArgs(1),
		RunE: s.withApp(func(cmd *cobra.Command, args []string, a *app) error {
			f, err := parseOutputFormat(format)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(strings.Join(args, " "))
			rec, err := a.store.FindByName(cmd.Context(), name)
			if errors.Is(err, artist.ErrNotFound) {
				return fmt.Errorf("artist %q not found", name)
			}
			if err != nil {
				return err
			}
			return writeArtist(cmd.OutOrStdout(), rec, f)
		}),
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func newListCmd(s *session) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all known artists",
		Args:  cobra.NoArgs,
		RunE: s.withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			f, err := parseOutputFormat(format)
			if err != nil {
				return err
			}
			artists, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			return writeArtists(cmd.OutOrStdout(), artists, f)
		}),
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func newScrapeCmd(s *session) *cobra.Command {
	var exportPath, format string
	var resolve, details bool
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape the venue calendar and export upcoming shows",
		Long: `Scrape downloads the configured venue calendar, sorts the shows by
date, and writes them as CSV or JSON to stdout or to --export. With
--resolve, every band on the calendar is resolved and credited with a visit
to the venue. With --details, each show's own page is fetched for its exact
start time, end time, and price.`,
		Args: cobra.NoArgs,
		RunE: s.withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			f, err := scraper.ParseFormat(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			events, err := a.scraper.FetchEvents(ctx)
			if err != nil {
				return fmt.Errorf("scraping calendar: %w", err)
			}
			a.bus.Publish(event.Event{Type: event.ScrapeCompleted, Data: map[string]any{
				"venue":  a.scraper.Venue(),
				"events": len(events),
			}})

			if details {
				if err := a.scraper.AddDetails(ctx, events); err != nil {
					return fmt.Errorf("fetching event details: %w", err)
				}
			}

			if resolve {
				if err := resolveEvents(ctx, a, events); err != nil {
					return err
				}
			}

			now := time.Now()
			if exportPath == "" {
				return scraper.Export(cmd.OutOrStdout(), events, f, now)
			}
			if err := scraper.ExportFile(exportPath, events, f, now); err != nil {
				return fmt.Errorf("exporting events: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d event(s) to %s\n", len(events), exportPath)
			return nil
		}),
	}
	cmd.Flags().StringVar(&exportPath, "export", "", "Write the table to this file instead of stdout")
	cmd.Flags().StringVar(&format, "format", "csv", "Export format: csv or json")
	cmd.Flags().BoolVar(&resolve, "resolve", false, "Resolve every band and record the venue visit")
	cmd.Flags().BoolVar(&details, "details", false, "Fetch each event page for start, end, and price")
	return cmd
}

// resolveEvents resolves each named band on the calendar. The first store
// failure cancels the rest.
func resolveEvents(ctx context.Context, a *app, events []scraper.Event) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scrapeResolveWorkers)

	var resolved atomic.Int32
	for _, e := range events {
		if e.BandName == "" || e.BandName == scraper.TBA {
			continue
		}
		g.Go(func() error {
			if _, err := a.resolver.Resolve(gctx, e.BandName, e.Venue); err != nil {
				return fmt.Errorf("resolving %q: %w", e.BandName, err)
			}
			resolved.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("calendar bands resolved", slog.Int("artists", int(resolved.Load())))
	return nil
}

func newMigrateCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: s.withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			// Migrations already ran while opening the database.
			fmt.Fprintf(cmd.OutOrStdout(), "Database ready at %s\n", a.cfg.Database.Path)
			return nil
		}),
	}
}

func newBackupCmd(s *session) *cobra.Command {
	var dir, format string
	var keep int
	var list bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the artist database and prune old snapshots",
		Long: `Backup writes a consistent copy of the database to the backup directory
and then removes snapshots beyond the retention count. With --list, the
existing snapshots are shown and nothing is written.`,
		Args: cobra.NoArgs,
		RunE: s.withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			f, err := parseOutputFormat(format)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = a.cfg.BackupDir()
			}
			if !cmd.Flags().Changed("keep") {
				keep = a.cfg.Backup.Keep
			}
			svc := backup.NewService(a.db, dir, a.logger)

			if list {
				snaps, err := svc.List()
				if err != nil {
					return err
				}
				return writeSnapshots(cmd.OutOrStdout(), snaps, f)
			}

			snap, err := svc.Backup(cmd.Context())
			if err != nil {
				return fmt.Errorf("backing up database: %w", err)
			}
			maxAge := time.Duration(a.cfg.Backup.MaxAgeDays) * 24 * time.Hour
			pruned, err := svc.Prune(keep, maxAge)
			if err != nil {
				return fmt.Errorf("pruning snapshots: %w", err)
			}
			return writeBackupResult(cmd.OutOrStdout(), snap, pruned, f)
		}),
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Snapshot directory (default from config)")
	cmd.Flags().IntVar(&keep, "keep", 7, "Number of snapshots to retain")
	cmd.Flags().BoolVar(&list, "list", false, "List existing snapshots instead of taking one")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func newMaintainCmd(s *session) *cobra.Command {
	var format string
	var vacuum, statsOnly bool
	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Optimize the database and report its size",
		Args:  cobra.NoArgs,
		RunE: s.withApp(func(cmd *cobra.Command, _ []string, a *app) error {
			f, err := parseOutputFormat(format)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			svc := maintenance.NewService(a.db, a.cfg.Database.Path, a.logger)

			if !statsOnly {
				if err := svc.Optimize(ctx); err != nil {
					return err
				}
				if vacuum {
					if err := svc.Vacuum(ctx); err != nil {
						return err
					}
				}
			}
			st, err := svc.Stats(ctx)
			if err != nil {
				return fmt.Errorf("reading database stats: %w", err)
			}
			return writeStats(cmd.OutOrStdout(), st, f)
		}),
	}
	cmd.Flags().BoolVar(&vacuum, "vacuum", false, "Also rebuild the database file")
	cmd.Flags().BoolVar(&statsOnly, "stats", false, "Only report, without optimizing")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "localscene %s (%s)\n", version.Version, version.Commit)
		},
	}
}
