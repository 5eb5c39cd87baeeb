// Package maintenance reports on and tunes the SQLite artist database.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
)

// Stats describes the database file and its contents.
type Stats struct {
	Path          string `json:"path"`
	DBFileSize    int64  `json:"db_file_size"`
	WALFileSize   int64  `json:"wal_file_size"`
	PageCount     int64  `json:"page_count"`
	PageSize      int64  `json:"page_size"`
	FreelistCount int64  `json:"freelist_count"`
	Artists       int64  `json:"artists"`
	LocalArtists  int64  `json:"local_artists"`
	GenreTags     int64  `json:"genre_tags"`
	VenueVisits   int64  `json:"venue_visits"`
}

// Service runs maintenance against db, which lives at dbPath.
type Service struct {
	db     *sql.DB
	dbPath string
	logger *slog.Logger
}

// NewService creates a maintenance service.
func NewService(db *sql.DB, dbPath string, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		dbPath: dbPath,
		logger: logger.With(slog.String("component", "maintenance")),
	}
}

// Stats gathers file sizes, page counts, and row counts. File sizes are zero
// for an in-memory database or when no WAL file exists.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Path: s.dbPath}

	if fi, err := os.Stat(s.dbPath); err == nil {
		st.DBFileSize = fi.Size()
	}
	if fi, err := os.Stat(s.dbPath + "-wal"); err == nil {
		st.WALFileSize = fi.Size()
	}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"PRAGMA page_count", &st.PageCount},
		{"PRAGMA page_size", &st.PageSize},
		{"PRAGMA freelist_count", &st.FreelistCount},
		{"SELECT COUNT(*) FROM artists", &st.Artists},
		{"SELECT COUNT(*) FROM artists WHERE is_local = 1", &st.LocalArtists},
		{"SELECT COUNT(*) FROM artist_genres", &st.GenreTags},
		{"SELECT COUNT(*) FROM artist_venues", &st.VenueVisits},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("%s: %w", c.query, err)
		}
	}
	return st, nil
}

// Optimize runs PRAGMA optimize and then truncates the WAL.
func (s *Service) Optimize(ctx context.Context) error {
	s.logger.Info("running PRAGMA optimize")
	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		return fmt.Errorf("PRAGMA optimize: %w", err)
	}

	s.logger.Info("running WAL checkpoint")
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("WAL checkpoint: %w", err)
	}
	return nil
}

// Vacuum rebuilds the database file, returning free pages to the filesystem.
func (s *Service) Vacuum(ctx context.Context) error {
	s.logger.Info("running VACUUM")
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM: %w", err)
	}
	return nil
}
