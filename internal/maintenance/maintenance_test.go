package maintenance

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/sydlexius/localscene/internal/database"
)

func setupDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "artists.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck

	ctx := context.Background()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	for _, stmt := range []string{
		`INSERT INTO artists (id, name, is_local, confidence, verification_source, last_updated)
		 VALUES (1, 'Radio Room Allstars', 1, 0.8, 'spotify,venue_history', '2026-01-01T00:00:00Z')`,
		`INSERT INTO artists (id, name, is_local, confidence, verification_source, last_updated)
		 VALUES (2, 'Touring Act', 0, 0.5, 'spotify', '2026-01-01T00:00:00Z')`,
		`INSERT INTO artist_genres (artist_id, genre, confidence, source) VALUES (1, 'rock', 0.8, 'spotify')`,
		`INSERT INTO artist_genres (artist_id, genre, confidence, source) VALUES (1, 'blues', 0.8, 'spotify')`,
		`INSERT INTO artist_venues (artist_id, venue, last_played) VALUES (1, 'Radio Room', '2026-01-02T00:00:00Z')`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("seeding: %v", err)
		}
	}
	return db, dbPath
}

func newTestService(db *sql.DB, path string) *Service {
	return NewService(db, path, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStats(t *testing.T) {
	db, dbPath := setupDB(t)
	svc := newTestService(db, dbPath)

	st, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Path != dbPath {
		t.Errorf("Path = %q, want %q", st.Path, dbPath)
	}
	if st.DBFileSize <= 0 {
		t.Error("expected positive database file size")
	}
	if st.PageCount <= 0 || st.PageSize <= 0 {
		t.Errorf("page_count=%d page_size=%d, want both positive", st.PageCount, st.PageSize)
	}
	if st.Artists != 2 || st.LocalArtists != 1 {
		t.Errorf("artists=%d local=%d, want 2 and 1", st.Artists, st.LocalArtists)
	}
	if st.GenreTags != 2 {
		t.Errorf("genre_tags = %d, want 2", st.GenreTags)
	}
	if st.VenueVisits != 1 {
		t.Errorf("venue_visits = %d, want 1", st.VenueVisits)
	}
}

func TestStatsInMemory(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close() //nolint:errcheck
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	st, err := newTestService(db, ":memory:").Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.DBFileSize != 0 || st.WALFileSize != 0 {
		t.Errorf("file sizes = %d/%d, want 0 for in-memory", st.DBFileSize, st.WALFileSize)
	}
	if st.Artists != 0 {
		t.Errorf("artists = %d, want 0", st.Artists)
	}
}

func TestOptimizeTruncatesWAL(t *testing.T) {
	db, dbPath := setupDB(t)
	svc := newTestService(db, dbPath)
	ctx := context.Background()

	if err := svc.Optimize(ctx); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	st, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.WALFileSize != 0 {
		t.Errorf("WAL size after optimize = %d, want 0", st.WALFileSize)
	}
}

func TestVacuumReclaimsFreePages(t *testing.T) {
	db, dbPath := setupDB(t)
	svc := newTestService(db, dbPath)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, `DELETE FROM artists`); err != nil {
		t.Fatalf("deleting: %v", err)
	}
	if err := svc.Vacuum(ctx); err != nil {
		t.Fatalf("Vacuum: %v", err)
	}
	st, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.FreelistCount != 0 {
		t.Errorf("freelist_count after vacuum = %d, want 0", st.FreelistCount)
	}
	if st.Artists != 0 || st.GenreTags != 0 || st.VenueVisits != 0 {
		t.Errorf("rows remain after delete: %+v", st)
	}
}
