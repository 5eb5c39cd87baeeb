package artist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store persists artists, their genre tags, and venue visits. Every method
// opens and finishes its own transaction; no connection is held between calls.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates an artist store backed by db. The schema must already be
// migrated (see database.Migrate).
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// FindByName looks up an artist by exact, case-sensitive name and hydrates
// its genre tags and venue history. Returns ErrNotFound when no artist
// matches.
func (s *Store) FindByName(ctx context.Context, name string) (*Artist, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("find artist", fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	row := tx.QueryRowContext(ctx, `
		SELECT id, name, is_local, confidence, verification_source, last_updated
		FROM artists WHERE name = ?`, name)
	a, err := scanArtist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, persistErr("find artist", err)
	}

	if err := hydrate(ctx, tx, a); err != nil {
		return nil, persistErr("find artist", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, persistErr("find artist", fmt.Errorf("committing: %w", err))
	}
	return a, nil
}

// Insert writes a new artist and one row per unique genre in a single
// transaction. When the same genre appears more than once, the last write
// wins for its confidence and source. Returns ErrDuplicateName if the name
// is taken; any other failure rolls back and returns a *PersistenceError.
func (s *Store) Insert(ctx context.Context, c *Candidate) (*Artist, error) {
	now := s.now()
	sources := JoinSources(c.Sources)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("insert artist", fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		INSERT INTO artists (name, is_local, confidence, verification_source, last_updated)
		VALUES (?, ?, ?, ?, ?)`,
		c.Name, boolToInt(c.IsLocal), c.Confidence, sources, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, persistErr("insert artist", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, persistErr("insert artist", fmt.Errorf("reading artist id: %w", err))
	}

	for _, g := range c.Genres {
		if g == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO artist_genres (artist_id, genre, confidence, source)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(artist_id, genre) DO UPDATE SET
				confidence = excluded.confidence,
				source = excluded.source`,
			id, g, c.Confidence, sources,
		); err != nil {
			return nil, persistErr("insert artist", fmt.Errorf("inserting genre %q: %w", g, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, persistErr("insert artist", fmt.Errorf("committing: %w", err))
	}

	genres := uniqueGenres(c.Genres)
	tags := make([]GenreTag, 0, len(genres))
	for _, g := range genres {
		tags = append(tags, GenreTag{Genre: g, Confidence: c.Confidence, Source: sources})
	}

	return &Artist{
		ID:          id,
		Name:        c.Name,
		IsLocal:     c.IsLocal,
		Confidence:  c.Confidence,
		Genres:      genres,
		GenreTags:   tags,
		Sources:     SplitSources(sources),
		Venues:      []VenueVisit{},
		LastUpdated: now,
	}, nil
}

// RecordVisit appends a venue visit stamped with the current time. An
// unknown artistID violates the foreign key and yields a *PersistenceError.
func (s *Store) RecordVisit(ctx context.Context, artistID int64, venue string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artist_venues (artist_id, venue, last_played) VALUES (?, ?, ?)`,
		artistID, venue, s.now().Format(time.RFC3339Nano),
	)
	if err != nil {
		return persistErr("record visit", err)
	}
	return nil
}

// Visits returns every recorded visit for an artist, oldest first.
func (s *Store) Visits(ctx context.Context, artistID int64) ([]VenueVisit, error) {
	visits, err := queryVisits(ctx, s.db, artistID)
	if err != nil {
		return nil, persistErr("list visits", err)
	}
	return visits, nil
}

// List returns all artists ordered by name, with genres and visits loaded.
func (s *Store) List(ctx context.Context) ([]Artist, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistErr("list artists", fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, is_local, confidence, verification_source, last_updated
		FROM artists ORDER BY name`)
	if err != nil {
		return nil, persistErr("list artists", err)
	}

	var artists []Artist
	for rows.Next() {
		a, err := scanArtist(rows)
		if err != nil {
			rows.Close() //nolint:errcheck,gosec
			return nil, persistErr("list artists", fmt.Errorf("scanning artist row: %w", err))
		}
		artists = append(artists, *a)
	}
	if err := rows.Err(); err != nil {
		rows.Close() //nolint:errcheck,gosec
		return nil, persistErr("list artists", fmt.Errorf("iterating artist rows: %w", err))
	}
	rows.Close() //nolint:errcheck,gosec

	for i := range artists {
		if err := hydrate(ctx, tx, &artists[i]); err != nil {
			return nil, persistErr("list artists", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, persistErr("list artists", fmt.Errorf("committing: %w", err))
	}
	return artists, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// hydrate loads genre tags and venue visits into a.
func hydrate(ctx context.Context, q querier, a *Artist) error {
	rows, err := q.QueryContext(ctx, `
		SELECT genre, confidence, source FROM artist_genres
		WHERE artist_id = ? ORDER BY rowid`, a.ID)
	if err != nil {
		return fmt.Errorf("loading genres: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	a.Genres = []string{}
	a.GenreTags = []GenreTag{}
	for rows.Next() {
		var t GenreTag
		if err := rows.Scan(&t.Genre, &t.Confidence, &t.Source); err != nil {
			return fmt.Errorf("scanning genre: %w", err)
		}
		a.Genres = append(a.Genres, t.Genre)
		a.GenreTags = append(a.GenreTags, t)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating genres: %w", err)
	}
	rows.Close() //nolint:errcheck,gosec

	visits, err := queryVisits(ctx, q, a.ID)
	if err != nil {
		return err
	}
	a.Venues = visits
	return nil
}

func queryVisits(ctx context.Context, q querier, artistID int64) ([]VenueVisit, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT artist_id, venue, last_played FROM artist_venues
		WHERE artist_id = ? ORDER BY rowid`, artistID)
	if err != nil {
		return nil, fmt.Errorf("loading visits: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	visits := []VenueVisit{}
	for rows.Next() {
		var v VenueVisit
		var played string
		if err := rows.Scan(&v.ArtistID, &v.Venue, &played); err != nil {
			return nil, fmt.Errorf("scanning visit: %w", err)
		}
		v.PlayedAt = parseTime(played)
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visits: %w", err)
	}
	return visits, nil
}

// scanArtist scans an artists row into an Artist.
func scanArtist(row interface{ Scan(...any) error }) (*Artist, error) {
	var a Artist
	var isLocal int
	var sources, updated string

	if err := row.Scan(&a.ID, &a.Name, &isLocal, &a.Confidence, &sources, &updated); err != nil {
		return nil, err
	}

	a.IsLocal = isLocal == 1
	a.Sources = SplitSources(sources)
	a.LastUpdated = parseTime(updated)
	return &a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseTime parses a stored timestamp, handling both RFC3339 and SQLite
// datetime formats.
func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
