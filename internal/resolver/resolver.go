// Package resolver turns a raw artist name into a persisted, enriched artist
// record, consulting external sources only the first time a name is seen.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/localscene/internal/artist"
	"github.com/sydlexius/localscene/internal/event"
)

// maxInsertAttempts bounds how often a lost insert race is retried.
const maxInsertAttempts = 3

// ErrEmptyName is returned when the name is empty after trimming.
var ErrEmptyName = errors.New("artist name is empty")

// Store is the persistence the resolver needs.
type Store interface {
	FindByName(ctx context.Context, name string) (*artist.Artist, error)
	Insert(ctx context.Context, c *artist.Candidate) (*artist.Artist, error)
	RecordVisit(ctx context.Context, artistID int64, venue string) error
}

// Merger enriches a name into an unsaved candidate. It never fails; sources
// that cannot answer simply contribute nothing.
type Merger interface {
	Merge(ctx context.Context, name string) *artist.Candidate
}

// Service resolves artist names.
type Service struct {
	store  Store
	merger Merger
	bus    event.Publisher
	logger *slog.Logger
}

// NewService creates a resolution service. bus may be nil.
func NewService(store Store, merger Merger, bus event.Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		merger: merger,
		bus:    bus,
		logger: logger.With(slog.String("component", "resolver")),
	}
}

// Resolve returns the stored record for name, creating and enriching it on
// first sight. When venue is non-empty a visit is appended on every call,
// and the returned record includes it.
//
// Known names are never re-enriched. If another caller inserts the same
// name concurrently, the losing caller re-reads the winner's record. Store
// failures are returned as *artist.PersistenceError.
func (s *Service) Resolve(ctx context.Context, name, venue string) (*artist.Artist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	venue = strings.TrimSpace(venue)

	logger := s.logger.With(
		slog.String("request_id", uuid.NewString()),
		slog.String("artist", name))
	start := time.Now()

	var cand *artist.Candidate
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		existing, err := s.store.FindByName(ctx, name)
		if err == nil {
			logger.Debug("artist known", slog.Int64("artist_id", existing.ID))
			return s.finish(ctx, logger, existing, venue, start)
		}
		if !errors.Is(err, artist.ErrNotFound) {
			return nil, err
		}

		// A retried miss reuses the first enrichment.
		if cand == nil {
			cand = s.merger.Merge(ctx, name)
		}

		inserted, err := s.store.Insert(ctx, cand)
		if errors.Is(err, artist.ErrDuplicateName) {
			logger.Debug("lost insert race, re-reading", slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, err
		}

		logger.Info("new artist",
			slog.Int64("artist_id", inserted.ID),
			slog.Bool("is_local", inserted.IsLocal),
			slog.Float64("confidence", inserted.Confidence),
			slog.Any("genres", inserted.Genres),
			slog.Any("sources", inserted.Sources),
			slog.String("catalog_id", cand.CatalogID))
		data := map[string]any{
			"artist_id":  inserted.ID,
			"artist":     inserted.Name,
			"is_local":   inserted.IsLocal,
			"confidence": inserted.Confidence,
			"genres":     inserted.Genres,
			"sources":    inserted.Sources,
		}
		if cand.CatalogID != "" {
			data["catalog_id"] = cand.CatalogID
			data["popularity"] = cand.Popularity
		}
		s.publish(event.ArtistNew, data)
		return s.finish(ctx, logger, inserted, venue, start)
	}

	return nil, &artist.PersistenceError{
		Op:  "resolve artist",
		Err: fmt.Errorf("name %q collided %d times without becoming readable", name, maxInsertAttempts),
	}
}

// finish records the visit, if any, and re-reads the record so it reflects
// the write.
func (s *Service) finish(ctx context.Context, logger *slog.Logger, a *artist.Artist, venue string, start time.Time) (*artist.Artist, error) {
	if venue == "" {
		logger.Debug("resolved", slog.Duration("elapsed", time.Since(start)))
		return a, nil
	}

	if err := s.store.RecordVisit(ctx, a.ID, venue); err != nil {
		return nil, err
	}
	s.publish(event.VenueRecorded, map[string]any{
		"artist_id": a.ID,
		"artist":    a.Name,
		"venue":     venue,
	})

	fresh, err := s.store.FindByName(ctx, a.Name)
	if err != nil {
		if errors.Is(err, artist.ErrNotFound) {
			return nil, &artist.PersistenceError{Op: "resolve artist", Err: fmt.Errorf("re-reading %q: %w", a.Name, err)}
		}
		return nil, err
	}

	logger.Debug("resolved",
		slog.String("venue", venue),
		slog.Int("visits", len(fresh.Venues)),
		slog.Duration("elapsed", time.Since(start)))
	return fresh, nil
}

func (s *Service) publish(t event.Type, data map[string]any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.Event{Type: t, Data: data})
}
