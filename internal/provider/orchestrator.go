package provider

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/localscene/internal/artist"
)

// DefaultSourceTimeout bounds a single Source.Fetch call.
const DefaultSourceTimeout = 5 * time.Second

// Sources are the signal providers consulted for every new artist. Catalog
// is optional; a nil Source is treated as Absent.
type Sources struct {
	Catalog      Source
	Social       Source
	VenueHistory Source
}

// Options tune how the Orchestrator calls its sources.
type Options struct {
	// Timeout bounds each source call. Zero means DefaultSourceTimeout.
	Timeout time.Duration
	// Sequential calls sources one at a time instead of concurrently.
	Sequential bool
}

// Orchestrator fans out to the sources and merges their fragments into a
// single candidate artist.
type Orchestrator struct {
	sources Sources
	opts    Options
	logger  *slog.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(sources Sources, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSourceTimeout
	}
	return &Orchestrator{
		sources: sources,
		opts:    opts,
		logger:  logger.With(slog.String("component", "orchestrator")),
	}
}

// Merge enriches artistName from all sources. Fragments are always applied
// in catalog, social, venue-history order no matter which call finished
// first. Only the catalog contributes confidence and the catalog id; genres are appended as
// reported and may contain duplicates.
func (o *Orchestrator) Merge(ctx context.Context, artistName string) *artist.Candidate {
	ordered := []Source{o.sources.Catalog, o.sources.Social, o.sources.VenueHistory}
	frags := make([]*Fragment, len(ordered))

	if o.opts.Sequential {
		for i, s := range ordered {
			frags[i] = o.fetch(ctx, s, artistName)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		for i, s := range ordered {
			g.Go(func() error {
				frags[i] = o.fetch(gctx, s, artistName)
				return nil
			})
		}
		_ = g.Wait()
	}

	c := artist.NewCandidate(artistName)
	for i, f := range frags {
		if f == nil {
			continue
		}
		c.IsLocal = c.IsLocal || f.IsLocal
		c.Genres = append(c.Genres, f.Genres...)
		c.Sources = append(c.Sources, f.Sources...)
		if i == 0 {
			c.Confidence = f.Confidence
			c.CatalogID = f.CatalogID
			c.Popularity = f.Popularity
		}
	}

	o.logger.Debug("merged sources",
		slog.String("artist", artistName),
		slog.Int("genres", len(c.Genres)),
		slog.Bool("is_local", c.IsLocal),
		slog.Float64("confidence", c.Confidence),
		slog.String("catalog_id", c.CatalogID),
		slog.Int("popularity", c.Popularity),
		slog.Any("sources", c.Sources))

	return c
}

// fetch calls s under the per-source timeout. A nil source, a timeout, or a
// panic inside the source all yield nil.
func (o *Orchestrator) fetch(ctx context.Context, s Source, artistName string) *Fragment {
	if s == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	ch := make(chan *Fragment, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("source panicked",
					slog.String("provider", string(s.Name())),
					slog.Any("panic", r))
				ch <- nil
			}
		}()
		ch <- s.Fetch(ctx, artistName)
	}()

	select {
	case f := <-ch:
		return f
	case <-ctx.Done():
		o.logger.Warn("source timed out",
			slog.String("provider", string(s.Name())),
			slog.String("artist", artistName),
			slog.Duration("timeout", o.opts.Timeout))
		return nil
	}
}
