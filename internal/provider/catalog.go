package provider

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// CatalogLookup is the authoritative Source. It asks a music catalog for the
// single closest artist and seeds the candidate's confidence from how well
// the returned name matches the query.
type CatalogLookup struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewCatalogLookup wraps catalog as a Source.
func NewCatalogLookup(catalog Catalog, logger *slog.Logger) *CatalogLookup {
	return &CatalogLookup{
		catalog: catalog,
		logger: logger.With(
			slog.String("source", SourceCatalog),
			slog.String("provider", string(catalog.Name())),
		),
	}
}

// Name returns the backing catalog's provider name.
func (c *CatalogLookup) Name() ProviderName { return c.catalog.Name() }

// Fetch searches the catalog for artistName and returns the top hit as a
// Fragment, or nil when there is no hit or the catalog fails.
func (c *CatalogLookup) Fetch(ctx context.Context, artistName string) *Fragment {
	results, err := c.catalog.SearchArtist(ctx, artistName, 1)
	if err != nil {
		var authErr *ErrAuthRequired
		if errors.As(err, &authErr) {
			c.logger.Info("catalog unavailable", slog.String("reason", err.Error()))
		} else {
			c.logger.Warn("catalog search failed",
				slog.String("artist", artistName),
				slog.String("error", err.Error()))
		}
		return nil
	}
	if len(results) == 0 {
		c.logger.Debug("no catalog match", slog.String("artist", artistName))
		return nil
	}

	top := results[0]
	confidence := PartialMatchConfidence
	if strings.EqualFold(top.Name, artistName) {
		confidence = ExactMatchConfidence
	}

	c.logger.Debug("catalog match",
		slog.String("artist", artistName),
		slog.String("matched", top.Name),
		slog.Float64("confidence", confidence))

	return &Fragment{
		Genres:     append([]string{}, top.Genres...),
		Confidence: confidence,
		Sources:    []string{SourceCatalog},
		CatalogID:  top.ID,
		Popularity: top.Popularity,
	}
}
