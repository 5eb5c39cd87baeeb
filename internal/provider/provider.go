package provider

import (
	"context"
	"fmt"
	"time"
)

// ProviderName uniquely identifies an external signal provider.
type ProviderName string

// Known provider names.
const (
	NameSpotify      ProviderName = "spotify"
	NameMusicBrainz  ProviderName = "musicbrainz"
	NameSocial       ProviderName = "social"
	NameVenueHistory ProviderName = "venue_history"
)

// DisplayName returns a human-readable name for the provider.
func (n ProviderName) DisplayName() string {
	switch n {
	case NameSpotify:
		return "Spotify"
	case NameMusicBrainz:
		return "MusicBrainz"
	case NameSocial:
		return "Social presence"
	case NameVenueHistory:
		return "Venue history"
	default:
		return string(n)
	}
}

// Provenance tags recorded in an artist's sources.
const (
	SourceCatalog = "catalog"
	// SourceVenuePrefix is followed by the venue site's host name.
	SourceVenuePrefix = "venue:"
)

// Catalog match confidences. There is no fuzzy scoring: a catalog hit is
// either an exact case-insensitive name match or a partial one.
const (
	ExactMatchConfidence   = 0.8
	PartialMatchConfidence = 0.5
)

// Fragment is the partial enrichment one Source contributes. Any field may
// be empty.
type Fragment struct {
	Genres     []string `json:"genres"`
	IsLocal    bool     `json:"is_local"`
	Confidence float64  `json:"confidence,omitempty"`
	Sources    []string `json:"sources"`
	CatalogID  string   `json:"catalog_id,omitempty"`
	Popularity int      `json:"popularity,omitempty"`
}

// Source is an independent signal provider consulted during enrichment.
// Fetch returns nil when the source has nothing to say (Absent). It never
// returns an error: failures are logged by the source and reported as nil.
type Source interface {
	Name() ProviderName
	Fetch(ctx context.Context, artistName string) *Fragment
}

// CatalogArtist is a single artist hit from a music catalog search.
type CatalogArtist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
}

// Catalog is a music catalog that can search artists by name.
type Catalog interface {
	// Name returns the unique provider identifier.
	Name() ProviderName

	// RequiresAuth returns true if the catalog needs credentials to function.
	RequiresAuth() bool

	// SearchArtist returns at most limit artists best matching name.
	SearchArtist(ctx context.Context, name string, limit int) ([]CatalogArtist, error)
}

// ErrProviderUnavailable indicates a transient failure (rate-limited, timeout, server error).
type ErrProviderUnavailable struct {
	Provider   ProviderName
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Cause }

// ErrNotFound indicates the provider has no data for the requested resource.
type ErrNotFound struct {
	Provider ProviderName
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("provider %s: %s not found", e.Provider, e.ID)
}

// ErrAuthRequired indicates the provider needs credentials but none are configured.
type ErrAuthRequired struct {
	Provider ProviderName
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("provider %s: credentials not configured", e.Provider)
}
