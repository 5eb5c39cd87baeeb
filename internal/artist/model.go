package artist

import (
	"strings"
	"time"
)

// Artist is a resolved, persisted artist record.
type Artist struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	IsLocal     bool         `json:"is_local"`
	Confidence  float64      `json:"confidence"`
	Genres      []string     `json:"genres"`
	GenreTags   []GenreTag   `json:"genre_tags,omitempty"`
	Sources     []string     `json:"sources"`
	Venues      []VenueVisit `json:"venues,omitempty"`
	LastUpdated time.Time    `json:"last_updated"`
}

// GenreTag is a genre attached to an artist along with the confidence and
// provenance it was written with.
type GenreTag struct {
	Genre      string  `json:"genre"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// VenueVisit records that an artist played a venue. Visits are append-only
// and never deduplicated.
type VenueVisit struct {
	ArtistID int64     `json:"artist_id"`
	Venue    string    `json:"venue"`
	PlayedAt time.Time `json:"played_at"`
}

// Candidate is an enriched artist that has not been persisted yet. Genres
// may contain duplicates; they are collapsed into a set on insert.
// CatalogID and Popularity describe the catalog hit and are not stored.
type Candidate struct {
	Name       string
	Genres     []string
	IsLocal    bool
	Confidence float64
	Sources    []string
	CatalogID  string
	Popularity int
}

// NewCandidate returns an empty candidate for name.
func NewCandidate(name string) *Candidate {
	return &Candidate{
		Name:    name,
		Genres:  []string{},
		Sources: []string{},
	}
}

// HasSource reports whether tag is among the artist's provenance tags.
func (a *Artist) HasSource(tag string) bool {
	for _, s := range a.Sources {
		if s == tag {
			return true
		}
	}
	return false
}

// JoinSources encodes provenance tags for the verification_source column.
func JoinSources(sources []string) string {
	return strings.Join(sources, ",")
}

// SplitSources decodes the verification_source column.
func SplitSources(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

// uniqueGenres returns the non-empty genres in first-seen order without
// duplicates.
func uniqueGenres(genres []string) []string {
	seen := make(map[string]bool, len(genres))
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}
