package musicbrainz

// MusicBrainz API response types.

// SearchResponse is the top-level response from the artist search endpoint.
type SearchResponse struct {
	Created string     `json:"created"`
	Count   int        `json:"count"`
	Offset  int        `json:"offset"`
	Artists []MBArtist `json:"artists"`
}

// MBArtist is the subset of a MusicBrainz artist entity used for enrichment.
type MBArtist struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SortName       string    `json:"sort-name"`
	Type           string    `json:"type"`
	Disambiguation string    `json:"disambiguation"`
	Country        string    `json:"country"`
	Score          int       `json:"score"`
	Area           *MBArea   `json:"area,omitempty"`
	Tags           []MBTag   `json:"tags"`
	Genres         []MBGenre `json:"genres"`
}

// MBArea is the country or city an artist is associated with.
type MBArea struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MBTag represents a user-submitted tag.
type MBTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MBGenre represents a genre classification.
type MBGenre struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}
