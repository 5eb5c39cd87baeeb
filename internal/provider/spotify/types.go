package spotify

// searchResponse is the JSON response from the Spotify search endpoint.
type searchResponse struct {
	Artists artistPage `json:"artists"`
}

// artistPage is a paged list of artists.
type artistPage struct {
	Items []artistObject `json:"items"`
	Total int            `json:"total"`
	Limit int            `json:"limit"`
	Next  string         `json:"next,omitempty"`
}

// artistObject is a Spotify artist.
type artistObject struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	URI        string   `json:"uri"`
}
