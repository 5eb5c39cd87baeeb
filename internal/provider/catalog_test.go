package provider

import (
	"context"
	"errors"
	"testing"
)

// mockCatalog implements Catalog for testing.
type mockCatalog struct {
	results []CatalogArtist
	err     error
	limit   int
}

func (m *mockCatalog) Name() ProviderName { return NameSpotify }
func (m *mockCatalog) RequiresAuth() bool { return true }

func (m *mockCatalog) SearchArtist(_ context.Context, _ string, limit int) ([]CatalogArtist, error) {
	m.limit = limit
	return m.results, m.err
}

func TestCatalogLookup_Confidence(t *testing.T) {
	cases := []struct {
		query    string
		returned string
		want     float64
	}{
		{"Radio Room Allstars", "Radio Room Allstars", ExactMatchConfidence},
		{"radio room allstars", "Radio Room Allstars", ExactMatchConfidence},
		{"RADIOHEAD", "Radiohead", ExactMatchConfidence},
		{"Radio Room", "Radio Room Allstars", PartialMatchConfidence},
		{"The Band", "Band", PartialMatchConfidence},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			cat := &mockCatalog{results: []CatalogArtist{{ID: "1", Name: tc.returned, Genres: []string{"rock"}}}}
			f := NewCatalogLookup(cat, testLogger()).Fetch(context.Background(), tc.query)
			if f == nil {
				t.Fatal("expected fragment")
			}
			if f.Confidence != tc.want {
				t.Errorf("Confidence = %v, want %v", f.Confidence, tc.want)
			}
			if cat.limit != 1 {
				t.Errorf("search limit = %d, want 1", cat.limit)
			}
		})
	}
}

func TestCatalogLookup_Fragment(t *testing.T) {
	cat := &mockCatalog{results: []CatalogArtist{
		{ID: "abc", Name: "Radio Room Allstars", Genres: []string{"rock", "blues"}, Popularity: 12},
		{ID: "def", Name: "Ignored Second Hit"},
	}}
	f := NewCatalogLookup(cat, testLogger()).Fetch(context.Background(), "Radio Room Allstars")
	if f == nil {
		t.Fatal("expected fragment")
	}
	if len(f.Sources) != 1 || f.Sources[0] != SourceCatalog {
		t.Errorf("Sources = %v, want [catalog]", f.Sources)
	}
	if len(f.Genres) != 2 || f.Genres[0] != "rock" || f.Genres[1] != "blues" {
		t.Errorf("Genres = %v", f.Genres)
	}
	if f.CatalogID != "abc" || f.Popularity != 12 {
		t.Errorf("CatalogID/Popularity = %q/%d", f.CatalogID, f.Popularity)
	}
	if f.IsLocal {
		t.Error("catalog never reports locality")
	}

	// The fragment must not alias the catalog's slice.
	f.Genres[0] = "changed"
	if cat.results[0].Genres[0] != "rock" {
		t.Error("fragment genres alias catalog result")
	}
}

func TestCatalogLookup_NoResults(t *testing.T) {
	f := NewCatalogLookup(&mockCatalog{}, testLogger()).Fetch(context.Background(), "Nobody")
	if f != nil {
		t.Errorf("expected nil fragment, got %+v", f)
	}
}

func TestCatalogLookup_ErrorsAreAbsent(t *testing.T) {
	errs := []error{
		&ErrAuthRequired{Provider: NameSpotify},
		&ErrProviderUnavailable{Provider: NameSpotify, Cause: errors.New("connection refused")},
		errors.New("parsing search response: unexpected EOF"),
	}
	for _, err := range errs {
		f := NewCatalogLookup(&mockCatalog{err: err}, testLogger()).Fetch(context.Background(), "X")
		if f != nil {
			t.Errorf("error %v: expected nil fragment", err)
		}
	}
}
