package spotify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/time/rate"

	"github.com/sydlexius/localscene/internal/provider"
)

const searchFixture = `{
  "artists": {
    "items": [
      {"id": "4Z8W4fKeB5YxbusRsdQVPb", "name": "Radiohead", "genres": ["alternative rock", "art rock"], "popularity": 79, "uri": "spotify:artist:4Z8W4fKeB5YxbusRsdQVPb"}
    ],
    "total": 1,
    "limit": 1
  }
}`

func newTestServer(t *testing.T, tokenCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/token":
			tokenCalls.Add(1)
			user, pass, ok := r.BasicAuth()
			if !ok || user != "id" || pass != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))

		case "/v1/search":
			if r.Header.Get("Authorization") != "Bearer tok-123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			q := r.URL.Query()
			if q.Get("type") != "artist" {
				t.Errorf("type = %q, want artist", q.Get("type"))
			}
			switch q.Get("q") {
			case "nobody":
				w.Write([]byte(`{"artists":{"items":[],"total":0,"limit":1}}`))
			case "slow down":
				w.Header().Set("Retry-After", "7")
				w.WriteHeader(http.StatusTooManyRequests)
			case "broken":
				w.WriteHeader(http.StatusBadGateway)
			default:
				if q.Get("limit") != "1" {
					t.Errorf("limit = %q, want 1", q.Get("limit"))
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(searchFixture))
			}

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestClient(t *testing.T, srv *httptest.Server, creds Credentials) *Client {
	t.Helper()
	limiter := provider.NewRateLimiterMap()
	limiter.SetLimit(provider.NameSpotify, rate.Inf)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWithURLs(creds, limiter, logger, srv.URL+"/v1", srv.URL+"/api/token")
}

func TestName(t *testing.T) {
	c := New(Credentials{}, provider.NewRateLimiterMap(), slog.Default())
	if c.Name() != provider.NameSpotify {
		t.Errorf("expected %s, got %s", provider.NameSpotify, c.Name())
	}
	if !c.RequiresAuth() {
		t.Error("expected Spotify to require auth")
	}
}

func TestSearchArtist(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newTestServer(t, &tokenCalls)
	defer srv.Close()

	c := newTestClient(t, srv, Credentials{ClientID: "id", ClientSecret: "secret"})
	results, err := c.SearchArtist(context.Background(), "Radiohead", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.ID != "4Z8W4fKeB5YxbusRsdQVPb" || r.Name != "Radiohead" {
		t.Errorf("unexpected result: %+v", r)
	}
	if len(r.Genres) != 2 || r.Genres[0] != "alternative rock" {
		t.Errorf("Genres = %v", r.Genres)
	}
	if r.Popularity != 79 {
		t.Errorf("Popularity = %d, want 79", r.Popularity)
	}

	// The token is cached across searches.
	if _, err := c.SearchArtist(context.Background(), "Radiohead", 1); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if n := tokenCalls.Load(); n != 1 {
		t.Errorf("token endpoint called %d times, want 1", n)
	}
}

func TestSearchArtist_NoResults(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newTestServer(t, &tokenCalls)
	defer srv.Close()

	c := newTestClient(t, srv, Credentials{ClientID: "id", ClientSecret: "secret"})
	results, err := c.SearchArtist(context.Background(), "nobody", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestSearchArtist_MissingCredentials(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newTestServer(t, &tokenCalls)
	defer srv.Close()

	for _, creds := range []Credentials{{}, {ClientID: "id"}, {ClientSecret: "secret"}} {
		c := newTestClient(t, srv, creds)
		_, err := c.SearchArtist(context.Background(), "Radiohead", 1)
		var authErr *provider.ErrAuthRequired
		if !errors.As(err, &authErr) {
			t.Errorf("creds %+v: expected ErrAuthRequired, got %v", creds, err)
		}
	}
	if n := tokenCalls.Load(); n != 0 {
		t.Errorf("token endpoint called %d times, want 0", n)
	}
}

func TestSearchArtist_RejectedCredentials(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newTestServer(t, &tokenCalls)
	defer srv.Close()

	c := newTestClient(t, srv, Credentials{ClientID: "id", ClientSecret: "wrong"})
	_, err := c.SearchArtist(context.Background(), "Radiohead", 1)
	var unavail *provider.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestSearchArtist_RateLimited(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newTestServer(t, &tokenCalls)
	defer srv.Close()

	c := newTestClient(t, srv, Credentials{ClientID: "id", ClientSecret: "secret"})
	_, err := c.SearchArtist(context.Background(), "slow down", 1)
	var unavail *provider.ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if unavail.RetryAfter.Seconds() != 7 {
		t.Errorf("RetryAfter = %v, want 7s", unavail.RetryAfter)
	}
}

func TestSearchArtist_ServerError(t *testing.T) {
	var tokenCalls atomic.Int32
	srv := newTestServer(t, &tokenCalls)
	defer srv.Close()

	c := newTestClient(t, srv, Credentials{ClientID: "id", ClientSecret: "secret"})
	_, err := c.SearchArtist(context.Background(), "broken", 1)
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Errorf("expected error mentioning 502, got %v", err)
	}
}

func TestRetryAfter(t *testing.T) {
	cases := map[string]float64{"": 0, "3": 3, " 10 ": 10, "soon": 0, "-1": 0}
	for in, want := range cases {
		if got := retryAfter(in).Seconds(); got != want {
			t.Errorf("retryAfter(%q) = %v, want %v", in, got, want)
		}
	}
}
