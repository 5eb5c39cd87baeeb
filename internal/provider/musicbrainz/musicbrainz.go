package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sydlexius/localscene/internal/provider"
	"github.com/sydlexius/localscene/internal/version"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// Client implements provider.Catalog for MusicBrainz. No credentials are
// needed, but MusicBrainz asks clients to stay under one request per second
// and to send an identifying User-Agent.
type Client struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a MusicBrainz client with the default base URL.
func New(limiter *provider.RateLimiterMap, logger *slog.Logger) *Client {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz client with a custom base URL (for testing).
func NewWithBaseURL(limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL string) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: limiter,
		logger:  logger.With(slog.String("provider", string(provider.NameMusicBrainz))),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the provider name.
func (c *Client) Name() provider.ProviderName { return provider.NameMusicBrainz }

// RequiresAuth returns false; the MusicBrainz search API is anonymous.
func (c *Client) RequiresAuth() bool { return false }

// SearchArtist searches MusicBrainz for at most limit artists matching name,
// best score first. Genres come from the curated genre list and fall back to
// positively voted tags.
func (c *Client) SearchArtist(ctx context.Context, name string, limit int) ([]provider.CatalogArtist, error) {
	if name == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 1
	}

	params := url.Values{
		"query": {name},
		"fmt":   {"json"},
		"limit": {strconv.Itoa(limit)},
	}
	body, err := c.doRequest(ctx, c.baseURL+"/artist?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := make([]provider.CatalogArtist, 0, len(resp.Artists))
	for i := range resp.Artists {
		results = append(results, mapArtist(&resp.Artists[i]))
	}
	return results, nil
}

// doRequest executes an HTTP GET with rate limiting and standard headers.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx, provider.NameMusicBrainz); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("requesting", slog.String("url", reqURL))

	resp, err := c.client.Do(req) //nolint:gosec // URL constructed from trusted base + encoded query
	if err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrNotFound{
			Provider: provider.NameMusicBrainz,
			ID:       reqURL,
		}
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrProviderUnavailable{
			Provider:   provider.NameMusicBrainz,
			Cause:      fmt.Errorf("HTTP %d", resp.StatusCode),
			RetryAfter: 2 * time.Second,
		}
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameMusicBrainz,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 512*1024))
}

func mapArtist(mb *MBArtist) provider.CatalogArtist {
	out := provider.CatalogArtist{
		ID:         mb.ID,
		Name:       mb.Name,
		Popularity: mb.Score,
		Genres:     []string{},
	}
	for _, g := range mb.Genres {
		if g.Name != "" {
			out.Genres = append(out.Genres, g.Name)
		}
	}
	if len(out.Genres) == 0 {
		for _, t := range mb.Tags {
			if t.Name != "" && t.Count > 0 {
				out.Genres = append(out.Genres, t.Name)
			}
		}
	}
	return out
}
