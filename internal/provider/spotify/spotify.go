package spotify

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

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/sydlexius/localscene/internal/provider"
)

const (
	defaultBaseURL  = "https://api.spotify.com/v1"
	defaultTokenURL = "https://accounts.spotify.com/api/token"
)

// Credentials are the client-credential pair issued for a Spotify app.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Configured reports whether both halves of the pair are present.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Client implements provider.Catalog for the Spotify Web API using the
// OAuth2 client-credentials flow. A client built without credentials stays
// usable but every search returns provider.ErrAuthRequired.
type Client struct {
	client  *http.Client
	limiter *provider.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a Spotify client against the public API.
func New(creds Credentials, limiter *provider.RateLimiterMap, logger *slog.Logger) *Client {
	return NewWithURLs(creds, limiter, logger, defaultBaseURL, defaultTokenURL)
}

// NewWithURLs creates a Spotify client with custom API and token URLs (for testing).
func NewWithURLs(creds Credentials, limiter *provider.RateLimiterMap, logger *slog.Logger, baseURL, tokenURL string) *Client {
	c := &Client{
		limiter: limiter,
		logger:  logger.With(slog.String("provider", string(provider.NameSpotify))),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	if !creds.Configured() {
		return c
	}

	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
	}
	// Token requests use their own bounded client.
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: 10 * time.Second})
	c.client = cc.Client(tokenCtx)
	c.client.Timeout = 10 * time.Second
	return c
}

// Name returns the provider identifier.
func (c *Client) Name() provider.ProviderName { return provider.NameSpotify }

// RequiresAuth returns true; Spotify has no anonymous search.
func (c *Client) RequiresAuth() bool { return true }

// SearchArtist searches Spotify for at most limit artists matching name.
func (c *Client) SearchArtist(ctx context.Context, name string, limit int) ([]provider.CatalogArtist, error) {
	if c.client == nil {
		return nil, &provider.ErrAuthRequired{Provider: provider.NameSpotify}
	}
	if name == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 1
	}

	if err := c.limiter.Wait(ctx, provider.NameSpotify); err != nil {
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameSpotify,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	params := url.Values{
		"q":     {name},
		"type":  {"artist"},
		"limit": {strconv.Itoa(limit)},
	}
	body, err := c.doRequest(ctx, c.baseURL+"/search?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	results := make([]provider.CatalogArtist, 0, len(resp.Artists.Items))
	for _, a := range resp.Artists.Items {
		results = append(results, provider.CatalogArtist{
			ID:         a.ID,
			Name:       a.Name,
			Genres:     a.Genres,
			Popularity: a.Popularity,
		})
	}

	c.logger.Debug("artist search completed",
		slog.String("query", name),
		slog.Int("results", len(results)))

	return results, nil
}

// doRequest executes a GET request and returns the response body.
func (c *Client) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req) //nolint:gosec // URL constructed from client config and encoded query
	if err != nil {
		// Token endpoint failures surface here as well.
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameSpotify,
			Cause:    err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusUnauthorized, http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameSpotify,
			Cause:    fmt.Errorf("credentials rejected (HTTP %d)", resp.StatusCode),
		}
	case http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrProviderUnavailable{
			Provider:   provider.NameSpotify,
			Cause:      fmt.Errorf("rate limited by server"),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &provider.ErrProviderUnavailable{
			Provider: provider.NameSpotify,
			Cause:    fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
