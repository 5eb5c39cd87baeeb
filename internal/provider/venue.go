package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultVenueSites are the local venue websites checked for artist mentions.
var DefaultVenueSites = []string{
	"https://www.radioroomgreenville.com",
	"https://www.peacecenter.org",
	"https://docstavernsc.com",
}

// VenueHistoryCheck scans local venue websites for mentions of an artist.
// A mention on any site marks the artist as local and adds a
// "venue:<host>" provenance tag per mentioning site.
type VenueHistoryCheck struct {
	client    *http.Client
	limiter   *RateLimiterMap
	logger    *slog.Logger
	sites     []string
	userAgent string
}

// NewVenueHistoryCheck creates a VenueHistoryCheck over sites.
func NewVenueHistoryCheck(sites []string, userAgent string, limiter *RateLimiterMap, logger *slog.Logger) *VenueHistoryCheck {
	return &VenueHistoryCheck{
		client:    &http.Client{Timeout: 10 * time.Second},
		limiter:   limiter,
		logger:    logger.With(slog.String("source", string(NameVenueHistory))),
		sites:     sites,
		userAgent: userAgent,
	}
}

// Name returns the provider identifier.
func (v *VenueHistoryCheck) Name() ProviderName { return NameVenueHistory }

// Fetch returns a Fragment listing the sites that mention artistName, or nil
// when none do. Sites that cannot be fetched or parsed are logged and skipped.
func (v *VenueHistoryCheck) Fetch(ctx context.Context, artistName string) *Fragment {
	mention := mentionPattern(artistName)
	if mention == nil || len(v.sites) == 0 {
		return nil
	}

	frag := &Fragment{Genres: []string{}, Sources: []string{}}
	for _, site := range v.sites {
		text, err := v.pageText(ctx, site)
		if err != nil {
			v.logger.Warn("venue site check failed",
				slog.String("site", site),
				slog.String("error", err.Error()))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if mention.MatchString(text) {
			frag.IsLocal = true
			frag.Sources = append(frag.Sources, SourceVenuePrefix+siteHost(site))
		}
	}

	if len(frag.Sources) == 0 {
		return nil
	}
	return frag
}

// pageText fetches site and returns its visible body text with whitespace
// collapsed to single spaces.
func (v *VenueHistoryCheck) pageText(ctx context.Context, site string) (string, error) {
	if err := v.limiter.Wait(ctx, NameVenueHistory); err != nil {
		return "", &ErrProviderUnavailable{
			Provider: NameVenueHistory,
			Cause:    fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, site, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	if v.userAgent != "" {
		req.Header.Set("User-Agent", v.userAgent)
	}

	resp, err := v.client.Do(req) //nolint:gosec // URL comes from configuration
	if err != nil {
		return "", &ErrProviderUnavailable{Provider: NameVenueHistory, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &ErrProviderUnavailable{
			Provider: NameVenueHistory,
			Cause:    fmt.Errorf("unexpected HTTP %d", resp.StatusCode),
		}
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	return strings.Join(strings.Fields(doc.Find("body").Text()), " "), nil
}

// mentionPattern matches artistName as a whole phrase, case-insensitively,
// with any run of whitespace between its words. The name must not be
// flanked by letters or digits, so "Art" does not match "artists". Returns
// nil for a blank name.
func mentionPattern(artistName string) *regexp.Regexp {
	words := strings.Fields(artistName)
	if len(words) == 0 {
		return nil
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}])` + strings.Join(words, `\s+`) + `(?:$|[^\p{L}\p{N}])`)
}

// siteHost returns the host of site without a leading "www.".
func siteHost(site string) string {
	u, err := url.Parse(site)
	if err != nil || u.Host == "" {
		return site
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
