package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// detailWorkers bounds concurrent event page fetches.
const detailWorkers = 4

// Details is the structured data an event page publishes as JSON-LD.
type Details struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
	Price string `json:"price,omitempty"`
}

// ldEvent is the subset of a schema.org Event we read. Price appears either
// at the top level or under offers, which may be an object or a list.
type ldEvent struct {
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
	Price     json.RawMessage `json:"price"`
	Offers    json.RawMessage `json:"offers"`
}

type ldOffer struct {
	Price json.RawMessage `json:"price"`
}

// ParseDetails reads the first JSON-LD event on an event page. Malformed
// JSON-LD blocks are ignored; a page without one yields empty Details.
func ParseDetails(r io.Reader) (Details, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Details{}, fmt.Errorf("parsing HTML: %w", err)
	}

	var d Details
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, ev := range decodeLD(s.Text()) {
			if ev.StartDate == "" && ev.EndDate == "" && len(ev.Price) == 0 && len(ev.Offers) == 0 {
				continue
			}
			d = Details{
				Start: strings.TrimSpace(ev.StartDate),
				End:   strings.TrimSpace(ev.EndDate),
				Price: priceOf(ev),
			}
			return false
		}
		return true
	})
	return d, nil
}

// decodeLD accepts a single object or a list of objects.
func decodeLD(raw string) []ldEvent {
	raw = strings.TrimSpace(raw)
	var list []ldEvent
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	var one ldEvent
	if err := json.Unmarshal([]byte(raw), &one); err == nil {
		return []ldEvent{one}
	}
	return nil
}

func priceOf(ev ldEvent) string {
	if p := rawPrice(ev.Price); p != "" {
		return p
	}
	var offers []ldOffer
	if err := json.Unmarshal(ev.Offers, &offers); err != nil {
		var one ldOffer
		if err := json.Unmarshal(ev.Offers, &one); err != nil {
			return ""
		}
		offers = []ldOffer{one}
	}
	for _, o := range offers {
		if p := rawPrice(o.Price); p != "" {
			return p
		}
	}
	return ""
}

// rawPrice renders a JSON string or number price as text.
func rawPrice(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// FetchDetails downloads one event page and reads its JSON-LD. Relative
// links are resolved against the calendar URL.
func (s *Scraper) FetchDetails(ctx context.Context, eventURL string) (Details, error) {
	base, err := url.Parse(s.url)
	if err != nil {
		return Details{}, fmt.Errorf("parsing calendar URL: %w", err)
	}
	ref, err := url.Parse(eventURL)
	if err != nil {
		return Details{}, fmt.Errorf("parsing event URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.ResolveReference(ref).String(), nil)
	if err != nil {
		return Details{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req) //nolint:gosec // URL comes from the calendar page
	if err != nil {
		return Details{}, fmt.Errorf("fetching event page: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Details{}, fmt.Errorf("fetching event page: unexpected status %d", resp.StatusCode)
	}
	return ParseDetails(io.LimitReader(resp.Body, 2*1024*1024))
}

// AddDetails fills Start, End, and a missing Price from each event's own
// page. Events that link only to the calendar are left alone. Page failures
// are logged and skipped; only context cancellation is returned.
func (s *Scraper) AddDetails(ctx context.Context, events []Event) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailWorkers)

	for i := range events {
		e := &events[i]
		if e.URL == "" || e.URL == s.url {
			continue
		}
		g.Go(func() error {
			d, err := s.FetchDetails(gctx, e.URL)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("event details unavailable",
					slog.String("url", e.URL),
					slog.String("error", err.Error()))
				return nil
			}
			e.Start, e.End = d.Start, d.End
			if e.Price == "" {
				e.Price = d.Price
			}
			return nil
		})
	}
	return g.Wait()
}

// isoLayouts are the timestamp forms seen in JSON-LD startDate values.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseISO parses a JSON-LD timestamp. Zone-less values are read in loc.
func parseISO(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
