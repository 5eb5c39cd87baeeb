// Package scraper reads upcoming shows from a venue's event calendar and
// exports them as a spreadsheet-friendly table.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DocsTavern is the venue name stamped on events from its calendar.
const DocsTavern = "Doc's Tavern"

// Calendar selectors for The Events Calendar list view.
const (
	selRow         = ".tribe-events-calendar-list__event-row"
	selTitle       = ".tribe-events-calendar-list__event-title"
	selTitleLink   = ".tribe-events-calendar-list__event-title-link"
	selDateTime    = ".tribe-events-calendar-list__event-datetime"
	selDescription = ".tribe-events-calendar-list__event-description"
	selPrice       = ".tribe-events-c-small-cta__price"
	selTicketLink  = `a[href*="ticket"]`
)

// Scraper fetches and parses a venue calendar page.
type Scraper struct {
	client    *http.Client
	url       string
	venue     string
	userAgent string
	logger    *slog.Logger
}

// New creates a scraper for the calendar at calendarURL.
func New(calendarURL, userAgent string, logger *slog.Logger) *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		url:       calendarURL,
		venue:     DocsTavern,
		userAgent: userAgent,
		logger:    logger.With(slog.String("component", "scraper")),
	}
}

// Venue returns the venue name stamped on scraped events.
func (s *Scraper) Venue() string { return s.venue }

// FetchEvents downloads the calendar and returns its events in page order.
func (s *Scraper) FetchEvents(ctx context.Context) ([]Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req) //nolint:gosec // URL comes from configuration
	if err != nil {
		return nil, fmt.Errorf("fetching calendar: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("fetching calendar: unexpected status %d", resp.StatusCode)
	}

	events, err := s.ParseEvents(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, err
	}
	s.logger.Info("calendar scraped",
		slog.String("venue", s.venue),
		slog.String("url", s.url),
		slog.Int("events", len(events)))
	return events, nil
}

// ParseEvents extracts events from calendar HTML. Rows carrying neither a
// title nor a description are skipped.
func (s *Scraper) ParseEvents(r io.Reader) ([]Event, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	events := make([]Event, 0)
	doc.Find(selRow).Each(func(i int, row *goquery.Selection) {
		evt, ok := s.parseRow(row)
		if !ok {
			s.logger.Warn("skipping calendar row", slog.Int("row", i))
			return
		}
		events = append(events, evt)
	})
	return events, nil
}

func (s *Scraper) parseRow(row *goquery.Selection) (Event, bool) {
	title := row.Find(selTitle).First()
	desc := row.Find(selDescription).First()
	if title.Length() == 0 && desc.Length() == 0 {
		return Event{}, false
	}

	evt := Event{
		Venue:    s.venue,
		BandName: TBA,
		DateTime: TBA,
		URL:      s.url,
	}
	if title.Length() > 0 {
		if name := CleanText(title.Text()); name != "" {
			evt.BandName = name
		}
	}
	if dt := row.Find(selDateTime).First(); dt.Length() > 0 {
		if when := CleanText(dt.Text()); when != "" {
			evt.DateTime = when
		}
	}

	genreSource := title.Text()
	if desc.Length() > 0 {
		genreSource = desc.Text()
	}
	evt.Genre = ExtractGenre(genreSource)

	ticketHref, _ := row.Find(selTicketLink).First().Attr("href")
	evt.TicketStatus, evt.TicketLink = TicketInfo(row.Text(), ticketHref, s.url)

	if href, ok := row.Find(selTitleLink).First().Attr("href"); ok && href != "" {
		evt.URL = href
	}
	if price := row.Find(selPrice).First(); price.Length() > 0 {
		evt.Price = CleanText(price.Text())
	}
	return evt, true
}
