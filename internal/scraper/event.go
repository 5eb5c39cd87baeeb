package scraper

import (
	"strings"
	"time"
)

// Placeholders used when a calendar row lacks a field.
const (
	TBA           = "TBA"
	UnknownGenre  = "Various/Unknown"
	TicketFree    = "Free"
	TicketNeeded  = "Tickets Required"
	TicketContact = "Contact Venue"
)

// Event is one show listed on a venue calendar.
type Event struct {
	Venue        string `json:"venue"`
	BandName     string `json:"band_name"`
	DateTime     string `json:"date_time"`
	Genre        string `json:"genre"`
	TicketStatus string `json:"ticket_status"`
	TicketLink   string `json:"ticket_link"`
	URL          string `json:"url,omitempty"`
	Price        string `json:"price,omitempty"`
	// Start and End come from the event page's JSON-LD, when fetched.
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// genreKeywords maps a display genre to the substrings that imply it.
// Checked in order; the first match wins.
var genreKeywords = []struct {
	genre    string
	keywords []string
}{
	{"Rock", []string{"rock", "alternative", "punk", "metal"}},
	{"Country", []string{"country", "bluegrass", "americana"}},
	{"Jazz", []string{"jazz", "blues", "soul"}},
	{"Pop", []string{"pop", "indie", "electronic"}},
	{"Hip Hop", []string{"hip hop", "rap", "r&b"}},
}

// ExtractGenre guesses a genre from free text by keyword.
func ExtractGenre(text string) string {
	text = strings.ToLower(text)
	for _, g := range genreKeywords {
		for _, kw := range g.keywords {
			if strings.Contains(text, kw) {
				return g.genre
			}
		}
	}
	return UnknownGenre
}

// TicketInfo derives ticket status and link. rowText is the full text of
// the calendar row and ticketHref the href of its ticket link, if any.
func TicketInfo(rowText, ticketHref, calendarURL string) (status, link string) {
	switch {
	case strings.Contains(strings.ToLower(rowText), "free"):
		return TicketFree, ""
	case ticketHref != "":
		return TicketNeeded, ticketHref
	default:
		return TicketContact, calendarURL
	}
}

// CleanText collapses all whitespace runs to single spaces and trims.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var (
	dateLayouts = []string{
		"January 2 2006",
		"January 2, 2006",
		"Jan 2 2006",
		"Jan 2, 2006",
		"Monday, January 2, 2006",
		"Monday January 2 2006",
		"2006-01-02",
		"01/02/2006",
		"1/2/2006",
		"01/02/06",
	}
	// Layouts without a year are resolved against the reference time.
	yearlessLayouts = []string{
		"January 2",
		"Jan 2",
		"Monday, January 2",
		"Monday January 2",
		"1/2",
	}
	timeLayouts = []string{
		"3:04 PM",
		"3:04PM",
		"3 PM",
		"3PM",
		"15:04",
	}
)

// ParseDateTime parses a calendar date string such as
// "Saturday, March 7 @ 9:00 pm - 11:30 pm". An end time after " - " is
// ignored. Dates without a year take now's year, rolling to the next year
// when that would put the show more than 30 days in the past.
func ParseDateTime(s string, now time.Time) (time.Time, bool) {
	s = CleanText(s)
	if s == "" || strings.EqualFold(s, TBA) {
		return time.Time{}, false
	}
	if i := strings.Index(s, " - "); i >= 0 {
		s = s[:i]
	}
	s = strings.ToUpper(strings.ReplaceAll(s, "@", " "))
	s = CleanText(strings.ReplaceAll(s, " AT ", " "))

	if t, ok := parseWith(s, dateLayouts); ok {
		return t, true
	}
	if t, ok := parseWith(s, yearlessLayouts); ok {
		t = time.Date(now.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
		if t.Before(now.AddDate(0, 0, -30)) {
			t = t.AddDate(1, 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}

// parseWith tries each date layout alone and combined with every time layout.
func parseWith(s string, layouts []string) (time.Time, bool) {
	for _, d := range layouts {
		if t, err := time.Parse(d, s); err == nil {
			return t, true
		}
		for _, tl := range timeLayouts {
			if t, err := time.Parse(d+" "+tl, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
