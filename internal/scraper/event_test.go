package scraper

import (
	"testing"
	"time"
)

func TestExtractGenre(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Southern ROCK revival", "Rock"},
		{"An evening of Americana", "Country"},
		{"Bluegrass and blues", "Country"},
		{"Late night soul revue", "Jazz"},
		{"Indie showcase", "Pop"},
		{"Hip Hop Night", "Hip Hop"},
		{"R&B classics", "Hip Hop"},
		{"Punk vs. jazz", "Rock"},
		{"Trivia Tuesday", UnknownGenre},
		{"", UnknownGenre},
	}
	for _, tc := range cases {
		if got := ExtractGenre(tc.text); got != tc.want {
			t.Errorf("ExtractGenre(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestTicketInfo(t *testing.T) {
	cases := []struct {
		name       string
		rowText    string
		href       string
		wantStatus string
		wantLink   string
	}{
		{"free wins over link", "FREE show", "https://t.example/1", TicketFree, ""},
		{"link", "Doors at 8", "https://t.example/1", TicketNeeded, "https://t.example/1"},
		{"neither", "Doors at 8", "", TicketContact, calendarURL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, link := TicketInfo(tc.rowText, tc.href, calendarURL)
			if status != tc.wantStatus || link != tc.wantLink {
				t.Errorf("TicketInfo() = %q/%q, want %q/%q", status, link, tc.wantStatus, tc.wantLink)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	if got := CleanText("  Radio\n\tRoom   Allstars "); got != "Radio Room Allstars" {
		t.Errorf("CleanText() = %q", got)
	}
	if got := CleanText(" \n "); got != "" {
		t.Errorf("CleanText(blank) = %q", got)
	}
}

func TestParseDateTime(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Time
	}{
		{"Saturday, March 14 @ 9:00 pm - 11:30 pm", time.Date(2026, time.March, 14, 21, 0, 0, 0, time.UTC)},
		{"March 6 @ 7:00 pm", time.Date(2026, time.March, 6, 19, 0, 0, 0, time.UTC)},
		{"March 6 at 7pm", time.Date(2026, time.March, 6, 19, 0, 0, 0, time.UTC)},
		{"Mar 6 8 PM", time.Date(2026, time.March, 6, 20, 0, 0, 0, time.UTC)},
		{"April 3, 2027 @ 10:30 pm", time.Date(2027, time.April, 3, 22, 30, 0, 0, time.UTC)},
		{"2026-05-01 20:00", time.Date(2026, time.May, 1, 20, 0, 0, 0, time.UTC)},
		{"05/02/2026", time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC)},
		// Yearless dates more than 30 days back roll into next year.
		{"January 10 @ 9:00 pm", time.Date(2027, time.January, 10, 21, 0, 0, 0, time.UTC)},
		{"February 20 @ 9:00 pm", time.Date(2026, time.February, 20, 21, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseDateTime(tc.in, now)
			if !ok {
				t.Fatalf("ParseDateTime(%q) failed", tc.in)
			}
			if !got.Equal(tc.want) {
				t.Errorf("ParseDateTime(%q) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}

	for _, bad := range []string{"", "TBA", "Coming soon", "every Tuesday"} {
		if _, ok := ParseDateTime(bad, now); ok {
			t.Errorf("ParseDateTime(%q) should fail", bad)
		}
	}
}
