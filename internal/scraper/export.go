package scraper

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/sydlexius/localscene/internal/filesystem"
)

// Format selects the export encoding.
type Format string

// Supported export formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// DisplayLayout is how parseable show times are written in exports.
const DisplayLayout = "2006-01-02 03:04 PM"

// Columns are the export header, in order.
var Columns = []string{"Venue", "Band Name", "Date & Time", "Genre", "Ticket Status", "Ticket Link"}

// Row is one exported show with its date normalized for display.
type Row struct {
	Venue        string `json:"venue"`
	BandName     string `json:"band_name"`
	DateTime     string `json:"date_time"`
	Genre        string `json:"genre"`
	TicketStatus string `json:"ticket_status"`
	TicketLink   string `json:"ticket_link"`
	Price        string `json:"price,omitempty"`
	End          string `json:"end,omitempty"`
}

func (r Row) record() []string {
	return []string{r.Venue, r.BandName, r.DateTime, r.Genre, r.TicketStatus, r.TicketLink}
}

// ParseFormat validates a format name, defaulting to CSV for "".
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format: %q", s)
	}
}

// Rows sorts events by show time and formats them for export. A parseable
// Start from the event page wins over the calendar's date text. Events whose
// date cannot be parsed keep their original text and go last, in their
// original relative order.
func Rows(events []Event, now time.Time) []Row {
	type keyed struct {
		at  time.Time
		ok  bool
		evt Event
	}
	ks := make([]keyed, len(events))
	for i, e := range events {
		at, ok := parseISO(e.Start, now.Location())
		if !ok {
			at, ok = ParseDateTime(e.DateTime, now)
		}
		ks[i] = keyed{at: at, ok: ok, evt: e}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		if ks[i].ok != ks[j].ok {
			return ks[i].ok
		}
		if !ks[i].ok {
			return false
		}
		return ks[i].at.Before(ks[j].at)
	})

	rows := make([]Row, len(ks))
	for i, k := range ks {
		when := k.evt.DateTime
		if k.ok {
			when = k.at.Format(DisplayLayout)
		}
		rows[i] = Row{
			Venue:        k.evt.Venue,
			BandName:     k.evt.BandName,
			DateTime:     when,
			Genre:        k.evt.Genre,
			TicketStatus: k.evt.TicketStatus,
			TicketLink:   k.evt.TicketLink,
			Price:        k.evt.Price,
			End:          k.evt.End,
		}
	}
	return rows
}

// Export writes events to w in the given format.
func Export(w io.Writer, events []Event, format Format, now time.Time) error {
	rows := Rows(events, now)
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(Columns); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
		for _, r := range rows {
			if err := cw.Write(r.record()); err != nil {
				return fmt.Errorf("writing row: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	default:
		return fmt.Errorf("unknown export format: %q", format)
	}
}

// ExportFile writes events to path atomically.
func ExportFile(path string, events []Event, format Format, now time.Time) error {
	return filesystem.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return Export(w, events, format, now)
	})
}
