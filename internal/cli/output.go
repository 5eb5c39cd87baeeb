package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/sydlexius/localscene/internal/artist"
	"github.com/sydlexius/localscene/internal/backup"
	"github.com/sydlexius/localscene/internal/maintenance"
)

// OutputFormat specifies the output format.
type OutputFormat string

// Supported output formats.
const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func parseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeArtist prints one artist record with its venue history.
func writeArtist(w io.Writer, a *artist.Artist, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, a)
	}

	fmt.Fprintf(w, "Name:       %s\n", a.Name)
	fmt.Fprintf(w, "ID:         %d\n", a.ID)
	fmt.Fprintf(w, "Local:      %s\n", yesNo(a.IsLocal))
	fmt.Fprintf(w, "Confidence: %.2f\n", a.Confidence)
	fmt.Fprintf(w, "Genres:     %s\n", listOrNone(a.Genres))
	fmt.Fprintf(w, "Sources:    %s\n", listOrNone(a.Sources))
	fmt.Fprintf(w, "Updated:    %s\n", a.LastUpdated.Format("2006-01-02 15:04:05 MST"))
	if len(a.Venues) == 0 {
		fmt.Fprintln(w, "Venues:     none")
		return nil
	}
	fmt.Fprintf(w, "Venues:     %d visit(s)\n", len(a.Venues))
	for _, v := range a.Venues {
		fmt.Fprintf(w, "  - %s (%s)\n", v.Venue, v.PlayedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// writeArtists prints a table of artists.
func writeArtists(w io.Writer, artists []artist.Artist, format OutputFormat) error {
	if format == FormatJSON {
		if artists == nil {
			artists = []artist.Artist{}
		}
		return writeJSON(w, artists)
	}
	if len(artists) == 0 {
		fmt.Fprintln(w, "No artists yet.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLOCAL\tCONFIDENCE\tGENRES\tVISITS")
	for _, a := range artists {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\t%d\n",
			a.Name, yesNo(a.IsLocal), a.Confidence, listOrNone(a.Genres), len(a.Venues))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTotal: %d artist(s)\n", len(artists))
	return nil
}

// writeBackupResult reports a new snapshot and any pruned ones.
func writeBackupResult(w io.Writer, snap *backup.Snapshot, pruned []string, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, map[string]any{
			"snapshot": snap,
			"pruned":   pruned,
		})
	}
	fmt.Fprintf(w, "Backup written to %s (%s)\n", snap.Path, humanize.Bytes(uint64(snap.Size))) //nolint:gosec
	for _, name := range pruned {
		fmt.Fprintf(w, "Pruned %s\n", name)
	}
	return nil
}

// writeSnapshots prints a table of snapshots, newest first.
func writeSnapshots(w io.Writer, snaps []backup.Snapshot, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, snaps)
	}
	if len(snaps) == 0 {
		fmt.Fprintln(w, "No backups found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILENAME\tSIZE\tCREATED")
	for _, s := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			s.Filename, humanize.Bytes(uint64(s.Size)), humanize.Time(s.CreatedAt)) //nolint:gosec
	}
	return tw.Flush()
}

// writeStats prints database statistics.
func writeStats(w io.Writer, st *maintenance.Stats, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Database:     %s\n", st.Path)
	fmt.Fprintf(w, "File size:    %s\n", humanize.Bytes(uint64(st.DBFileSize)))  //nolint:gosec
	fmt.Fprintf(w, "WAL size:     %s\n", humanize.Bytes(uint64(st.WALFileSize))) //nolint:gosec
	fmt.Fprintf(w, "Pages:        %s x %s (%s free)\n",
		humanize.Comma(st.PageCount), humanize.Bytes(uint64(st.PageSize)), humanize.Comma(st.FreelistCount)) //nolint:gosec
	fmt.Fprintf(w, "Artists:      %s (%s local)\n", humanize.Comma(st.Artists), humanize.Comma(st.LocalArtists))
	fmt.Fprintf(w, "Genre tags:   %s\n", humanize.Comma(st.GenreTags))
	fmt.Fprintf(w, "Venue visits: %s\n", humanize.Comma(st.VenueVisits))
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
