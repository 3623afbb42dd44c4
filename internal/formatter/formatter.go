// package formatter provides functions to export saved tracks and playlists to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/stash/internal/services"
	"github.com/desertthunder/stash/internal/shared"
)

// Format names accepted by [Export].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Formats lists every supported format.
var Formats = []string{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// trackRecord is the JSON shape of an exported track.
type trackRecord struct {
	ID       string `json:"id"`
	URI      string `json:"uri"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Duration int    `json:"duration"`
	ISRC     string `json:"isrc,omitempty"`
	AddedAt  string `json:"added_at,omitempty"`
	IsLocal  bool   `json:"is_local,omitempty"`
}

// Export renders tracks in the named format.
func Export(format string, tracks []services.Track) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return ExportToJSON(tracks)
	case FormatCSV:
		return ExportToCSV(tracks)
	case FormatMarkdown, "md":
		return ExportToMarkdown("Saved Tracks", tracks)
	case FormatText, "text":
		return ExportToText(tracks)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// ExportToJSON converts tracks to an indented JSON array
func ExportToJSON(tracks []services.Track) ([]byte, error) {
	records := make([]trackRecord, len(tracks))
	for i, t := range tracks {
		records[i] = trackRecord{
			ID:       t.ID,
			URI:      t.URI,
			Title:    t.Title,
			Artist:   t.Artist,
			Album:    t.Album,
			Duration: t.Duration,
			ISRC:     t.ISRC,
			AddedAt:  formatAddedAt(t.AddedAt),
			IsLocal:  t.IsLocal,
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV converts tracks to CSV format with columns: ID, URI, Title, Artist, Album, Duration, ISRC, Added
func ExportToCSV(tracks []services.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "URI", "Title", "Artist", "Album", "Duration", "ISRC", "Added"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		record := []string{
			track.ID,
			track.URI,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.Duration),
			track.ISRC,
			formatAddedAt(track.AddedAt),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts tracks to a Markdown list under title
func ExportToMarkdown(title string, tracks []services.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range tracks {
		duration := FormatDuration(track.Duration)
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, track.Artist, track.Title, albumPart, duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts tracks to plain text format
func ExportToText(tracks []services.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Saved tracks: %d\n\n", len(tracks)))
	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Title))
	}

	return buf.Bytes(), nil
}

// WritePlaylists prints playlists as a numbered list, or as JSON when asJSON is set
func WritePlaylists(w io.Writer, playlists []services.Playlist, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(playlists); err != nil {
			return fmt.Errorf("failed to encode playlists: %w", err)
		}
		return nil
	}

	for i, p := range playlists {
		if _, err := fmt.Fprintf(w, "%3d. %s [%s] %d tracks, %s, by %s\n",
			i+1, p.Name, p.ID, p.TrackCount, VisibilityString(p.Public), p.Owner); err != nil {
			return fmt.Errorf("failed to write playlist: %w", err)
		}
	}
	return nil
}

// WriteExport renders tracks and writes them to path, or to w when path is empty.
func WriteExport(w io.Writer, format string, tracks []services.Track, path string) error {
	data, err := Export(format, tracks)
	if err != nil {
		return err
	}

	if path == "" {
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// FormatDuration renders seconds as m:ss, or h:mm:ss past an hour
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// VisibilityString returns "public" or "private"
func VisibilityString(public bool) string {
	if public {
		return "public"
	}
	return "private"
}

func formatAddedAt(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
