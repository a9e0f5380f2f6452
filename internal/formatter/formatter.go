// package formatter renders catalog search results as plain text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/spotify2apple/internal/applemusic"
	"github.com/desertthunder/spotify2apple/internal/models"
	"github.com/desertthunder/spotify2apple/internal/shared"
)

// Format names accepted by [Render].
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
	FormatJSON     = "json"
)

// SearchExport is a flattened search result ready for rendering.
type SearchExport struct {
	Term       string         `json:"term"`
	Storefront string         `json:"storefront"`
	Next       string         `json:"next,omitempty"`
	Tracks     []models.Track `json:"tracks"`
}

// NewSearchExport flattens the songs page of a search response.
func NewSearchExport(term, storefront string, res *applemusic.SearchResponse) (*SearchExport, error) {
	tracks, err := SongTracks(res)
	if err != nil {
		return nil, err
	}
	export := &SearchExport{Term: term, Storefront: storefront, Tracks: tracks}
	if page, ok := res.Results["songs"]; ok {
		export.Next = page.Next
	}
	return export, nil
}

// SongTracks converts the songs of a search response to [models.Track] values.
func SongTracks(res *applemusic.SearchResponse) ([]models.Track, error) {
	if res == nil {
		return nil, nil
	}
	songs, err := res.Songs()
	if err != nil {
		return nil, err
	}
	tracks := make([]models.Track, 0, len(songs))
	for _, s := range songs {
		tracks = append(tracks, SongTrack(s))
	}
	return tracks, nil
}

// SongTrack converts one song result, rounding its duration to whole seconds.
func SongTrack(s applemusic.SongResult) models.Track {
	return models.Track{
		ID:       s.ID,
		Title:    s.Attributes.Name,
		Artist:   s.Attributes.ArtistName,
		Album:    s.Attributes.AlbumName,
		Duration: int((s.Attributes.DurationInMillis + 500) / 1000),
		ISRC:     s.Attributes.ISRC,
		URL:      s.Attributes.URL,
	}
}

// Render dispatches to the exporter for format.
func Render(export *SearchExport, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return ExportToText(export)
	case FormatMarkdown, "md":
		return ExportToMarkdown(export)
	case FormatCSV:
		return ExportToCSV(export)
	case FormatJSON:
		return ExportToJSON(export)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, format)
	}
}

// ExportToCSV converts a SearchExport to CSV format with columns: ID, Title, Artist, Album, Duration, ISRC, URL
func ExportToCSV(export *SearchExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "Duration", "ISRC", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.Duration),
			track.ISRC,
			track.URL,
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

// ExportToMarkdown converts a SearchExport to Markdown format
func ExportToMarkdown(export *SearchExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Search: %s\n\n", export.Term)
	fmt.Fprintf(&buf, "**Storefront**: %s\n", export.Storefront)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(export.Tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]", i+1, track.Artist, track.Title, albumPart, shared.FormatDuration(track.Duration))
		if track.ISRC != "" {
			fmt.Fprintf(&buf, " `%s`", track.ISRC)
		}
		buf.WriteString("\n")
	}

	if export.Next != "" {
		fmt.Fprintf(&buf, "\n_More results: %s_\n", export.Next)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a SearchExport to styled terminal text
func ExportToText(export *SearchExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(styles.title.Render(fmt.Sprintf("Search: %s (%s)", export.Term, export.Storefront)))
	buf.WriteString("\n")

	if len(export.Tracks) == 0 {
		buf.WriteString(styles.help.Render("No songs found"))
		buf.WriteString("\n")
		return buf.Bytes(), nil
	}

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%2d. %s - %s", i+1, styles.name.Render(track.Title), track.Artist)
		if track.Album != "" {
			fmt.Fprintf(&buf, " (%s)", track.Album)
		}
		fmt.Fprintf(&buf, " [%s]\n", shared.FormatDuration(track.Duration))
		fmt.Fprintf(&buf, "    %s\n", styles.help.Render("id "+track.ID+isrcSuffix(track.ISRC)))
	}

	return buf.Bytes(), nil
}

func isrcSuffix(isrc string) string {
	if isrc == "" {
		return ""
	}
	return " · isrc " + isrc
}

// ExportToJSON converts a SearchExport to indented JSON
func ExportToJSON(export *SearchExport) ([]byte, error) {
	data, err := shared.MarshalJSON(export, true)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteExport renders export in format and writes it to path.
func WriteExport(export *SearchExport, format, path string) error {
	data, err := Render(export, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}
