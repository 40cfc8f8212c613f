// package formatter renders listening snapshots as CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/shared"
)

// Format names accepted by [Render].
const (
	FormatJSON     = "json"
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// Formats lists every supported output format.
var Formats = []string{FormatJSON, FormatText, FormatMarkdown, FormatCSV}

// Render dispatches to the renderer for format.
func Render(snapshot models.Snapshot, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return shared.MarshalJSON(snapshot, true)
	case FormatText, "txt":
		return SnapshotToText(snapshot)
	case FormatMarkdown, "md":
		return SnapshotToMarkdown(snapshot, "")
	case FormatCSV:
		return SnapshotToCSV(snapshot)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// statusLabel describes the featured track the way a viewer would.
func statusLabel(s models.Snapshot) string {
	if s.IsPlaying {
		return "Now Playing"
	}
	return "Last Played"
}

func trackLine(t models.Track) string {
	if t.Artist == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// SnapshotToCSV writes one row per track with columns: Section, Position, Title, Artist, Album, URL
func SnapshotToCSV(s models.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Section", "Position", "Title", "Artist", "Album", "URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	write := func(section string, tracks []models.Track) error {
		for i, t := range tracks {
			record := []string{section, strconv.Itoa(i + 1), t.Title, t.Artist, t.Album, t.SongURL}
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		return nil
	}

	if s.NowPlaying != nil {
		section := "last_played"
		if s.IsPlaying {
			section = "now_playing"
		}
		if err := write(section, []models.Track{*s.NowPlaying}); err != nil {
			return nil, err
		}
	}
	if err := write("recent", s.RecentTracks); err != nil {
		return nil, err
	}
	if err := write("top", s.TopTracks); err != nil {
		return nil, err
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// SnapshotToMarkdown renders a snapshot with an optional cover image reference.
//
// An empty coverImage falls back to the featured track's remote album art.
func SnapshotToMarkdown(s models.Snapshot, coverImage string) ([]byte, error) {
	var buf bytes.Buffer

	if s.NowPlaying != nil {
		t := s.NowPlaying
		fmt.Fprintf(&buf, "# %s\n\n", statusLabel(s))

		if coverImage == "" && t.AlbumArt != nil {
			coverImage = *t.AlbumArt
		}
		if coverImage != "" {
			fmt.Fprintf(&buf, "![%s](%s)\n\n", t.Album, coverImage)
		}

		if t.SongURL != "" {
			fmt.Fprintf(&buf, "**[%s](%s)**\n\n", t.Title, t.SongURL)
		} else {
			fmt.Fprintf(&buf, "**%s**\n\n", t.Title)
		}
		fmt.Fprintf(&buf, "**Artist**: %s\n", t.Artist)
		fmt.Fprintf(&buf, "**Album**: %s\n\n", t.Album)
	} else {
		buf.WriteString("# Nothing Playing\n\n")
	}

	section := func(title string, tracks []models.Track) {
		if len(tracks) == 0 {
			return
		}
		fmt.Fprintf(&buf, "## %s\n\n", title)
		for i, t := range tracks {
			albumPart := ""
			if t.Album != "" {
				albumPart = fmt.Sprintf(" (%s)", t.Album)
			}
			fmt.Fprintf(&buf, "%d. %s%s\n", i+1, trackLine(t), albumPart)
		}
		buf.WriteString("\n")
	}

	section("Recently Played", s.RecentTracks)
	section("Top Tracks", s.TopTracks)

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// SnapshotToText renders a snapshot as plain text.
func SnapshotToText(s models.Snapshot) ([]byte, error) {
	var buf bytes.Buffer

	if s.NowPlaying != nil {
		fmt.Fprintf(&buf, "%s: %s\n", statusLabel(s), trackLine(*s.NowPlaying))
		if s.NowPlaying.Album != "" {
			fmt.Fprintf(&buf, "Album: %s\n", s.NowPlaying.Album)
		}
	} else {
		buf.WriteString("Nothing playing\n")
	}

	list := func(title string, tracks []models.Track) {
		if len(tracks) == 0 {
			return
		}
		fmt.Fprintf(&buf, "\n%s:\n", title)
		for i, t := range tracks {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, trackLine(t))
		}
	}

	list("Recently played", s.RecentTracks)
	list("Top tracks", s.TopTracks)

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrMissingArgument)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// MarkdownExportResult contains information about files created by [WriteMarkdownExport]
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
	// CoverErr is set when the album art could not be saved; the README is still written.
	CoverErr error
}

// WriteMarkdownExport writes {dir}/README.md and, when the featured track has album art, {dir}/cover.jpg.
func WriteMarkdownExport(ctx context.Context, client *http.Client, s models.Snapshot, outputDir string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("%w: output directory", shared.ErrMissingArgument)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var cover string
	if t := s.NowPlaying; t != nil && t.AlbumArt != nil {
		if data, err := DownloadImage(ctx, client, *t.AlbumArt); err != nil {
			result.CoverErr = err
		} else {
			path := filepath.Join(outputDir, "cover.jpg")
			if err := os.WriteFile(path, data, 0644); err != nil {
				result.CoverErr = fmt.Errorf("failed to save cover image: %w", err)
			} else {
				cover = "cover.jpg"
				result.CoverImage = path
				result.Files = append(result.Files, path)
			}
		}
	}

	md, err := SnapshotToMarkdown(s, cover)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, md, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}
