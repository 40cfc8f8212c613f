package formatter

import (
	"context"
	"encoding/csv"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/shared"
	th "github.com/desertthunder/folio/internal/testing"
)

func strPtr(s string) *string { return &s }

func sampleSnapshot(playing bool) models.Snapshot {
	return models.Snapshot{
		IsPlaying: playing,
		NowPlaying: &models.Track{
			Title:    "Song One",
			Artist:   "Artist One",
			Album:    "Album One",
			AlbumArt: strPtr("https://img/one/640"),
			SongURL:  "https://open.spotify.com/track/one",
		},
		RecentTracks: []models.Track{
			{Title: "Song Two", Artist: "Artist Two", Album: "Album Two"},
			{Title: "Song, Three", Artist: "Artist Three"},
		},
		TopTracks: []models.Track{
			{Title: "Top Song", Artist: "Top Artist", Album: "Top Album"},
		},
	}
}

func TestRenderers(t *testing.T) {
	t.Run("SnapshotToCSV", func(t *testing.T) {
		data, err := SnapshotToCSV(sampleSnapshot(true))
		if err != nil {
			t.Fatalf("SnapshotToCSV failed: %v", err)
		}

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}

		if strings.Join(records[0], ",") != "Section,Position,Title,Artist,Album,URL" {
			t.Errorf("CSV missing headers, got: %v", records[0])
		}
		if len(records) != 5 {
			t.Fatalf("expected 5 rows, got %d", len(records))
		}
		if records[1][0] != "now_playing" || records[1][2] != "Song One" {
			t.Errorf("unexpected first row %v", records[1])
		}
		if records[3][2] != "Song, Three" || records[3][1] != "2" {
			t.Errorf("expected quoted title in recent row, got %v", records[3])
		}
		if records[4][0] != "top" {
			t.Errorf("expected top row last, got %v", records[4])
		}
	})

	t.Run("SnapshotToCSV last played", func(t *testing.T) {
		data, _ := SnapshotToCSV(sampleSnapshot(false))
		if !strings.Contains(string(data), "last_played,1,Song One") {
			t.Errorf("expected last_played row, got %s", data)
		}
	})

	t.Run("SnapshotToMarkdown", func(t *testing.T) {
		t.Run("without cover image", func(t *testing.T) {
			data, err := SnapshotToMarkdown(sampleSnapshot(true), "")
			if err != nil {
				t.Fatalf("SnapshotToMarkdown failed: %v", err)
			}
			output := string(data)

			for _, want := range []string{
				"# Now Playing",
				"![Album One](https://img/one/640)",
				"**[Song One](https://open.spotify.com/track/one)**",
				"## Recently Played",
				"1. Artist Two - Song Two (Album Two)",
				"## Top Tracks",
			} {
				if !strings.Contains(output, want) {
					t.Errorf("Markdown missing %q, got:\n%s", want, output)
				}
			}
		})

		t.Run("with cover image", func(t *testing.T) {
			data, _ := SnapshotToMarkdown(sampleSnapshot(false), "cover.jpg")
			output := string(data)

			if !strings.Contains(output, "# Last Played") || !strings.Contains(output, "(cover.jpg)") {
				t.Errorf("expected local cover reference, got:\n%s", output)
			}
		})

		t.Run("nothing playing", func(t *testing.T) {
			data, _ := SnapshotToMarkdown(models.NeutralSnapshot(), "")
			if string(data) != "# Nothing Playing" {
				t.Errorf("unexpected output %q", data)
			}
		})
	})

	t.Run("SnapshotToText", func(t *testing.T) {
		data, err := SnapshotToText(sampleSnapshot(true))
		if err != nil {
			t.Fatalf("SnapshotToText failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "Now Playing: Artist One - Song One\n") {
			t.Errorf("unexpected header, got:\n%s", output)
		}
		if !strings.Contains(output, "Recently played:\n1. Artist Two - Song Two\n2. Artist Three - Song, Three\n") {
			t.Errorf("unexpected recent list, got:\n%s", output)
		}
		if !strings.Contains(output, "Top tracks:\n1. Top Artist - Top Song\n") {
			t.Errorf("unexpected top list, got:\n%s", output)
		}
	})

	t.Run("Render", func(t *testing.T) {
		tests := []struct {
			format string
			want   string
		}{
			{"json", `"isPlaying": true`},
			{"", `"isPlaying": true`},
			{"text", "Now Playing:"},
			{"md", "# Now Playing"},
			{"CSV", "Section,Position"},
		}

		for _, tt := range tests {
			t.Run(tt.format, func(t *testing.T) {
				data, err := Render(sampleSnapshot(true), tt.format)
				if err != nil {
					t.Fatalf("Render failed: %v", err)
				}
				if !strings.Contains(string(data), tt.want) {
					t.Errorf("expected %q in output, got:\n%s", tt.want, data)
				}
			})
		}

		t.Run("unknown format", func(t *testing.T) {
			_, err := Render(sampleSnapshot(true), "yaml")
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(context.Background(), nil, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("NonOKStatus", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		if _, err := DownloadImage(context.Background(), server.Client(), server.URL); err == nil {
			t.Error("expected error for 404")
		}
	})
}

func TestWriteMarkdownExport(t *testing.T) {
	t.Run("with album art", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpeg-bytes"))
		}))
		defer server.Close()

		snapshot := sampleSnapshot(true)
		snapshot.NowPlaying.AlbumArt = strPtr(server.URL + "/art")
		dir := filepath.Join(t.TempDir(), "export")

		result, err := WriteMarkdownExport(context.Background(), server.Client(), snapshot, dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}

		th.AssertFileExists(t, result.CoverImage)
		if got := th.MustReadFile(t, result.CoverImage); got != "jpeg-bytes" {
			t.Errorf("unexpected cover content %q", got)
		}
		readme := th.MustReadFile(t, filepath.Join(dir, "README.md"))
		if !strings.Contains(readme, "(cover.jpg)") {
			t.Errorf("expected README to reference cover.jpg, got:\n%s", readme)
		}
		if len(result.Files) != 2 {
			t.Errorf("expected 2 files, got %v", result.Files)
		}
	})

	t.Run("cover download fails", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		snapshot := sampleSnapshot(true)
		snapshot.NowPlaying.AlbumArt = strPtr(server.URL + "/art")
		dir := t.TempDir()

		result, err := WriteMarkdownExport(context.Background(), server.Client(), snapshot, dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}
		if result.CoverErr == nil {
			t.Error("expected CoverErr")
		}
		if _, err := os.Stat(filepath.Join(dir, "cover.jpg")); !os.IsNotExist(err) {
			t.Error("expected no cover.jpg")
		}
		th.AssertFileExists(t, filepath.Join(dir, "README.md"))
	})

	t.Run("requires directory", func(t *testing.T) {
		if _, err := WriteMarkdownExport(context.Background(), nil, sampleSnapshot(true), ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}
