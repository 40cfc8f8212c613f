package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/folio/internal/models"
)

type stubSource struct {
	snapshot *models.Snapshot
	err      error
	calls    int
}

func (s *stubSource) Snapshot(context.Context) (*models.Snapshot, error) {
	s.calls++
	return s.snapshot, s.err
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(src SnapshotSource) *Model {
	m := NewModel(context.Background(), src, time.Minute)
	m.now = func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC) }
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	return m
}

func lastPlayed() *models.Snapshot {
	return &models.Snapshot{
		NowPlaying:   &models.Track{Title: "Old Song", Artist: "Old Artist"},
		RecentTracks: []models.Track{{Title: "Older Song", Artist: "Someone"}},
		TopTracks:    []models.Track{{Title: "Top Song", Artist: "Top Artist"}},
	}
}

func TestModel(t *testing.T) {
	t.Run("defaults interval", func(t *testing.T) {
		m := NewModel(context.Background(), &stubSource{}, 0)
		if m.interval != DefaultInterval {
			t.Errorf("expected %v, got %v", DefaultInterval, m.interval)
		}
	})

	t.Run("loading view", func(t *testing.T) {
		m := newTestModel(&stubSource{})
		m.Init()

		if !m.loading {
			t.Error("expected loading after Init")
		}
		if !strings.Contains(m.View(), "Loading...") {
			t.Errorf("expected loading text, got:\n%s", m.View())
		}
	})

	t.Run("refresh fetches snapshot", func(t *testing.T) {
		src := &stubSource{snapshot: lastPlayed()}
		m := newTestModel(src)

		_, cmd := m.Update(keyRunes("r"))
		if cmd == nil {
			t.Fatal("expected fetch command")
		}
		if !m.loading {
			t.Error("expected loading while fetching")
		}

		m.Update(cmd())

		if src.calls != 1 {
			t.Errorf("expected 1 fetch, got %d", src.calls)
		}
		view := m.View()
		for _, want := range []string{"Last played", "Old Song", "Older Song", "updated 09:30:00"} {
			if !strings.Contains(view, want) {
				t.Errorf("expected %q in view:\n%s", want, view)
			}
		}
	})

	t.Run("refresh ignored while loading", func(t *testing.T) {
		m := newTestModel(&stubSource{})
		m.loading = true

		if _, cmd := m.Update(keyRunes("r")); cmd != nil {
			t.Error("expected no command while loading")
		}
	})

	t.Run("now playing label", func(t *testing.T) {
		m := newTestModel(&stubSource{})
		snapshot := lastPlayed()
		snapshot.IsPlaying = true
		m.Update(snapshotFetchedMsg(snapshot, nil, time.Now()))

		if !strings.Contains(m.View(), "Now playing") {
			t.Errorf("expected now playing label, got:\n%s", m.View())
		}
	})

	t.Run("falls back to first recent track", func(t *testing.T) {
		m := newTestModel(&stubSource{})
		m.Update(snapshotFetchedMsg(&models.Snapshot{
			RecentTracks: []models.Track{{Title: "Fallback"}},
		}, nil, time.Now()))

		if !strings.Contains(m.renderFeatured(), "Fallback") {
			t.Errorf("expected fallback track, got:\n%s", m.renderFeatured())
		}
	})

	t.Run("nothing playing", func(t *testing.T) {
		m := newTestModel(&stubSource{})
		neutral := models.NeutralSnapshot()
		m.Update(snapshotFetchedMsg(&neutral, nil, time.Now()))

		if !strings.Contains(m.View(), "Nothing playing") {
			t.Errorf("expected nothing playing, got:\n%s", m.View())
		}
	})

	t.Run("tab switches lists", func(t *testing.T) {
		m := newTestModel(&stubSource{})
		m.Update(snapshotFetchedMsg(lastPlayed(), nil, time.Now()))

		m.Update(tea.KeyMsg{Type: tea.KeyTab})

		if m.tab != TopTab {
			t.Fatalf("expected top tab, got %v", m.tab)
		}
		if !strings.Contains(m.View(), "Top Song") {
			t.Errorf("expected top tracks in view:\n%s", m.View())
		}

		m.Update(tea.KeyMsg{Type: tea.KeyTab})
		if m.tab != RecentTab {
			t.Errorf("expected recent tab, got %v", m.tab)
		}
	})

	t.Run("failed refresh keeps snapshot", func(t *testing.T) {
		m := newTestModel(&stubSource{})
		m.Update(snapshotFetchedMsg(lastPlayed(), nil, time.Now()))
		m.Update(snapshotFetchedMsg(nil, errors.New("server down"), time.Now()))

		view := m.View()
		if !strings.Contains(view, "Old Song") || !strings.Contains(view, "refresh failed: server down") {
			t.Errorf("expected stale snapshot with error, got:\n%s", view)
		}
	})

	t.Run("error without snapshot", func(t *testing.T) {
		m := newTestModel(&stubSource{})
		m.Update(snapshotFetchedMsg(nil, errors.New("server down"), time.Now()))

		if !strings.Contains(m.View(), "Error: server down") {
			t.Errorf("expected error, got:\n%s", m.View())
		}
	})

	t.Run("tick schedules fetch", func(t *testing.T) {
		m := newTestModel(&stubSource{})

		if _, cmd := m.Update(tickMsg(time.Now())); cmd == nil {
			t.Error("expected command on tick")
		}
		if !m.loading {
			t.Error("expected loading after tick")
		}
	})

	t.Run("quit", func(t *testing.T) {
		m := newTestModel(&stubSource{})

		_, cmd := m.Update(keyRunes("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}
