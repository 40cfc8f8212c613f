package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/folio/internal/models"
)

// DefaultInterval matches how often the site's player polls.
const DefaultInterval = 30 * time.Second

// SnapshotSource fetches the current snapshot, usually [services.APIService].
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
}

// Tab selects which track list is shown below the featured track.
type Tab int

const (
	RecentTab Tab = iota
	TopTab
)

func (t Tab) String() string {
	if t == TopTab {
		return "Top Tracks"
	}
	return "Recently Played"
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	source   SnapshotSource
	interval time.Duration
	now      func() time.Time

	snapshot *models.Snapshot
	err      error
	updated  time.Time
	loading  bool

	tab    Tab
	tracks list.Model
	width  int
	height int
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model. A non-positive interval falls back to [DefaultInterval].
func NewModel(ctx context.Context, source SnapshotSource, interval time.Duration) *Model {
	if interval <= 0 {
		interval = DefaultInterval
	}

	tracks := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	tracks.SetShowHelp(false)
	tracks.SetFilteringEnabled(false)
	tracks.SetShowStatusBar(false)
	tracks.Title = RecentTab.String()

	return &Model{
		ctx:      ctx,
		source:   source,
		interval: interval,
		now:      time.Now,
		tracks:   tracks,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init fetches the first snapshot and starts the poll timer.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return tea.Batch(m.fetch(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeList()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgSnapshotFetched:
			res := msg.data.(snapshotResult)
			m.loading = false
			m.err = res.err
			if res.err == nil {
				m.snapshot = res.snapshot
				m.updated = res.at
				m.syncList()
			}
			return m, nil

		case MsgTick:
			if m.loading {
				return m, m.tick()
			}
			m.loading = true
			return m, tea.Batch(m.fetch(), m.tick())
		}
	}

	var cmd tea.Cmd
	m.tracks, cmd = m.tracks.Update(msg)
	return m, cmd
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.fetch()
	case key.Matches(msg, m.keys.tab):
		if m.tab == RecentTab {
			m.tab = TopTab
		} else {
			m.tab = RecentTab
		}
		m.syncList()
		return m, nil
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	var cmd tea.Cmd
	m.tracks, cmd = m.tracks.Update(msg)
	return m, cmd
}

// View renders the featured track, the selected track list and help.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("folio"))
	b.WriteString("\n")
	b.WriteString(m.renderFeatured())
	b.WriteString("\n\n")

	if m.snapshot != nil {
		b.WriteString(m.tracks.View())
		b.WriteString("\n\n")
	}

	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))

	return b.String()
}

func (m *Model) renderFeatured() string {
	if m.snapshot == nil {
		if m.err != nil {
			return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
		}
		return styles.help.Render("Loading...")
	}

	track := m.snapshot.DisplayTrack()
	if track == nil {
		return styles.card.Render(styles.help.Render("Nothing playing"))
	}

	label := styles.help.Render("Last played")
	if m.snapshot.IsPlaying {
		label = styles.ok.Render("● Now playing")
	}

	lines := []string{
		label,
		styles.title.UnsetMarginBottom().Render(track.Title),
		track.Artist,
	}
	if track.Album != "" {
		lines = append(lines, styles.help.Render(track.Album))
	}
	if track.SongURL != "" {
		lines = append(lines, styles.As(track.SongURL, lipgloss.Color("#626262")))
	}

	return styles.card.Render(strings.Join(lines, "\n"))
}

func (m *Model) renderStatus() string {
	var parts []string
	if m.loading {
		parts = append(parts, "refreshing...")
	}
	if !m.updated.IsZero() {
		parts = append(parts, "updated "+m.updated.Format("15:04:05"))
	}
	if m.err != nil && m.snapshot != nil {
		return styles.warn.Render(fmt.Sprintf("refresh failed: %v", m.err))
	}
	return styles.help.Render(strings.Join(parts, " · "))
}

// syncList shows the tab's tracks. The featured last-played track is already removed from recent.
func (m *Model) syncList() {
	m.tracks.Title = m.tab.String()
	if m.snapshot == nil {
		m.tracks.SetItems(nil)
		return
	}

	tracks := m.snapshot.RecentTracks
	if m.tab == TopTab {
		tracks = m.snapshot.TopTracks
	}
	m.tracks.SetItems(trackItems(tracks))
}

func (m *Model) resizeList() {
	// featured card, status and help take roughly 12 rows
	h := m.height - 12
	if h < 4 {
		h = 4
	}
	m.tracks.SetSize(m.width-4, h)
}

func (m *Model) fetch() tea.Cmd {
	return func() tea.Msg {
		snapshot, err := m.source.Snapshot(m.ctx)
		return snapshotFetchedMsg(snapshot, err, m.now())
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
