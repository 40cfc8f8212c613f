package tasks

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/cache"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
)

// SnapshotEngine builds listening snapshots.
type SnapshotEngine interface {
	// Snapshot never fails: errors degrade to an empty or neutral snapshot.
	Snapshot(ctx context.Context) models.Snapshot
}

// FetchReport records how each resource in a snapshot was served.
type FetchReport struct {
	NowPlaying   cache.Kind
	RecentTracks cache.Kind
	TopTracks    cache.Kind
}

// NowPlayingEngine implements [SnapshotEngine] on top of a [services.ListeningService].
type NowPlayingEngine struct {
	spotify services.ListeningService
	logger  *log.Logger
}

// NewNowPlayingEngine creates a new engine. A nil logger defaults to [shared.NewLogger].
func NewNowPlayingEngine(spotify services.ListeningService, logger *log.Logger) *NowPlayingEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &NowPlayingEngine{spotify: spotify, logger: shared.WithLogger(logger, "task", "snapshot")}
}

// Configured reports whether upstream credentials are present.
func (e *NowPlayingEngine) Configured() bool {
	return e.spotify != nil && e.spotify.Configured()
}

// Snapshot implements [SnapshotEngine].
func (e *NowPlayingEngine) Snapshot(ctx context.Context) models.Snapshot {
	snapshot, _ := e.SnapshotWithReport(ctx)
	return snapshot
}

// SnapshotWithReport is [NowPlayingEngine.Snapshot] plus the per-resource cache outcome.
func (e *NowPlayingEngine) SnapshotWithReport(ctx context.Context) (snapshot models.Snapshot, report FetchReport) {
	if !e.Configured() {
		return models.EmptySnapshot(), report
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("snapshot panicked", "panic", r)
			snapshot, report = models.NeutralSnapshot(), FetchReport{}
		}
	}()

	token, err := e.spotify.AccessToken(ctx)
	if err != nil {
		e.logger.Warn("failed to acquire access token", "error", err)
		return models.NeutralSnapshot(), report
	}

	var (
		wg         sync.WaitGroup
		nowPlaying cache.Result[*models.Track]
		recent     cache.Result[[]models.Track]
		top        cache.Result[[]models.Track]
		panics     = make(chan any, 3)
	)

	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panics <- r
				}
			}()
			fn()
		}()
	}

	run(func() { nowPlaying = e.spotify.NowPlaying(ctx, token) })
	run(func() { recent = e.spotify.RecentTracks(ctx, token) })
	run(func() { top = e.spotify.TopTracks(ctx, token) })
	wg.Wait()
	close(panics)

	if r, ok := <-panics; ok {
		panic(r)
	}

	report = FetchReport{NowPlaying: nowPlaying.Kind, RecentTracks: recent.Kind, TopTracks: top.Kind}
	e.logger.Debug("snapshot fetched", "now_playing", report.NowPlaying, "recent_tracks", report.RecentTracks, "top_tracks", report.TopTracks)

	return Compose(nowPlaying.Data, recent.Data, top.Data), report
}

// Compose applies the now-playing promotion rule.
//
// The input slices are not modified.
func Compose(nowPlaying *models.Track, recent, top []models.Track) models.Snapshot {
	if recent == nil {
		recent = []models.Track{}
	}
	if top == nil {
		top = []models.Track{}
	}

	if nowPlaying != nil {
		return models.Snapshot{
			IsPlaying:    true,
			NowPlaying:   nowPlaying,
			RecentTracks: recent,
			TopTracks:    top,
		}
	}

	snapshot := models.Snapshot{RecentTracks: []models.Track{}, TopTracks: top}
	if len(recent) > 0 {
		first := recent[0]
		snapshot.NowPlaying = &first
		snapshot.RecentTracks = recent[1:]
	}
	return snapshot
}
