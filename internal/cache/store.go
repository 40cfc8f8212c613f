package cache

import (
	"time"

	"github.com/desertthunder/folio/internal/models"
)

// TTLs holds the time-to-live of each slot in a [Store].
type TTLs struct {
	Token        time.Duration
	NowPlaying   time.Duration
	RecentTracks time.Duration
	TopTracks    time.Duration
}

// DefaultTTLs returns 55m / 10s / 60s / 5m.
func DefaultTTLs() TTLs {
	return TTLs{
		Token:        55 * time.Minute,
		NowPlaying:   10 * time.Second,
		RecentTracks: 60 * time.Second,
		TopTracks:    5 * time.Minute,
	}
}

// Store is the process-wide cache shared by all request handlers.
type Store struct {
	Token        *Slot[string]
	NowPlaying   *Slot[*models.Track]
	RecentTracks *Slot[[]models.Track]
	TopTracks    *Slot[[]models.Track]
}

// NewStore builds an empty store. A nil clock defaults to [time.Now].
func NewStore(ttls TTLs, clock Clock) *Store {
	return &Store{
		Token:        NewSlot[string]("token", ttls.Token, clock),
		NowPlaying:   NewSlot[*models.Track]("now_playing", ttls.NowPlaying, clock),
		RecentTracks: NewSlot[[]models.Track]("recent_tracks", ttls.RecentTracks, clock),
		TopTracks:    NewSlot[[]models.Track]("top_tracks", ttls.TopTracks, clock),
	}
}

