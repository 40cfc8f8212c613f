package models

import "encoding/json"

// Track is the stable, service-independent shape of a song.
//
// Nullable fields are pointers so they marshal as JSON null.
type Track struct {
	Title         string  `json:"title"`
	Artist        string  `json:"artist"`
	Album         string  `json:"album"`
	AlbumArt      *string `json:"albumArt"`
	AlbumArtSmall *string `json:"albumArtSmall"`
	SongURL       string  `json:"songUrl"`
	PreviewURL    *string `json:"previewUrl"`
}

// Snapshot is a best-effort view of what the owner is listening to.
type Snapshot struct {
	IsPlaying    bool    `json:"isPlaying"`
	NowPlaying   *Track  `json:"nowPlaying"`
	RecentTracks []Track `json:"recentTracks"`
	TopTracks    []Track `json:"topTracks"`

	// unconfigured snapshots omit nowPlaying entirely
	omitNowPlaying bool
}

// EmptySnapshot is served when upstream credentials are not configured.
// It carries no nowPlaying key at all.
func EmptySnapshot() Snapshot {
	return Snapshot{RecentTracks: []Track{}, TopTracks: []Track{}, omitNowPlaying: true}
}

// NeutralSnapshot is served when the request path fails.
// Unlike [EmptySnapshot] it reports nowPlaying as null.
func NeutralSnapshot() Snapshot {
	return Snapshot{RecentTracks: []Track{}, TopTracks: []Track{}}
}

// DisplayTrack returns the track a viewer should feature: the live track, or the most recent one.
func (s Snapshot) DisplayTrack() *Track {
	if s.NowPlaying != nil {
		return s.NowPlaying
	}
	if len(s.RecentTracks) > 0 {
		return &s.RecentTracks[0]
	}
	return nil
}

// MarshalJSON encodes nil track lists as empty arrays and honors the unconfigured shape.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	recent := s.RecentTracks
	if recent == nil {
		recent = []Track{}
	}
	top := s.TopTracks
	if top == nil {
		top = []Track{}
	}

	if s.omitNowPlaying {
		return json.Marshal(struct {
			IsPlaying    bool    `json:"isPlaying"`
			RecentTracks []Track `json:"recentTracks"`
			TopTracks    []Track `json:"topTracks"`
		}{s.IsPlaying, recent, top})
	}

	return json.Marshal(struct {
		IsPlaying    bool    `json:"isPlaying"`
		NowPlaying   *Track  `json:"nowPlaying"`
		RecentTracks []Track `json:"recentTracks"`
		TopTracks    []Track `json:"topTracks"`
	}{s.IsPlaying, s.NowPlaying, recent, top})
}
