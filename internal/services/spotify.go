// Spotify API implementation of [ListeningService] and [OAuthService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/cache"
	"github.com/desertthunder/folio/internal/models"
	"github.com/desertthunder/folio/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Scopes requested by the authorization flow.
var Scopes = []string{
	"user-read-currently-playing",
	"user-read-recently-played",
	"user-top-read",
}

// errNoContent marks a 204 from the API. Only the currently-playing endpoint treats it as success.
var errNoContent = fmt.Errorf("%w: no content", shared.ErrAPIRequest)

// StatusError is returned when the Spotify API answers with an unexpected status.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify API error: status %d from %s", e.StatusCode, e.Endpoint)
}

// Unwrap lets callers match [shared.ErrAPIRequest].
func (e *StatusError) Unwrap() error {
	return shared.ErrAPIRequest
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	ExternalURLs externalURLs    `json:"external_urls"`
	PreviewURL   *string         `json:"preview_url"`
	DurationMS   int             `json:"duration_ms"`
}

// SpotifyCurrentlyPlaying is the currently-playing payload.
//
// Item is nil when nothing is playing; for podcast episodes and ads it does not hold a track.
type SpotifyCurrentlyPlaying struct {
	IsPlaying            bool          `json:"is_playing"`
	CurrentlyPlayingType string        `json:"currently_playing_type"`
	ProgressMS           int           `json:"progress_ms"`
	Item                 *SpotifyTrack `json:"item"`
}

// SpotifyPlayHistory is one entry of the recently-played list.
type SpotifyPlayHistory struct {
	Track    *SpotifyTrack `json:"track"`
	PlayedAt string        `json:"played_at"`
}

type recentlyPlayed struct {
	Items []SpotifyPlayHistory `json:"items"`
}

type topTracks struct {
	Items []SpotifyTrack `json:"items"`
}

// FormatTrack normalizes a Spotify track.
//
// Album images are ordered largest first, so the last image approximates the smallest.
func FormatTrack(track SpotifyTrack) models.Track {
	names := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		names = append(names, a.Name)
	}

	t := models.Track{
		Title:      track.Name,
		Artist:     strings.Join(names, ", "),
		Album:      track.Album.Name,
		SongURL:    track.ExternalURLs.Spotify,
		PreviewURL: track.PreviewURL,
	}

	if images := track.Album.Images; len(images) > 0 {
		first, last := images[0].URL, images[len(images)-1].URL
		t.AlbumArt = &first
		t.AlbumArtSmall = &last
	}

	return t
}

// SpotifyOpts contains dependencies for [NewSpotifyService].
type SpotifyOpts struct {
	Config     *shared.Config
	Cache      *cache.Store
	HTTPClient *http.Client
	Logger     *log.Logger
}

// SpotifyService implements [ListeningService] and [OAuthService] for the Spotify Web API.
//
// Uses [oauth2] for the refresh-token grant and authorization code exchange.
type SpotifyService struct {
	config       *oauth2.Config
	apiURL       string
	recentLimit  int
	topLimit     int
	topTimeRange string
	cache        *cache.Store
	httpClient   *http.Client
	logger       *log.Logger
	staleLog     rate.Sometimes

	mu           sync.RWMutex
	refreshToken string
}

// NewSpotifyService creates a Spotify service. Missing credentials are allowed; see [SpotifyService.Configured].
func NewSpotifyService(opts SpotifyOpts) *SpotifyService {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Cache == nil {
		c := opts.Config.Cache
		opts.Cache = cache.NewStore(cache.TTLs{
			Token:        c.TokenTTL.Duration,
			NowPlaying:   c.NowPlayingTTL.Duration,
			RecentTracks: c.RecentTracksTTL.Duration,
			TopTracks:    c.TopTracksTTL.Duration,
		}, nil)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	creds := opts.Config.Credentials.Spotify
	api := opts.Config.Spotify

	return &SpotifyService{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   api.AuthURL,
				TokenURL:  api.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiURL:       strings.TrimRight(api.APIURL, "/"),
		recentLimit:  api.RecentLimit,
		topLimit:     api.TopLimit,
		topTimeRange: api.TopTimeRange,
		cache:        opts.Cache,
		httpClient:   opts.HTTPClient,
		logger:       shared.WithLogger(opts.Logger, "service", "spotify"),
		staleLog:     rate.Sometimes{Interval: time.Minute},
		refreshToken: creds.RefreshToken,
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Cache returns the store backing this service.
func (s *SpotifyService) Cache() *cache.Store {
	return s.cache
}

// Configured reports whether the refresh-token grant can be attempted.
func (s *SpotifyService) Configured() bool {
	return shared.SpotifyConfig{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		RefreshToken: s.RefreshToken(),
	}.Configured()
}

// RefreshToken returns the refresh token currently in use.
func (s *SpotifyService) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// AuthURL returns the OAuth2 authorization URL for the one-time setup flow.
func (s *SpotifyService) AuthURL() string {
	return s.config.AuthCodeURL("")
}

// Exchange trades an authorization code for an access and refresh token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, shared.ErrMissingCode
	}
	return s.config.Exchange(s.oauthContext(ctx), code)
}

// AccessToken returns a bearer token, performing a refresh-token grant when the cached one is stale.
//
// Unlike resource fetches, a failed grant is an error even if an expired token is cached.
func (s *SpotifyService) AccessToken(ctx context.Context) (string, error) {
	result := s.cache.Token.Load(ctx, s.refreshAccessToken)
	if result.Kind != cache.Fresh {
		return "", result.Err
	}
	return result.Data, nil
}

func (s *SpotifyService) refreshAccessToken(ctx context.Context) (string, error) {
	rt := s.RefreshToken()
	if rt == "" {
		return "", shared.ErrNoRefreshToken
	}

	s.logger.Debug("refreshing access token")

	token, err := s.config.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: rt}).Token()
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	if token.RefreshToken != "" && token.RefreshToken != rt {
		s.mu.Lock()
		s.refreshToken = token.RefreshToken
		s.mu.Unlock()
		s.logger.Info("refresh token rotated")
	}

	return token.AccessToken, nil
}

// oauthContext makes the oauth2 package use the service's HTTP client.
func (s *SpotifyService) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// NowPlaying returns the track being played, or nil when nothing (or a non-track item) is playing.
func (s *SpotifyService) NowPlaying(ctx context.Context, token string) cache.Result[*models.Track] {
	return load(s, ctx, s.cache.NowPlaying, func(ctx context.Context) (*models.Track, error) {
		var cp SpotifyCurrentlyPlaying
		if err := s.doRequest(ctx, token, "/me/player/currently-playing", &cp); err != nil {
			if errors.Is(err, errNoContent) {
				return nil, nil
			}
			return nil, err
		}

		if cp.CurrentlyPlayingType != "track" || cp.Item == nil {
			return nil, nil
		}

		track := FormatTrack(*cp.Item)
		return &track, nil
	})
}

// RecentTracks returns the recently-played history, most recent first.
func (s *SpotifyService) RecentTracks(ctx context.Context, token string) cache.Result[[]models.Track] {
	return load(s, ctx, s.cache.RecentTracks, func(ctx context.Context) ([]models.Track, error) {
		endpoint := fmt.Sprintf("/me/player/recently-played?limit=%d", s.recentLimit)

		var response recentlyPlayed
		if err := s.doRequest(ctx, token, endpoint, &response); err != nil {
			return nil, err
		}

		tracks := make([]models.Track, 0, len(response.Items))
		for _, item := range response.Items {
			if item.Track == nil {
				continue
			}
			tracks = append(tracks, FormatTrack(*item.Track))
		}
		return tracks, nil
	})
}

// TopTracks returns the owner's top tracks for the configured time range.
func (s *SpotifyService) TopTracks(ctx context.Context, token string) cache.Result[[]models.Track] {
	return load(s, ctx, s.cache.TopTracks, func(ctx context.Context) ([]models.Track, error) {
		q := url.Values{}
		q.Set("time_range", s.topTimeRange)
		q.Set("limit", fmt.Sprint(s.topLimit))
		endpoint := "/me/top/tracks?" + q.Encode()

		var response topTracks
		if err := s.doRequest(ctx, token, endpoint, &response); err != nil {
			return nil, err
		}

		tracks := make([]models.Track, 0, len(response.Items))
		for _, item := range response.Items {
			tracks = append(tracks, FormatTrack(item))
		}
		return tracks, nil
	})
}

// load runs a cached fetch and logs stale-serve fallbacks.
func load[T any](s *SpotifyService, ctx context.Context, slot *cache.Slot[T], fetch func(context.Context) (T, error)) cache.Result[T] {
	result := slot.Load(ctx, fetch)

	switch result.Kind {
	case cache.Stale:
		s.staleLog.Do(func() {
			s.logger.Warn("serving stale data", "resource", slot.Name(), "age", result.Age, "error", result.Err)
		})
	case cache.Empty:
		s.staleLog.Do(func() {
			s.logger.Warn("no data available", "resource", slot.Name(), "error", result.Err)
		})
	}

	return result
}

// doRequest performs an authenticated GET against the Spotify API and decodes a 200 response into result.
func (s *SpotifyService) doRequest(ctx context.Context, token, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return errNoContent
	default:
		return &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}

	return nil
}
