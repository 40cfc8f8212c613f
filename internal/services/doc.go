// Package services talks to the Spotify Web API and to running folio servers.
//
// # Spotify
//
// [SpotifyService] implements [ListeningService] and [OAuthService].
//
// Steady-state requests use the refresh-token grant: [SpotifyService.AccessToken] returns the
// bearer token from the token slot of a [cache.Store] and only calls the token endpoint when the
// slot is stale. The three resource fetchers ([SpotifyService.NowPlaying],
// [SpotifyService.RecentTracks], [SpotifyService.TopTracks]) go through their own slots and
// fall back to the last good value when the API fails.
//
// The authorization code flow ([SpotifyService.AuthURL], [SpotifyService.Exchange]) is only used
// once, to mint the refresh token an operator copies into configuration.
//
// # Error Handling
//
// Fetch failures are not returned; they surface as [cache.Stale] or [cache.Empty] results
// carrying:
//   - [*StatusError] : unexpected HTTP status, matches [shared.ErrAPIRequest]
//   - [shared.ErrMalformedResponse] : body could not be decoded
//   - [shared.ErrAPIRequest] : transport failure
//
// Token acquisition failures are returned wrapped in [shared.ErrRefreshFailed].
//
// # API Mappings
//
// [FormatTrack] maps a [SpotifyTrack] to [models.Track]: artists are comma-joined, the first
// album image becomes albumArt and the last becomes albumArtSmall.
//
// # folio server client
//
// [APIService] reads GET /api/spotify and GET /health from a running server.
package services
