// package services defines the interfaces for talking to Spotify and to a running folio server
package services

import (
	"context"

	"github.com/desertthunder/folio/internal/cache"
	"github.com/desertthunder/folio/internal/models"
	"golang.org/x/oauth2"
)

// ListeningService fetches the owner's listening activity through a TTL cache.
//
// Fetch methods never return errors: failures are reported through [cache.Result.Kind].
type ListeningService interface {
	// Configured reports whether client id, client secret and refresh token are all set.
	Configured() bool

	// AccessToken returns a cached bearer token or performs a refresh-token grant.
	AccessToken(ctx context.Context) (string, error)

	NowPlaying(ctx context.Context, token string) cache.Result[*models.Track]
	RecentTracks(ctx context.Context, token string) cache.Result[[]models.Track]
	TopTracks(ctx context.Context, token string) cache.Result[[]models.Track]
}

// OAuthService covers the one-time authorization code flow used to mint a refresh token.
type OAuthService interface {
	// AuthURL returns the provider's authorize URL for the configured client.
	AuthURL() string

	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}
