package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/desertthunder/folio/internal/formatter"
	"github.com/desertthunder/folio/internal/server"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// SpotifyAuth walks the operator through minting a refresh token.
//
// If a folio server is already running its /api/spotify/auth route is opened. Otherwise a temporary server is
// started on the configured address, and the command waits for the callback and prints the token.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: client_id and client_secret must be set in config or environment", shared.ErrMissingCredentials)
	}

	if err := r.api.Health(ctx); err == nil {
		authURL := r.api.BaseURL() + "/api/spotify/auth"
		r.writePlain("→ Server already running at %s\n", r.api.BaseURL())
		r.open(authURL, cmd.Bool("no-browser"))
		r.writePlain("→ The refresh token is shown on the callback page.\n")
		return nil
	}

	token, err := r.doOAuth(ctx, cmd.Duration("timeout"), cmd.Bool("no-browser"))
	if err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("Refresh token:\n%s\n\n", token.RefreshToken)
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		r.writePlain("Scopes granted: %s\n", scope)
	}
	r.writePlain("Set credentials.spotify.refresh_token or SPOTIFY_REFRESH_TOKEN, then run 'folio serve'.\n")

	return nil
}

// doOAuth serves the auth and callback routes until a token arrives, the timeout passes or ctx is done.
func (r *Runner) doOAuth(ctx context.Context, timeout time.Duration, noBrowser bool) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", r.config.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", r.config.Addr(), err)
	}

	tokens := make(chan *oauth2.Token, 1)
	srv := server.New(server.ServerOpts{
		Config: r.config,
		Engine: r.engine,
		OAuth:  r.spotify,
		Logger: r.logger,
		OnToken: func(t *oauth2.Token) {
			select {
			case tokens <- t:
			default:
			}
		},
	})

	serveCtx, stop := context.WithCancel(ctx)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting OAuth server", "addr", ln.Addr().String())
		serverErrors <- srv.Serve(serveCtx, ln)
	}()

	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	r.open(fmt.Sprintf("http://%s/api/spotify/auth", ln.Addr().String()), noBrowser)
	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var token *oauth2.Token
	select {
	case token = <-tokens:
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		stop()
		<-serverErrors
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrAuthFailed, timeout)
	case <-ctx.Done():
		<-serverErrors
		return nil, ctx.Err()
	}

	stop()
	if err := <-serverErrors; err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token in response", shared.ErrAuthFailed)
	}
	return token, nil
}

func (r *Runner) open(url string, noBrowser bool) {
	if !noBrowser {
		r.writePlain("→ Opening browser for Spotify authorization...\n")
		err := r.openBrowser(url)
		if err == nil {
			return
		}
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
	}
	r.writePlain("Please open this URL in your browser:\n%s\n\n", url)
}

// SpotifyNow aggregates a snapshot in-process and renders it.
func (r *Runner) SpotifyNow(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	outputDir := cmd.String("output")

	if !r.engine.Configured() {
		r.logger.Warn("spotify credentials not configured; snapshot will be empty")
	}

	snapshot, report := r.engine.SnapshotWithReport(ctx)
	r.logger.Debug("snapshot", "now_playing", report.NowPlaying, "recent_tracks", report.RecentTracks, "top_tracks", report.TopTracks)

	if outputDir != "" {
		result, err := formatter.WriteMarkdownExport(ctx, r.httpClient, snapshot, outputDir)
		if err != nil {
			return err
		}
		if result.CoverErr != nil {
			r.logger.Warn("failed to save album art", "error", result.CoverErr)
		}
		for _, f := range result.Files {
			r.writePlain("✓ Wrote %s\n", f)
		}
		return nil
	}

	data, err := formatter.Render(snapshot, format)
	if err != nil {
		return err
	}
	return r.writeBytes(data)
}

// SpotifyStatus reports whether credentials are present and accepted by the token endpoint.
func (r *Runner) SpotifyStatus(ctx context.Context, cmd *cli.Command) error {
	r.writePlainHeader("Spotify")

	if !r.spotify.Configured() {
		r.writePlain("Credentials: missing\n")
		return fmt.Errorf("%w: client_id, client_secret and refresh_token are all required", shared.ErrMissingCredentials)
	}
	r.writePlain("Credentials: configured\n")

	if _, err := r.spotify.AccessToken(ctx); err != nil {
		r.writePlain("Access token: failed\n")
		return err
	}
	r.writePlain("Access token: ok\n")
	return nil
}
