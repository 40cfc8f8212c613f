package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/folio/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the HTTP server until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if host := cmd.String("host"); host != "" {
		r.config.Server.Host = host
	}
	if port := cmd.Int("port"); port != 0 {
		r.config.Server.Port = int(port)
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	if !r.spotify.Configured() {
		r.logger.Warn("spotify credentials not configured; /api/spotify will return an empty snapshot")
	}

	srv := server.New(server.ServerOpts{
		Config: r.config,
		Engine: r.engine,
		OAuth:  r.spotify,
		Logger: r.logger,
	})

	r.logger.Info("starting server", "addr", srv.Addr())
	if err := srv.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
