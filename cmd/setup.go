package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/folio/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes the example config to --config unless the file already exists.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("config file already exists", "path", configPath)
		r.writePlain("✓ %s already exists\n", configPath)
		return nil
	}

	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	r.logger.Info("config file created", "path", configPath)

	r.writePlain("✓ Wrote %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id and client_secret (or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET in .env.local)\n")
	r.writePlain("2. Run 'folio spotify auth' to mint a refresh token\n")
	r.writePlain("3. Run 'folio serve'\n")

	return nil
}
