// submodule cmd contains command definitions
package main

import (
	"strings"
	"time"

	"github.com/desertthunder/folio/internal/formatter"
	"github.com/desertthunder/folio/internal/ui"
	"github.com/urfave/cli/v3"
)

// serveCommand runs the HTTP server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server (/api/spotify, /api/spotify/auth, /callback, /health)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Override server.host",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override server.port",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand scaffolds configuration
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Write an example configuration file to --config if none exists",
		Action: r.Setup,
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify listening activity",
		Commands: []*cli.Command{
			{
				Name:  "auth",
				Usage: "Mint a refresh token with the authorization code flow",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening it",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the callback",
						Value: 5 * time.Minute,
					},
				},
				Action: r.SpotifyAuth,
			},
			{
				Name:  "now",
				Usage: "Fetch a listening snapshot in-process",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format (" + strings.Join(formatter.Formats, ", ") + ")",
						Value:   formatter.FormatJSON,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write a Markdown export with album art to this directory",
					},
				},
				Action: r.SpotifyNow,
			},
			{
				Name:   "status",
				Usage:  "Check credentials by requesting an access token",
				Action: r.SpotifyStatus,
			},
		},
	}
}

// apiCommand handles requests against a running server
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to a running folio server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "Server base URL (default: from config)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET a path and print the response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for the now-playing viewer.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"ui"},
		Usage:   "Launch the now-playing viewer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "Server base URL (default: from config)",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Poll interval",
				Value: ui.DefaultInterval,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the viewer is running",
				Value: "./tmp/folio-tui.log",
			},
		},
		Action: r.TUI,
	}
}
