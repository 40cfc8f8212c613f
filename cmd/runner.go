package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/folio/internal/cache"
	"github.com/desertthunder/folio/internal/services"
	"github.com/desertthunder/folio/internal/shared"
	"github.com/desertthunder/folio/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	store       *cache.Store
	spotify     *services.SpotifyService
	engine      *tasks.NowPlayingEngine
	api         *services.APIService
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	openBrowser func(string) error
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Services left nil are built from Config.
type RunnerOpts struct {
	Config      *shared.Config
	Spotify     *services.SpotifyService
	API         *services.APIService
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	r := &Runner{
		config:      opts.Config,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
		spotify:     opts.Spotify,
		api:         opts.API,
	}
	r.wire()
	return r
}

// wire builds the cache, services and engine that were not injected.
func (r *Runner) wire() {
	if r.spotify == nil {
		c := r.config.Cache
		r.store = cache.NewStore(cache.TTLs{
			Token:        c.TokenTTL.Duration,
			NowPlaying:   c.NowPlayingTTL.Duration,
			RecentTracks: c.RecentTracksTTL.Duration,
			TopTracks:    c.TopTracksTTL.Duration,
		}, nil)
		r.spotify = services.NewSpotifyService(services.SpotifyOpts{
			Config:     r.config,
			Cache:      r.store,
			HTTPClient: r.httpClient,
			Logger:     r.logger,
		})
	} else {
		r.store = r.spotify.Cache()
	}

	r.engine = tasks.NewNowPlayingEngine(r.spotify, r.logger)

	if r.api == nil {
		r.api = services.NewAPIService(r.config.BaseURL(), r.httpClient)
	}
}

// Load resolves configuration from --config, dotenv files and the environment, then rebuilds services.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	config, err := shared.ResolveConfig(cmd.String("config"))
	if err != nil {
		return ctx, err
	}

	level := config.Log.Level
	if override := cmd.String("log-level"); override != "" {
		level = override
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))

	r.config = config
	r.spotify = nil
	r.api = nil
	r.wire()

	r.logger.Debug("configuration loaded", "path", cmd.String("config"), "spotify_configured", r.spotify.Configured())
	return ctx, nil
}

// SetLogger replaces the logger used by the runner and rebuilds services that log.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
	r.engine = tasks.NewNowPlayingEngine(r.spotify, l)
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, spotifyCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return r.writeBytes(output)
}

// writeBytes writes b followed by a newline when it does not already end with one.
func (r *Runner) writeBytes(b []byte) error {
	if _, err := r.output.Write(b); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if len(b) > 0 && b[len(b)-1] == '\n' {
		return nil
	}
	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	rule := strings.Repeat("═", 39)
	r.writePlain("%s\n%v\n%s\n", rule, title, rule)
}
