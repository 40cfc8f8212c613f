package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// DotEnvFiles are loaded, when present, before environment overrides are applied.
var DotEnvFiles = []string{".env", ".env.local"}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Credentials CredentialsConfig `toml:"credentials"`
	Spotify     SpotifyAPIConfig  `toml:"spotify"`
	Cache       CacheConfig       `toml:"cache"`
	Log         LogConfig         `toml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RefreshToken string `toml:"refresh_token"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Configured reports whether all three credentials needed for the refresh-token grant are present.
func (s SpotifyConfig) Configured() bool {
	return s.ClientID != "" && s.ClientSecret != "" && s.RefreshToken != ""
}

// SpotifyAPIConfig contains upstream endpoints and request parameters.
type SpotifyAPIConfig struct {
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
	APIURL       string `toml:"api_url"`
	RecentLimit  int    `toml:"recent_limit"`
	TopLimit     int    `toml:"top_limit"`
	TopTimeRange string `toml:"top_time_range"`
}

// CacheConfig contains the time-to-live of each cached upstream resource.
type CacheConfig struct {
	TokenTTL        Duration `toml:"token_ttl"`
	NowPlayingTTL   Duration `toml:"now_playing_ttl"`
	RecentTracksTTL Duration `toml:"recent_tracks_ttl"`
	TopTracksTTL    Duration `toml:"top_tracks_ttl"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Duration is a [time.Duration] that decodes from TOML strings like "55m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// envOverrides mirrors the settings that may be supplied through the environment.
type envOverrides struct {
	ClientID     string `env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`
	RefreshToken string `env:"SPOTIFY_REFRESH_TOKEN"`
	RedirectURI  string `env:"SPOTIFY_REDIRECT_URI"`
	Host         string `env:"FOLIO_HOST"`
	Port         int    `env:"FOLIO_PORT"`
	LogLevel     string `env:"FOLIO_LOG_LEVEL"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// ResolveConfig loads the file at path if it exists (defaults otherwise), then applies dotenv files and environment overrides.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		if config, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	if err := LoadDotEnv(DotEnvFiles...); err != nil {
		return nil, err
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadDotEnv loads each existing file into the process environment. Missing files are skipped.
//
// Variables already set in the environment are not overwritten.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides config values with non-empty environment variables.
func (c *Config) ApplyEnv() error {
	overrides, err := env.ParseAs[envOverrides]()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	setIf(&c.Credentials.Spotify.ClientID, overrides.ClientID)
	setIf(&c.Credentials.Spotify.ClientSecret, overrides.ClientSecret)
	setIf(&c.Credentials.Spotify.RefreshToken, overrides.RefreshToken)
	setIf(&c.Credentials.Spotify.RedirectURI, overrides.RedirectURI)
	setIf(&c.Server.Host, overrides.Host)
	setIf(&c.Log.Level, overrides.LogLevel)
	if overrides.Port != 0 {
		c.Server.Port = overrides.Port
	}

	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Validate checks ranges the rest of the application relies on.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}

	for name, ttl := range map[string]Duration{
		"cache.token_ttl":         c.Cache.TokenTTL,
		"cache.now_playing_ttl":   c.Cache.NowPlayingTTL,
		"cache.recent_tracks_ttl": c.Cache.RecentTracksTTL,
		"cache.top_tracks_ttl":    c.Cache.TopTracksTTL,
	} {
		if ttl.Duration <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, name)
		}
	}

	if c.Spotify.RecentLimit < 1 || c.Spotify.RecentLimit > 50 {
		return fmt.Errorf("%w: spotify.recent_limit must be between 1 and 50", ErrInvalidConfig)
	}
	if c.Spotify.TopLimit < 1 || c.Spotify.TopLimit > 50 {
		return fmt.Errorf("%w: spotify.top_limit must be between 1 and 50", ErrInvalidConfig)
	}

	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// BaseURL returns the URL clients use to reach a locally running server.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s", c.Addr())
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
