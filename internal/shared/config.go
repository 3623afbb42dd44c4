package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values from the config file.
const (
	EnvClientID     = "STASH_CLIENT_ID"
	EnvClientSecret = "STASH_CLIENT_SECRET"
	EnvRedirectURI  = "STASH_REDIRECT_URI"
	EnvRefreshToken = "STASH_REFRESH_TOKEN"
)

// Upper bounds enforced by the Spotify Web API.
const (
	MaxPageSize  = 50
	MaxChunkSize = 100
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Auth        AuthConfig        `toml:"auth"`
	HTTP        HTTPConfig        `toml:"http"`
	Database    DatabaseConfig    `toml:"database"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and endpoints.
//
// RefreshToken is read-only input: it is never written back by the application.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	RedirectURI  string   `toml:"redirect_uri"`
	RefreshToken string   `toml:"refresh_token"`
	Scopes       []string `toml:"scopes"`
	AuthURL      string   `toml:"auth_url"`
	TokenURL     string   `toml:"token_url"`
	APIURL       string   `toml:"api_url"`
}

// AuthConfig controls how the authorization code is obtained.
type AuthConfig struct {
	CaptureTimeout time.Duration `toml:"capture_timeout"` // 0 waits forever
	ManualFallback bool          `toml:"manual_fallback"`
	OpenBrowser    bool          `toml:"open_browser"`
}

// HTTPConfig contains settings shared by every request to the remote service.
type HTTPConfig struct {
	Timeout           time.Duration `toml:"timeout"`
	MaxRetries        int           `toml:"max_retries"`
	RequestsPerSecond float64       `toml:"requests_per_second"` // 0 disables pacing
	PageSize          int           `toml:"page_size"`
	ChunkSize         int           `toml:"chunk_size"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings. An empty File logs to stderr.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
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

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotEnv loads variables from a .env file into the process environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides credentials with any STASH_* environment variables that are set.
func (c *Config) ApplyEnv() {
	for env, field := range map[string]*string{
		EnvClientID:     &c.Credentials.Spotify.ClientID,
		EnvClientSecret: &c.Credentials.Spotify.ClientSecret,
		EnvRedirectURI:  &c.Credentials.Spotify.RedirectURI,
		EnvRefreshToken: &c.Credentials.Spotify.RefreshToken,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*field = v
		}
	}
}

// Validate checks everything the authorization flow and API client rely on before any of them run.
func (c *Config) Validate() error {
	s := c.Credentials.Spotify
	if s.ClientID == "" || s.ClientSecret == "" {
		return fmt.Errorf("%w: %w: spotify client_id and client_secret must be set", ErrInvalidConfig, ErrMissingCredentials)
	}

	u, err := url.Parse(s.RedirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: redirect_uri %q must be an absolute URL", ErrInvalidConfig, s.RedirectURI)
	}

	for name, raw := range map[string]string{"auth_url": s.AuthURL, "token_url": s.TokenURL, "api_url": s.APIURL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s %q must be an absolute URL", ErrInvalidConfig, name, raw)
		}
	}

	if c.HTTP.PageSize < 1 || c.HTTP.PageSize > MaxPageSize {
		return fmt.Errorf("%w: page_size must be between 1 and %d, got %d", ErrInvalidConfig, MaxPageSize, c.HTTP.PageSize)
	}
	if c.HTTP.ChunkSize < 1 || c.HTTP.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk_size must be between 1 and %d, got %d", ErrInvalidConfig, MaxChunkSize, c.HTTP.ChunkSize)
	}
	if c.HTTP.MaxRetries < 0 || c.HTTP.RequestsPerSecond < 0 || c.HTTP.Timeout < 0 || c.Auth.CaptureTimeout < 0 {
		return fmt.Errorf("%w: timeouts, retries and request rate cannot be negative", ErrInvalidConfig)
	}

	return nil
}

// Retry returns the request retry policy described by the config.
func (c HTTPConfig) Retry() RetryPolicy {
	return RetryPolicy{MaxRetries: c.MaxRetries}
}
