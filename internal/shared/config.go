package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Storage     StorageConfig     `toml:"storage"`
	Layout      LayoutConfig      `toml:"layout"`
	Transform   TransformConfig   `toml:"transform"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Metrics     MetricsConfig     `toml:"metrics"`
	Watch       WatchConfig       `toml:"watch"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API client credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// CatalogConfig describes which playlist to ingest and where the catalog API lives.
type CatalogConfig struct {
	PlaylistURL       string  `toml:"playlist_url" validate:"required"`
	ListUser          string  `toml:"list_user"`
	BaseURL           string  `toml:"base_url" validate:"omitempty,url"`
	TokenURL          string  `toml:"token_url" validate:"omitempty,url"`
	PageLimit         int     `toml:"page_limit" validate:"gte=1,lte=100"`
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gte=0"`
}

// StorageConfig selects the object store backend.
type StorageConfig struct {
	Backend         string `toml:"backend" validate:"oneof=gcs local memory"`
	Bucket          string `toml:"bucket" validate:"required_if=Backend gcs"`
	Root            string `toml:"root" validate:"required_if=Backend local"`
	CredentialsFile string `toml:"credentials_file"`
	Endpoint        string `toml:"endpoint" validate:"omitempty,url"`
}

// LayoutConfig enumerates the logical prefixes shared by ingestion and transformation.
type LayoutConfig struct {
	StagingPrefix string `toml:"staging_prefix" validate:"required"`
	ArchivePrefix string `toml:"archive_prefix" validate:"required,nefield=StagingPrefix"`
	SongsPrefix   string `toml:"songs_prefix" validate:"required"`
	AlbumsPrefix  string `toml:"albums_prefix" validate:"required"`
	ArtistsPrefix string `toml:"artists_prefix" validate:"required"`
	RawSuffix     string `toml:"raw_suffix" validate:"required,startswith=."`
}

// TransformConfig contains transformation settings.
type TransformConfig struct {
	MergeStrategy string `toml:"merge_strategy" validate:"oneof=accumulate last"`
}

// DatabaseConfig contains run ledger settings. An empty path disables the ledger.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP trigger server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"min=1,max=65535"`
}

// MetricsConfig contains Prometheus settings. An empty pushgateway URL disables pushing.
type MetricsConfig struct {
	PushgatewayURL string `toml:"pushgateway_url" validate:"omitempty,url"`
	Job            string `toml:"job" validate:"required"`
}

// WatchConfig contains file-watch trigger settings.
type WatchConfig struct {
	Settle string `toml:"settle"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level" validate:"omitempty,oneof=debug info warn error fatal"`
}

// SettleDuration parses [WatchConfig.Settle], defaulting to two seconds.
func (w WatchConfig) SettleDuration() time.Duration {
	d, err := time.ParseDuration(w.Settle)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// Addr returns host:port for the trigger server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
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

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads variables from the given .env files (default ".env") into the process environment.
//
// Missing files are ignored; variables already set in the environment win.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables onto the configuration. lookup defaults to [os.LookupEnv].
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	overrides := []struct {
		key    string
		target *string
	}{
		{"SPOTIFY_CLIENT_ID", &c.Credentials.Spotify.ClientID},
		{"SPOTIFY_CLIENT_SECRET", &c.Credentials.Spotify.ClientSecret},
		{"SPOTETL_PLAYLIST_URL", &c.Catalog.PlaylistURL},
		{"SPOTETL_STORAGE_BACKEND", &c.Storage.Backend},
		{"SPOTETL_BUCKET", &c.Storage.Bucket},
		{"SPOTETL_STORAGE_ROOT", &c.Storage.Root},
		{"SPOTETL_DATABASE_PATH", &c.Database.Path},
		{"SPOTETL_PUSHGATEWAY_URL", &c.Metrics.PushgatewayURL},
		{"SPOTETL_LOG_LEVEL", &c.Log.Level},
	}

	for _, o := range overrides {
		if v, ok := lookup(o.key); ok && v != "" {
			*o.target = v
		}
	}
}

// Validate checks field constraints declared in struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// HasSpotifyCredentials reports whether both client id and secret are set.
func (c *Config) HasSpotifyCredentials() bool {
	return c.Credentials.Spotify.ClientID != "" && c.Credentials.Spotify.ClientSecret != ""
}
