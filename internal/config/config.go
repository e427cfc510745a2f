package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrNoServer is returned by Validate when no server URL is configured.
var ErrNoServer = errors.New("no server configured: set server_url or pass --server")

// Config holds application configuration
type Config struct {
	// Base URL of the music server, e.g. http://nas.local:8080
	ServerURL string

	// Status line template for the play command
	// Default: "{{.Artist}} - {{.Title}}"
	OutputFormat string

	// Fixed status line width in columns, 0 to disable, -1 to fit the terminal
	OutputWidth int

	// How often the player position is sampled
	PollInterval time.Duration

	Scan  ScanConfig
	MPV   MPVConfig
	Audio AudioConfig

	// Directory holding the play history database
	DataDir string

	History HistoryConfig
	Discord DiscordConfig
	LastFM  LastFMConfig
}

// ScanConfig controls retries while the server is indexing.
type ScanConfig struct {
	RetryDelay time.Duration
	MaxRetries int // 0 retries until the scan finishes
}

// MPVConfig locates the mpv binary.
type MPVConfig struct {
	Path string
}

// AudioConfig holds playback defaults.
type AudioConfig struct {
	Shuffle bool
}

// HistoryConfig toggles the local play log.
type HistoryConfig struct {
	Enabled bool
}

// DiscordConfig enables Rich Presence when AppID is set.
type DiscordConfig struct {
	AppID string
}

// LastFMConfig holds Last.fm specific configuration
type LastFMConfig struct {
	APIKey     string
	APISecret  string
	SessionKey string
}

// Enabled reports whether all Last.fm credentials are present.
func (c LastFMConfig) Enabled() bool {
	return c.APIKey != "" && c.APISecret != "" && c.SessionKey != ""
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	return load(getConfigDir(), ".")
}

func load(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetDefault("output_format", "{{.Artist}} - {{.Title}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("poll_interval", 1000)
	v.SetDefault("scan.retry_delay", 2000)
	v.SetDefault("scan.max_retries", 0)
	v.SetDefault("mpv.path", "mpv")
	v.SetDefault("audio.shuffle", false)
	v.SetDefault("data_dir", getConfigDir())
	v.SetDefault("history.enabled", true)

	// The config file is optional; a broken one is not.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	// CRATE_SERVER_URL, CRATE_SCAN_RETRY_DELAY, ...
	v.SetEnvPrefix("CRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		ServerURL:    v.GetString("server_url"),
		OutputFormat: v.GetString("output_format"),
		OutputWidth:  v.GetInt("output_width"),
		PollInterval: time.Duration(v.GetInt("poll_interval")) * time.Millisecond,
		Scan: ScanConfig{
			RetryDelay: time.Duration(v.GetInt("scan.retry_delay")) * time.Millisecond,
			MaxRetries: v.GetInt("scan.max_retries"),
		},
		MPV: MPVConfig{
			Path: v.GetString("mpv.path"),
		},
		Audio: AudioConfig{
			Shuffle: v.GetBool("audio.shuffle"),
		},
		DataDir: v.GetString("data_dir"),
		History: HistoryConfig{
			Enabled: v.GetBool("history.enabled"),
		},
		Discord: DiscordConfig{
			AppID: v.GetString("discord.app_id"),
		},
		LastFM: LastFMConfig{
			APIKey:     v.GetString("lastfm.api_key"),
			APISecret:  v.GetString("lastfm.api_secret"),
			SessionKey: v.GetString("lastfm.session_key"),
		},
	}

	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return ErrNoServer
	}
	return nil
}

// HistoryPath is the location of the play history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "crate")
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}
