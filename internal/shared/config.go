package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override file configuration.
const (
	EnvAPIURL   = "MEDIAX_API_URL"
	EnvDBPath   = "MEDIAX_DB_PATH"
	EnvLogLevel = "MEDIAX_LOG_LEVEL"
	EnvHistory  = "MEDIAX_HISTORY"
	EnvLinkPort = "MEDIAX_LINK_PORT"
)

// History backends for recent searches.
const (
	HistoryLocal  = "local"
	HistoryRemote = "remote"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API           APIConfig           `toml:"api"`
	Session       SessionConfig       `toml:"session"`
	Search        SearchConfig        `toml:"search"`
	Files         FilesConfig         `toml:"files"`
	Notifications NotificationsConfig `toml:"notifications"`
	Database      DatabaseConfig      `toml:"database"`
	Server        ServerConfig        `toml:"server"`
	Log           LogConfig           `toml:"log"`
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	BaseURL           string   `toml:"base_url"`
	Timeout           Duration `toml:"timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
}

// SessionConfig controls credential persistence and refresh.
type SessionConfig struct {
	Persist         bool     `toml:"persist"`
	RefreshInterval Duration `toml:"refresh_interval"`
}

// SearchConfig controls the search store.
type SearchConfig struct {
	Debounce     Duration `toml:"debounce"`
	History      string   `toml:"history"` // "local" or "remote"
	HistoryLimit int      `toml:"history_limit"`
	PageSize     int      `toml:"page_size"`
}

// FilesConfig controls the file store.
type FilesConfig struct {
	MaxUploadSize int64 `toml:"max_upload_size"`
	PageSize      int   `toml:"page_size"`
}

// NotificationsConfig controls the push listener.
type NotificationsConfig struct {
	Enabled          bool     `toml:"enabled"`
	ReconnectDelay   Duration `toml:"reconnect_delay"`
	InvalidateWindow Duration `toml:"invalidate_window"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local link server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string `toml:"level"`
	TUIPath string `toml:"tui_path"`
}

// Duration is a [time.Duration] that decodes from strings like "25m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values. A missing file is [ErrMissingConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
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

// ResolveConfig loads path when it exists, otherwise the defaults, then applies environment overrides.
func ResolveConfig(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if errors.Is(err, ErrMissingConfig) {
		config = DefaultConfig()
	} else if err != nil {
		return nil, err
	}

	if err := LoadEnv(".env"); err != nil {
		return nil, err
	}

	config.ApplyEnv()
	return config, config.Validate()
}

// LoadEnv loads a dotenv file into the process environment. A missing file is not an error.
func LoadEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from MEDIAX_* environment variables.
func (c *Config) ApplyEnv() {
	c.API.BaseURL = getEnv(EnvAPIURL, c.API.BaseURL)
	c.Database.Path = getEnv(EnvDBPath, c.Database.Path)
	c.Log.Level = getEnv(EnvLogLevel, c.Log.Level)
	c.Search.History = getEnv(EnvHistory, c.Search.History)
	c.Server.Port = getEnvAsInt(EnvLinkPort, c.Server.Port)
}

// Validate reports configuration values the stores cannot work with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if c.Search.History != HistoryLocal && c.Search.History != HistoryRemote {
		return fmt.Errorf("%w: search.history must be %q or %q, got %q", ErrInvalidConfig, HistoryLocal, HistoryRemote, c.Search.History)
	}
	if c.Files.MaxUploadSize <= 0 {
		return fmt.Errorf("%w: files.max_upload_size must be positive", ErrInvalidConfig)
	}
	return nil
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

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
