package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/abelbrown/estatedesk/internal/restapi"
)

// Backend modes.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRemote   = "remote" // talk to a listingd server over HTTP
)

// Config is the persistent application configuration
type Config struct {
	Backend BackendConfig `json:"backend"`
	Server  ServerConfig  `json:"server"`
	Client  ClientConfig  `json:"client"`
	UI      UIConfig      `json:"ui"`
	Logging LoggingConfig `json:"logging"`
}

// BackendConfig selects where collections are read from
type BackendConfig struct {
	Mode        string `json:"mode"`
	DBPath      string `json:"db_path,omitempty"`      // sqlite
	DatabaseURL string `json:"database_url,omitempty"` // postgres
	MaxConns    int32  `json:"max_conns,omitempty"`    // postgres
	APIURL      string `json:"api_url,omitempty"`      // remote
}

// ServerConfig holds listingd settings
type ServerConfig struct {
	Addr    string `json:"addr"`
	AppName string `json:"app_name"`
}

// ClientConfig tunes the HTTP client used in remote mode
type ClientConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	TimeoutMs         int     `json:"timeout_ms"`
	MaxRetries        int     `json:"max_retries"`
	CacheTTLSeconds   int     `json:"cache_ttl_seconds"` // 0 disables the page cache
	CacheSize         int64   `json:"cache_size"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	PageSize       int    `json:"page_size"`
	SearchDelayMs  int    `json:"search_delay_ms"`
	RefreshSeconds int    `json:"refresh_seconds"` // 0 disables background refresh
	StartScreen    string `json:"start_screen"`
}

// LoggingConfig holds log destinations
type LoggingConfig struct {
	Level     string          `json:"level"`
	FluentBit FluentBitConfig `json:"fluent_bit"`
}

// FluentBitConfig enables shipping server logs to Fluent Bit
type FluentBitConfig struct {
	Enabled bool   `json:"enabled"`
	Host    string `json:"host,omitempty"`
	Port    int    `json:"port,omitempty"`
	Tag     string `json:"tag,omitempty"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Mode:   BackendSQLite,
			DBPath: filepath.Join(DataDir(), "estatedesk.db"),
			APIURL: "http://localhost:8080",
		},
		Server: ServerConfig{
			Addr:    ":8080",
			AppName: "listingd",
		},
		Client: ClientConfig{
			RequestsPerSecond: 10,
			TimeoutMs:         10_000,
			MaxRetries:        3,
			CacheTTLSeconds:   30,
			CacheSize:         500,
		},
		UI: UIConfig{
			PageSize:       10,
			SearchDelayMs:  300,
			RefreshSeconds: 60,
			StartScreen:    "properties",
		},
		Logging: LoggingConfig{
			Level: "info",
			FluentBit: FluentBitConfig{
				Host: "localhost",
				Port: 24224,
				Tag:  "estatedesk",
			},
		},
	}
}

// DataDir is where config, logs and the local database live.
// ESTATEDESK_HOME overrides the default ~/.estatedesk.
func DataDir() string {
	if dir := os.Getenv("ESTATEDESK_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".estatedesk")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.json")
}

// Load reads the config file (or defaults when there is none), then
// applies .env files and ESTATEDESK_* environment overrides.
func Load(envFiles ...string) (*Config, error) {
	cfg, err := LoadFile(ConfigPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(envFiles...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads config from path, or returns defaults if it is missing.
// Fields absent from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path, creating the directory if needed.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600) // may hold a database password
}

// ApplyEnv loads .env files (missing ones are skipped; already-set
// variables win) and then applies ESTATEDESK_* overrides.
func (c *Config) ApplyEnv(envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	c.Backend.Mode = getEnv("ESTATEDESK_BACKEND", c.Backend.Mode)
	c.Backend.DBPath = getEnv("ESTATEDESK_DB_PATH", c.Backend.DBPath)
	c.Backend.DatabaseURL = getEnv("DATABASE_URL", c.Backend.DatabaseURL)
	c.Backend.DatabaseURL = getEnv("ESTATEDESK_DATABASE_URL", c.Backend.DatabaseURL)
	c.Backend.MaxConns = int32(getEnvAsInt("ESTATEDESK_DB_MAX_CONNS", int(c.Backend.MaxConns)))
	c.Backend.APIURL = getEnv("ESTATEDESK_API_URL", c.Backend.APIURL)

	c.Server.Addr = getEnv("ESTATEDESK_ADDR", c.Server.Addr)
	if port, ok := os.LookupEnv("PORT"); ok && port != "" {
		c.Server.Addr = ":" + port
	}

	c.Client.RequestsPerSecond = getEnvAsFloat("ESTATEDESK_CLIENT_RPS", c.Client.RequestsPerSecond)
	c.Client.TimeoutMs = getEnvAsInt("ESTATEDESK_CLIENT_TIMEOUT_MS", c.Client.TimeoutMs)
	c.Client.CacheTTLSeconds = getEnvAsInt("ESTATEDESK_CACHE_TTL_SECONDS", c.Client.CacheTTLSeconds)

	c.UI.PageSize = getEnvAsInt("ESTATEDESK_PAGE_SIZE", c.UI.PageSize)
	c.UI.SearchDelayMs = getEnvAsInt("ESTATEDESK_SEARCH_DELAY_MS", c.UI.SearchDelayMs)
	c.UI.RefreshSeconds = getEnvAsInt("ESTATEDESK_REFRESH_SECONDS", c.UI.RefreshSeconds)

	c.Logging.Level = getEnv("ESTATEDESK_LOG_LEVEL", c.Logging.Level)
	c.Logging.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", c.Logging.FluentBit.Enabled)
	c.Logging.FluentBit.Host = getEnv("FLUENTBIT_HOST", c.Logging.FluentBit.Host)
	c.Logging.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", c.Logging.FluentBit.Port)
	if c.Logging.FluentBit.Enabled && c.Logging.FluentBit.Host == "" {
		c.Logging.FluentBit.Enabled = false
	}

	return c.Validate()
}

// Validate rejects configurations no component can run with.
func (c *Config) Validate() error {
	switch c.Backend.Mode {
	case BackendSQLite:
		if c.Backend.DBPath == "" {
			return fmt.Errorf("backend.db_path is required for sqlite")
		}
	case BackendPostgres:
		if c.Backend.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres")
		}
	case BackendRemote:
		if c.Backend.APIURL == "" {
			return fmt.Errorf("backend.api_url is required for remote")
		}
	default:
		return fmt.Errorf("unknown backend mode %q", c.Backend.Mode)
	}
	if c.UI.PageSize < 1 || c.UI.PageSize > restapi.MaxPerPage {
		return fmt.Errorf("ui.page_size must be between 1 and %d", restapi.MaxPerPage)
	}
	return nil
}

// SearchDelay is the debounce quiet period for typed search text.
func (c *Config) SearchDelay() time.Duration {
	return time.Duration(c.UI.SearchDelayMs) * time.Millisecond
}

// RefreshInterval is the background refresh period, 0 when disabled.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.UI.RefreshSeconds) * time.Second
}

// ClientTimeout is the per-request HTTP timeout in remote mode.
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.Client.TimeoutMs) * time.Millisecond
}

// CacheTTL is how long remote pages are served from cache.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Client.CacheTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return f
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return fallback
}
