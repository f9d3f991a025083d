package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/startrad-companion/pkg/log"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration.
// Values come from environment variables (optionally via a .env file) with
// sensible defaults.
//
// Environment Variables:
// Paths:
// - CONFIG_DIR: directory for JSON settings documents (default: <user config dir>/startradfr)
// - CACHE_DIR: offline translation cache (default: <CONFIG_DIR>/translation_cache)
// - LAUNCHER_LOG_PATH: launcher log scanned for installs (default: %APPDATA%/rsilauncher/logs/log.log)
// - GAME_DATA_DIR: shader cache and GraphicsSettings.json root (default: %LOCALAPPDATA%/Star Citizen)
//
// HTTP:
// - HTTP_ADDR: local API listen address (default: 127.0.0.1:1420)
// - OAUTH_ADDR: OAuth redirect listener (default: 127.0.0.1:1421)
// - HTTP_TIMEOUT: outbound request timeout in seconds (default: 180)
// - USER_AGENT: outbound User-Agent (default: StarTradFR/3.0)
// - UI_STATIC_DIR: built web UI served at / (default: disabled)
//
// Remote sources:
// - SOURCES_URL: translation catalog document
// - SETTINGS_API_URL: per-setting link lookup base URL
// - PREFETCH_CRON: cache prefetch schedule (default: 0 */6 * * *)
//
// Cloud:
// - CLOUD_URL, CLOUD_API_KEY, CLOUD_BACKUP_BUCKET, CLOUD_PREFS_BUCKET
//
// Releases:
// - GITHUB_TOKEN: optional token for the GitHub API
// - APP_VERSION: running version (default: 0.0.0)
// - UPDATE_REPO: owner/repo publishing releases
//
// Logging:
// - LOG_LEVEL: debug|info|warn|error (default: info)
// - LOG_FORMAT: console|json (default: console)
type Config struct {
	Paths   PathsConfig   `json:"paths"`
	HTTP    HTTPConfig    `json:"http"`
	Sources SourcesConfig `json:"sources"`
	Cloud   CloudConfig   `json:"cloud"`
	Release ReleaseConfig `json:"release"`
	Log     LogConfig     `json:"log"`
}

type PathsConfig struct {
	ConfigDir       string `json:"config_dir"`
	CacheDir        string `json:"cache_dir"`
	LauncherLogPath string `json:"launcher_log_path"`
	GameDataDir     string `json:"game_data_dir"`
}

type HTTPConfig struct {
	Addr           string `json:"addr"`
	OAuthAddr      string `json:"oauth_addr"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	UserAgent      string `json:"user_agent"`
	UIStaticDir    string `json:"ui_static_dir"`
}

func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type SourcesConfig struct {
	CatalogURL     string `json:"catalog_url"`
	SettingsAPIURL string `json:"settings_api_url"`
	PrefetchCron   string `json:"prefetch_cron"`
}

type CloudConfig struct {
	URL          string `json:"url"`
	APIKey       string `json:"-"`
	BackupBucket string `json:"backup_bucket"`
	PrefsBucket  string `json:"prefs_bucket"`
}

// Enabled reports whether cloud storage is configured.
func (c CloudConfig) Enabled() bool {
	return c.URL != "" && c.APIKey != ""
}

type ReleaseConfig struct {
	GitHubToken string `json:"-"`
	AppVersion  string `json:"app_version"`
	UpdateRepo  string `json:"update_repo"`
}

// Repo splits UpdateRepo into owner and name.
func (c ReleaseConfig) Repo() (owner, name string, ok bool) {
	owner, name, ok = strings.Cut(c.UpdateRepo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", false
	}
	return owner, name, true
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Option is a function type for configuring Config
type Option func(*Config)

func WithConfigDir(dir string) Option {
	return func(c *Config) {
		c.Paths.ConfigDir = dir
		c.Paths.CacheDir = filepath.Join(dir, cacheDirName)
	}
}

func WithGameDataDir(dir string) Option {
	return func(c *Config) {
		c.Paths.GameDataDir = dir
	}
}

func WithLauncherLogPath(path string) Option {
	return func(c *Config) {
		c.Paths.LauncherLogPath = path
	}
}

const (
	appDirName   = "startradfr"
	cacheDirName = "translation_cache"
)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("[Config] Ignoring unreadable .env file: %v", err)
	}

	configDir := getEnvString("CONFIG_DIR", defaultConfigDir())

	config := &Config{
		Paths: PathsConfig{
			ConfigDir:       configDir,
			CacheDir:        getEnvString("CACHE_DIR", filepath.Join(configDir, cacheDirName)),
			LauncherLogPath: getEnvString("LAUNCHER_LOG_PATH", defaultLauncherLogPath()),
			GameDataDir:     getEnvString("GAME_DATA_DIR", defaultGameDataDir()),
		},
		HTTP: HTTPConfig{
			Addr:           getEnvString("HTTP_ADDR", "127.0.0.1:1420"),
			OAuthAddr:      getEnvString("OAUTH_ADDR", "127.0.0.1:1421"),
			TimeoutSeconds: getEnvInt("HTTP_TIMEOUT", 180),
			UserAgent:      getEnvString("USER_AGENT", "StarTradFR/3.0"),
			UIStaticDir:    getEnvString("UI_STATIC_DIR", ""),
		},
		Sources: SourcesConfig{
			CatalogURL:     getEnvString("SOURCES_URL", "https://drrakendu78.github.io/TradSC/translations.json"),
			SettingsAPIURL: getEnvString("SETTINGS_API_URL", "https://multitool.onivoid.fr/api/translations"),
			PrefetchCron:   getEnvString("PREFETCH_CRON", "0 */6 * * *"),
		},
		Cloud: CloudConfig{
			URL:          strings.TrimRight(getEnvString("CLOUD_URL", ""), "/"),
			APIKey:       getEnvString("CLOUD_API_KEY", ""),
			BackupBucket: getEnvString("CLOUD_BACKUP_BUCKET", "user-backups"),
			PrefsBucket:  getEnvString("CLOUD_PREFS_BUCKET", "user-preferences"),
		},
		Release: ReleaseConfig{
			GitHubToken: getEnvString("GITHUB_TOKEN", ""),
			AppVersion:  getEnvString("APP_VERSION", "0.0.0"),
			UpdateRepo:  getEnvString("UPDATE_REPO", "Onivoid/StarTrad-FR"),
		},
		Log: LogConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "console"),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("[Config] Loaded: config_dir=%s cache_dir=%s launcher_log=%s",
		config.Paths.ConfigDir, config.Paths.CacheDir, config.Paths.LauncherLogPath)

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if strings.TrimSpace(c.Paths.ConfigDir) == "" {
		return fmt.Errorf("CONFIG_DIR is required")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if _, err := cron.ParseStandard(c.Sources.PrefetchCron); err != nil {
		return fmt.Errorf("invalid PREFETCH_CRON: %w", err)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return fmt.Errorf("LOG_FORMAT must be console or json")
	}
	return nil
}

// Path returns the location of a settings document inside the config dir.
func (c *Config) Path(name string) string {
	return filepath.Join(c.Paths.ConfigDir, name)
}

// DBPath is the sync history database.
func (c *Config) DBPath() string {
	return c.Path("sync_history.db")
}

func defaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", appDirName)
	}
	return filepath.Join(dir, appDirName)
}

func defaultLauncherLogPath() string {
	appData := os.Getenv("APPDATA")
	if appData == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			appData = dir
		}
	}
	return filepath.Join(appData, "rsilauncher", "logs", "log.log")
}

func defaultGameDataDir() string {
	local := os.Getenv("LOCALAPPDATA")
	if local == "" {
		if dir, err := os.UserCacheDir(); err == nil {
			local = dir
		}
	}
	return filepath.Join(local, "Star Citizen")
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
