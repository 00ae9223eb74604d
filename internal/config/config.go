package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds everything roster reads from config.toml.
type Config struct {
	APIURL         string
	APIKey         string
	Resource       string
	ListStaleTime  time.Duration
	ItemStaleTime  time.Duration
	RefreshEvery   time.Duration // zero disables background refresh
	RequestTimeout time.Duration
	LogFile        string
	LogLevel       string
	LogFormat      string
	SessionPath    string
	PrefsPath      string
}

const (
	defaultConfigPath     = "~/.config/roster/config.toml"
	defaultSessionPath    = "~/.config/roster/session.toml"
	defaultPrefsPath      = "~/.config/roster/prefs.toml"
	defaultLogFile        = "~/.local/state/roster/roster.log"
	defaultAPIURL         = "https://reqres.in/api"
	defaultResource       = "users"
	defaultLogLevel       = "info"
	defaultLogFormat      = "text"
	defaultListStaleTime  = 5 * time.Minute
	defaultItemStaleTime  = 10 * time.Minute
	defaultRefreshEvery   = 30 * time.Second
	defaultRequestTimeout = 10 * time.Second
)

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIURL:         defaultAPIURL,
		Resource:       defaultResource,
		ListStaleTime:  defaultListStaleTime,
		ItemStaleTime:  defaultItemStaleTime,
		RefreshEvery:   defaultRefreshEvery,
		RequestTimeout: defaultRequestTimeout,
		LogFile:        mustExpand(defaultLogFile),
		LogLevel:       defaultLogLevel,
		LogFormat:      defaultLogFormat,
		SessionPath:    mustExpand(defaultSessionPath),
		PrefsPath:      mustExpand(defaultPrefsPath),
	}
}

type rawConfig struct {
	APIURL         string  `toml:"api_url"`
	APIKey         string  `toml:"api_key"`
	Resource       string  `toml:"resource"`
	ListStaleTime  *string `toml:"list_stale_time"`
	ItemStaleTime  *string `toml:"item_stale_time"`
	RefreshEvery   *string `toml:"refresh_every"`
	RequestTimeout *string `toml:"request_timeout"`
	LogFile        string  `toml:"log_file"`
	LogLevel       string  `toml:"log_level"`
	LogFormat      string  `toml:"log_format"`
	SessionFile    string  `toml:"session_file"`
	PrefsFile      string  `toml:"prefs_file"`
}

// Load locates and parses the config file, falling back to defaults when
// missing. Empty values keep their defaults.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	setString(&cfg.APIURL, raw.APIURL)
	setString(&cfg.APIKey, raw.APIKey)
	setString(&cfg.Resource, raw.Resource)
	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.LogFormat, raw.LogFormat)
	setPath(&cfg.LogFile, raw.LogFile)
	setPath(&cfg.SessionPath, raw.SessionFile)
	setPath(&cfg.PrefsPath, raw.PrefsFile)

	durations := []struct {
		key  string
		raw  *string
		dest *time.Duration
	}{
		{"list_stale_time", raw.ListStaleTime, &cfg.ListStaleTime},
		{"item_stale_time", raw.ItemStaleTime, &cfg.ItemStaleTime},
		{"refresh_every", raw.RefreshEvery, &cfg.RefreshEvery},
		{"request_timeout", raw.RequestTimeout, &cfg.RequestTimeout},
	}
	for _, d := range durations {
		if err := setDuration(d.dest, d.key, d.raw); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func setString(dest *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dest = v
	}
}

func setPath(dest *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dest = mustExpand(v)
	}
}

func setDuration(dest *time.Duration, key string, value *string) error {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*value))
	if err != nil {
		return fmt.Errorf("parse config: %s: %w", key, err)
	}
	if d < 0 {
		return fmt.Errorf("parse config: %s must not be negative", key)
	}
	*dest = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return ExpandPath(defaultConfigPath)
	}
	return ExpandPath(path)
}

func mustExpand(path string) string {
	expanded, err := ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

// ExpandPath resolves a leading ~ to the home directory and returns an
// absolute path.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
