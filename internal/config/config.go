package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Telegram contains Bot API connection and webhook settings.
type Telegram struct {
	BotToken             string  `toml:"bot_token"`
	APIBase              string  `toml:"api_base"`
	HeavyAPIBase         string  `toml:"heavy_api_base"`
	RequestTimeout       int     `toml:"request_timeout"`
	WebhookPublicURL     string  `toml:"webhook_public_url"`
	WebhookBind          string  `toml:"webhook_bind"`
	WebhookSecret        string  `toml:"webhook_secret"`
	AllowedConversations []int64 `toml:"allowed_conversations"`
}

// Catalog contains configuration for the episode catalog API.
type Catalog struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Delivery contains download and transport policy.
type Delivery struct {
	SizeThresholdMiB        int    `toml:"size_threshold_mib"`
	DownloadRetries         int    `toml:"download_retries"`
	RetryBackoffSeconds     int    `toml:"retry_backoff_seconds"`
	ProgressIntervalSeconds int    `toml:"progress_interval_seconds"`
	VideoDir                string `toml:"video_dir"`
	SubtitleDir             string `toml:"subtitle_dir"`
}

// Session contains configuration for the conversation session store.
type Session struct {
	DBPath               string `toml:"db_path"`
	TTLHours             int    `toml:"ttl_hours"`
	SweepIntervalMinutes int    `toml:"sweep_interval_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	LogDir string `toml:"log_dir"`
}

// Daemon contains daemon lifecycle settings.
type Daemon struct {
	LockPath string `toml:"lock_path"`
}

// Config encapsulates all configuration values for Hikari.
//
// Configuration sections by subsystem:
//   - Telegram: Bot API endpoints, webhook surface, conversation allow-list
//   - Catalog: episode catalog/search API
//   - Delivery: size routing threshold, retry policy, working directories
//   - Session: sqlite store path and eviction policy
//   - Logging: log format, level, and directory
//   - Daemon: single-instance lock
type Config struct {
	Telegram Telegram `toml:"telegram"`
	Catalog  Catalog  `toml:"catalog"`
	Delivery Delivery `toml:"delivery"`
	Session  Session  `toml:"session"`
	Logging  Logging  `toml:"logging"`
	Daemon   Daemon   `toml:"daemon"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hikari/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/hikari/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hikari.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working directories every pipeline relies on.
// Both scratch directories must exist before any pipeline runs.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Delivery.VideoDir,
		c.Delivery.SubtitleDir,
		c.Logging.LogDir,
		filepath.Dir(c.Session.DBPath),
		filepath.Dir(c.Daemon.LockPath),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SizeThresholdBytes returns the light/heavy routing threshold in bytes.
func (c *Config) SizeThresholdBytes() int64 {
	return int64(c.Delivery.SizeThresholdMiB) * 1024 * 1024
}

// ProgressInterval returns the minimum spacing between chat progress updates.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Delivery.ProgressIntervalSeconds) * time.Second
}

// RetryBackoff returns the pause between segment retry attempts.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.Delivery.RetryBackoffSeconds) * time.Second
}

// SessionTTL returns how long idle conversation state is retained.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLHours) * time.Hour
}

// SessionSweepInterval returns the cadence of the eviction sweep.
func (c *Config) SessionSweepInterval() time.Duration {
	return time.Duration(c.Session.SweepIntervalMinutes) * time.Minute
}

// TelegramTimeout returns the per-request timeout for Bot API calls.
// File uploads manage their own deadlines and ignore this value.
func (c *Config) TelegramTimeout() time.Duration {
	return time.Duration(c.Telegram.RequestTimeout) * time.Second
}

// CatalogTimeout returns the per-request timeout for catalog API calls.
func (c *Config) CatalogTimeout() time.Duration {
	return time.Duration(c.Catalog.RequestTimeout) * time.Second
}

// ConversationAllowed reports whether the conversation may use the bot.
// An empty allow-list admits everyone.
func (c *Config) ConversationAllowed(id int64) bool {
	if len(c.Telegram.AllowedConversations) == 0 {
		return true
	}
	for _, allowed := range c.Telegram.AllowedConversations {
		if allowed == id {
			return true
		}
	}
	return false
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
