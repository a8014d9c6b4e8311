package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeTelegram(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	if err := c.normalizeDelivery(); err != nil {
		return err
	}
	if err := c.normalizeSession(); err != nil {
		return err
	}
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeTelegram() error {
	c.Telegram.BotToken = strings.TrimSpace(c.Telegram.BotToken)
	if c.Telegram.BotToken == "" {
		if value, ok := os.LookupEnv("HIKARI_BOT_TOKEN"); ok {
			c.Telegram.BotToken = strings.TrimSpace(value)
		}
	}

	c.Telegram.APIBase = strings.TrimRight(strings.TrimSpace(c.Telegram.APIBase), "/")
	if c.Telegram.APIBase == "" {
		c.Telegram.APIBase = defaultTelegramAPIBase
	}

	// The heavy lane falls back to the light endpoint so a config without a
	// self-hosted Bot API server still delivers, at the smaller size ceiling.
	c.Telegram.HeavyAPIBase = strings.TrimRight(strings.TrimSpace(c.Telegram.HeavyAPIBase), "/")
	if c.Telegram.HeavyAPIBase == "" {
		c.Telegram.HeavyAPIBase = c.Telegram.APIBase
	}

	if c.Telegram.RequestTimeout <= 0 {
		c.Telegram.RequestTimeout = defaultTelegramTimeout
	}

	c.Telegram.WebhookPublicURL = strings.TrimRight(strings.TrimSpace(c.Telegram.WebhookPublicURL), "/")
	c.Telegram.WebhookBind = strings.TrimSpace(c.Telegram.WebhookBind)
	if c.Telegram.WebhookBind == "" {
		c.Telegram.WebhookBind = defaultWebhookBind
	}
	c.Telegram.WebhookSecret = strings.TrimSpace(c.Telegram.WebhookSecret)
	return nil
}

func (c *Config) normalizeCatalog() error {
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.BaseURL == "" {
		if value, ok := os.LookupEnv("HIKARI_CATALOG_URL"); ok {
			c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(value), "/")
		}
	}
	if c.Catalog.RequestTimeout <= 0 {
		c.Catalog.RequestTimeout = defaultCatalogTimeout
	}
	return nil
}

func (c *Config) normalizeDelivery() error {
	var err error
	if c.Delivery.VideoDir, err = expandPath(c.Delivery.VideoDir); err != nil {
		return fmt.Errorf("delivery.video_dir: %w", err)
	}
	if c.Delivery.SubtitleDir, err = expandPath(c.Delivery.SubtitleDir); err != nil {
		return fmt.Errorf("delivery.subtitle_dir: %w", err)
	}
	if c.Delivery.SizeThresholdMiB <= 0 {
		c.Delivery.SizeThresholdMiB = defaultSizeThresholdMiB
	}
	if c.Delivery.DownloadRetries <= 0 {
		c.Delivery.DownloadRetries = defaultDownloadRetries
	}
	if c.Delivery.RetryBackoffSeconds < 0 {
		c.Delivery.RetryBackoffSeconds = defaultRetryBackoffSeconds
	}
	if c.Delivery.ProgressIntervalSeconds <= 0 {
		c.Delivery.ProgressIntervalSeconds = defaultProgressInterval
	}
	return nil
}

func (c *Config) normalizeSession() error {
	var err error
	if c.Session.DBPath, err = expandPath(c.Session.DBPath); err != nil {
		return fmt.Errorf("session.db_path: %w", err)
	}
	if c.Session.TTLHours <= 0 {
		c.Session.TTLHours = defaultSessionTTLHours
	}
	if c.Session.SweepIntervalMinutes <= 0 {
		c.Session.SweepIntervalMinutes = defaultSessionSweepMinutes
	}
	return nil
}

func (c *Config) normalizeDaemon() error {
	var err error
	if c.Daemon.LockPath, err = expandPath(c.Daemon.LockPath); err != nil {
		return fmt.Errorf("daemon.lock_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" || c.Logging.Format == "console" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if expanded, err := expandPath(c.Logging.LogDir); err == nil {
		c.Logging.LogDir = expanded
	}
}
