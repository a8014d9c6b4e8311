package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTelegram(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateDelivery(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTelegram() error {
	if c.Telegram.BotToken == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/hikari/config.toml"
		}
		return fmt.Errorf("telegram.bot_token is required. Set HIKARI_BOT_TOKEN env var or edit %s (create with 'hikari config init')", defaultPath)
	}
	for _, base := range []string{c.Telegram.APIBase, c.Telegram.HeavyAPIBase} {
		if err := validateHTTPURL(base); err != nil {
			return fmt.Errorf("telegram api base %q: %w", base, err)
		}
	}
	if c.Telegram.WebhookPublicURL != "" {
		if err := validateHTTPURL(c.Telegram.WebhookPublicURL); err != nil {
			return fmt.Errorf("telegram.webhook_public_url %q: %w", c.Telegram.WebhookPublicURL, err)
		}
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.BaseURL == "" {
		return errors.New("catalog.base_url is required. Set HIKARI_CATALOG_URL env var or edit the config file")
	}
	if err := validateHTTPURL(c.Catalog.BaseURL); err != nil {
		return fmt.Errorf("catalog.base_url %q: %w", c.Catalog.BaseURL, err)
	}
	return nil
}

func (c *Config) validateDelivery() error {
	if c.Delivery.VideoDir == "" {
		return errors.New("delivery.video_dir must be set")
	}
	if c.Delivery.SubtitleDir == "" {
		return errors.New("delivery.subtitle_dir must be set")
	}
	if c.Delivery.VideoDir == c.Delivery.SubtitleDir {
		return errors.New("delivery.video_dir and delivery.subtitle_dir must differ")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "pretty", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be \"pretty\" or \"json\", got %q", c.Logging.Format)
	}
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", parsed.Scheme)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return errors.New("host must not be empty")
	}
	return nil
}
