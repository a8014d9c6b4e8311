package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"hikari/internal/catalog"
	"hikari/internal/config"
	"hikari/internal/logging"
	"hikari/internal/telegram"
)

func newCatalogClient(cfg *config.Config) (*catalog.Client, error) {
	client, err := catalog.New(cfg.Catalog.BaseURL,
		catalog.WithHTTPClient(&http.Client{Timeout: cfg.CatalogTimeout()}))
	if err != nil {
		return nil, fmt.Errorf("catalog client: %w", err)
	}
	return client, nil
}

func newTelegramClients(cfg *config.Config) (light, heavy *telegram.Client, err error) {
	light, err = telegram.New(cfg.Telegram.BotToken, cfg.Telegram.APIBase,
		telegram.WithTimeout(cfg.TelegramTimeout()))
	if err != nil {
		return nil, nil, fmt.Errorf("telegram client: %w", err)
	}
	heavy = light
	if cfg.Telegram.HeavyAPIBase != cfg.Telegram.APIBase {
		heavy, err = telegram.New(cfg.Telegram.BotToken, cfg.Telegram.HeavyAPIBase,
			telegram.WithTimeout(cfg.TelegramTimeout()))
		if err != nil {
			return nil, nil, fmt.Errorf("heavy telegram client: %w", err)
		}
	}
	return light, heavy, nil
}

// newCLILogger logs to a file under the configured log directory so the
// terminal stays reserved for progress output and results.
func newCLILogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{filepath.Join(cfg.Logging.LogDir, "hikari.log")},
	})
}
