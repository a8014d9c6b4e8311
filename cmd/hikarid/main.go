package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"hikari/internal/bot"
	"hikari/internal/catalog"
	"hikari/internal/config"
	"hikari/internal/daemon"
	"hikari/internal/hls"
	"hikari/internal/logging"
	"hikari/internal/notifications"
	"hikari/internal/pipeline"
	"hikari/internal/scheduler"
	"hikari/internal/session"
	"hikari/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("hikarid: %v", err)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(os.Getenv("HIKARI_CONFIG"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := session.Open(cfg)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	lightClient, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.APIBase,
		telegram.WithTimeout(cfg.TelegramTimeout()))
	if err != nil {
		return fmt.Errorf("telegram client: %w", err)
	}
	heavyClient := lightClient
	if cfg.Telegram.HeavyAPIBase != cfg.Telegram.APIBase {
		heavyClient, err = telegram.New(cfg.Telegram.BotToken, cfg.Telegram.HeavyAPIBase,
			telegram.WithTimeout(cfg.TelegramTimeout()))
		if err != nil {
			return fmt.Errorf("heavy telegram client: %w", err)
		}
	}

	catalogClient, err := catalog.New(cfg.Catalog.BaseURL,
		catalog.WithHTTPClient(&http.Client{Timeout: cfg.CatalogTimeout()}))
	if err != nil {
		return fmt.Errorf("catalog client: %w", err)
	}

	notifier := notifications.NewService(lightClient, cfg.Delivery.SizeThresholdMiB)
	downloader := hls.New(logger,
		hls.WithRetries(cfg.Delivery.DownloadRetries),
		hls.WithBackoff(cfg.RetryBackoff()))
	pipe := pipeline.New(cfg, logger, catalogClient, downloader,
		telegram.NewLightSender(lightClient), telegram.NewHeavySender(heavyClient), notifier)
	sched := scheduler.New(pipe, notifier, logger)
	handler := bot.New(cfg, lightClient, catalogClient, store, sched, logger)

	d, err := daemon.New(cfg, store, sched, handler, lightClient, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("hikari daemon shutting down")
	d.Stop()
	return nil
}
