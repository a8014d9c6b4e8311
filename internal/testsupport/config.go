package testsupport

import (
	"path/filepath"
	"testing"

	"hikari/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per test.
// Callers tweak individual fields on the returned value as needed.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Telegram.BotToken = "123456:TEST-TOKEN"
	cfg.Telegram.WebhookBind = "127.0.0.1:0"
	cfg.Catalog.BaseURL = "http://127.0.0.1:1"
	cfg.Delivery.VideoDir = filepath.Join(base, "videos")
	cfg.Delivery.SubtitleDir = filepath.Join(base, "subtitles")
	cfg.Session.DBPath = filepath.Join(base, "sessions.db")
	cfg.Logging.LogDir = filepath.Join(base, "logs")
	cfg.Daemon.LockPath = filepath.Join(base, "hikarid.lock")
	return &cfg
}
