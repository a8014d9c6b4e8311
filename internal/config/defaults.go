package config

const (
	defaultTelegramAPIBase     = "https://api.telegram.org"
	defaultTelegramTimeout     = 30
	defaultWebhookBind         = "0.0.0.0:8080"
	defaultCatalogTimeout      = 15
	defaultSizeThresholdMiB    = 50
	defaultDownloadRetries     = 3
	defaultRetryBackoffSeconds = 2
	defaultProgressInterval    = 3
	defaultVideoDir            = "~/.local/share/hikari/videos"
	defaultSubtitleDir         = "~/.local/share/hikari/subtitles"
	defaultSessionDBPath       = "~/.local/share/hikari/hikari.db"
	defaultSessionTTLHours     = 24
	defaultSessionSweepMinutes = 15
	defaultLogFormat           = "pretty"
	defaultLogLevel            = "info"
	defaultLogDir              = "~/.local/share/hikari/logs"
	defaultDaemonLockPath      = "~/.local/share/hikari/hikarid.lock"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Telegram: Telegram{
			APIBase:        defaultTelegramAPIBase,
			RequestTimeout: defaultTelegramTimeout,
			WebhookBind:    defaultWebhookBind,
		},
		Catalog: Catalog{
			RequestTimeout: defaultCatalogTimeout,
		},
		Delivery: Delivery{
			SizeThresholdMiB:        defaultSizeThresholdMiB,
			DownloadRetries:         defaultDownloadRetries,
			RetryBackoffSeconds:     defaultRetryBackoffSeconds,
			ProgressIntervalSeconds: defaultProgressInterval,
			VideoDir:                defaultVideoDir,
			SubtitleDir:             defaultSubtitleDir,
		},
		Session: Session{
			DBPath:               defaultSessionDBPath,
			TTLHours:             defaultSessionTTLHours,
			SweepIntervalMinutes: defaultSessionSweepMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			LogDir: defaultLogDir,
		},
		Daemon: Daemon{
			LockPath: defaultDaemonLockPath,
		},
	}
}
