package preflight

import (
	"context"

	"hikari/internal/config"
	"hikari/internal/telegram"
)

// MinFreeSpace is the smallest amount of free disk space the video
// directory needs before the daemon will start.
const MinFreeSpace = 1 << 30

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckEnvironment runs the local filesystem checks. A failure here is
// hard: the daemon refuses to start on it.
func CheckEnvironment(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Video directory", cfg.Delivery.VideoDir),
		CheckDirectoryAccess("Subtitle directory", cfg.Delivery.SubtitleDir),
		CheckDirectoryAccess("Log directory", cfg.Logging.LogDir),
		CheckFreeSpace("Video disk space", cfg.Delivery.VideoDir, MinFreeSpace),
	}
}

// CheckConnectivity runs the remote reachability checks. Failures are
// soft: both APIs can come back while the daemon is running.
func CheckConnectivity(ctx context.Context, cfg *config.Config, client *telegram.Client) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckTelegram(ctx, client),
		CheckCatalog(ctx, cfg.Catalog.BaseURL),
	}
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config, client *telegram.Client) []Result {
	results := CheckEnvironment(cfg)
	return append(results, CheckConnectivity(ctx, cfg, client)...)
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}
