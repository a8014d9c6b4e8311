package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"hikari/internal/config"
	"hikari/internal/logging"
	"hikari/internal/preflight"
	"hikari/internal/scheduler"
	"hikari/internal/session"
	"hikari/internal/telegram"
)

// UpdateHandler consumes decoded webhook updates.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update telegram.Update)
}

// Daemon coordinates the webhook server, the delivery scheduler, and the
// session sweeper, and enforces single-instance execution.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *session.Store
	scheduler *scheduler.Scheduler
	handler   UpdateHandler
	client    *telegram.Client

	lockPath string
	lock     *flock.Flock
	server   *webhookServer

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Status is the daemon's runtime snapshot served at /api/status.
type Status struct {
	Running       bool            `json:"running"`
	PID           int             `json:"pid"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Scheduler     scheduler.Stats `json:"scheduler"`
	SessionDBPath string          `json:"session_db_path"`
	LockFilePath  string          `json:"lock_file_path"`
}

// New constructs a daemon with initialized dependencies. The Telegram
// client may be nil, in which case webhook registration is skipped.
func New(cfg *config.Config, store *session.Store, sched *scheduler.Scheduler, handler UpdateHandler, client *telegram.Client, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || sched == nil || handler == nil {
		return nil, errors.New("daemon requires config, store, scheduler, and update handler")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		scheduler: sched,
		handler:   handler,
		client:    client,
		lockPath:  cfg.Daemon.LockPath,
		lock:      flock.New(cfg.Daemon.LockPath),
	}
	d.server = newWebhookServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, verifies the environment, and brings
// up the scheduler, the webhook server, and the session sweeper.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another hikari daemon instance is already running")
	}

	if failed := preflight.Failed(preflight.CheckEnvironment(d.cfg)); len(failed) > 0 {
		_ = d.lock.Unlock()
		details := make([]string, 0, len(failed))
		for _, result := range failed {
			details = append(details, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
	}
	for _, result := range preflight.Failed(preflight.CheckConnectivity(ctx, d.cfg, d.client)) {
		d.logger.Warn("preflight check failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.scheduler.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start scheduler: %w", err)
	}
	if err := d.server.start(runCtx); err != nil {
		d.scheduler.Stop()
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	d.registerWebhook(runCtx)

	d.wg.Add(1)
	go d.sweepSessions(runCtx)

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("hikari daemon started",
		logging.String("bind", d.cfg.Telegram.WebhookBind),
		logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts down the webhook server, drains the scheduler, and releases
// the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	d.scheduler.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("hikari daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr returns the webhook server's listening address, for callers that
// bound to port zero.
func (d *Daemon) Addr() string {
	return d.server.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		Scheduler:     d.scheduler.Stats(),
		SessionDBPath: d.store.Path(),
		LockFilePath:  d.lockPath,
	}
	if status.Running {
		status.UptimeSeconds = int64(time.Since(d.startedAt).Seconds())
	}
	return status
}

// registerWebhook points Telegram's update delivery at the configured
// public URL. Failure is tolerated; updates can still be driven manually.
func (d *Daemon) registerWebhook(ctx context.Context) {
	publicURL := strings.TrimSpace(d.cfg.Telegram.WebhookPublicURL)
	if publicURL == "" || d.client == nil {
		d.logger.Warn("webhook registration skipped",
			logging.String("reason", "webhook_public_url not configured"))
		return
	}
	url := strings.TrimRight(publicURL, "/") + webhookPath
	if err := d.client.SetWebhook(ctx, url, d.cfg.Telegram.WebhookSecret); err != nil {
		d.logger.Error("webhook registration failed", logging.Error(err))
		return
	}
	d.logger.Info("webhook registered", logging.String("url", url))
}

func (d *Daemon) sweepSessions(ctx context.Context) {
	defer d.wg.Done()
	interval := d.cfg.SessionSweepInterval()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted, err := d.store.EvictExpired(ctx, d.cfg.SessionTTL())
			if err != nil {
				d.logger.Warn("session sweep failed", logging.Error(err))
				continue
			}
			if evicted > 0 {
				d.logger.Info("expired sessions evicted", logging.Int64("count", evicted))
			}
		}
	}
}
