package daemon_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"hikari/internal/daemon"
	"hikari/internal/logging"
	"hikari/internal/notifications"
	"hikari/internal/pipeline"
	"hikari/internal/scheduler"
	"hikari/internal/telegram"
	"hikari/internal/testsupport"
)

type nopRunner struct{}

func (nopRunner) Run(context.Context, pipeline.Request, notifications.StatusHandle) pipeline.Outcome {
	return pipeline.Outcome{Kind: pipeline.OutcomeDelivered, VideoSent: true}
}

type recordingHandler struct {
	mu      sync.Mutex
	updates []telegram.Update
}

func (h *recordingHandler) HandleUpdate(_ context.Context, update telegram.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, update)
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.updates)
}

func startDaemon(t *testing.T, secret string) (*daemon.Daemon, *recordingHandler) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Telegram.WebhookSecret = secret
	store := testsupport.MustOpenStore(t, cfg)
	handler := &recordingHandler{}
	sched := scheduler.New(nopRunner{}, notifications.NewNop(), logging.NewNop())

	d, err := daemon.New(cfg, store, sched, handler, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { d.Stop() })
	return d, handler
}

func TestDaemonServesWebhookAndStatus(t *testing.T) {
	d, handler := startDaemon(t, "s3cret")
	base := "http://" + d.Addr()

	body := `{"update_id":7,"message":{"message_id":1,"chat":{"id":42},"text":"/start"}}`
	req, err := http.NewRequest(http.MethodPost, base+"/webhook", strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "s3cret")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("webhook post failed: %v", err)
	}
	payload, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(payload) != "OK" {
		t.Fatalf("expected 200 OK, got %d %q", resp.StatusCode, payload)
	}

	deadline := time.After(5 * time.Second)
	for handler.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("update never reached the handler")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	handler.mu.Lock()
	update := handler.updates[0]
	handler.mu.Unlock()
	if update.UpdateID != 7 || update.Message == nil || update.Message.Chat.ID != 42 {
		t.Fatalf("unexpected update %+v", update)
	}

	resp, err = http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("healthz failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthz 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	defer resp.Body.Close()
	var status daemon.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running || status.PID == 0 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.SessionDBPath == "" || status.LockFilePath == "" {
		t.Fatalf("status missing paths: %+v", status)
	}
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	d, handler := startDaemon(t, "s3cret")
	base := "http://" + d.Addr()

	resp, err := http.Post(base+"/webhook", "application/json", strings.NewReader(`{"update_id":1}`))
	if err != nil {
		t.Fatalf("webhook post failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", resp.StatusCode)
	}
	time.Sleep(50 * time.Millisecond)
	if handler.count() != 0 {
		t.Fatal("rejected update must not reach the handler")
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	handler := &recordingHandler{}

	first, err := daemon.New(cfg, store, scheduler.New(nopRunner{}, notifications.NewNop(), logging.NewNop()), handler, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { first.Stop() })

	second, err := daemon.New(cfg, store, scheduler.New(nopRunner{}, notifications.NewNop(), logging.NewNop()), handler, nil, logging.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	err = second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("expected second instance to be refused")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error: %v", err)
	}
}
