package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"hikari/internal/notifications"
	"hikari/internal/services"
	"hikari/internal/telegram"
	"hikari/internal/transport"
)

type recordingAPI struct {
	mu    sync.Mutex
	sent  []string
	edits []string
}

func (r *recordingAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			t.Errorf("failed to decode payload: %v", err)
		}
		r.mu.Lock()
		if strings.HasSuffix(req.URL.Path, "/editMessageText") {
			r.edits = append(r.edits, payload.Text)
		} else {
			r.sent = append(r.sent, payload.Text)
		}
		r.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":5,"chat":{"id":42}}}`))
	})
}

func newChatService(t *testing.T, api *recordingAPI) notifications.Service {
	t.Helper()
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)
	client, err := telegram.New("123456:TEST-TOKEN", server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return notifications.NewService(client, 50)
}

func TestMessagesCarryEpisodeContext(t *testing.T) {
	api := &recordingAPI{}
	svc := newChatService(t, api)
	ctx := context.Background()

	tests := []struct {
		name   string
		send   func() error
		expect string
	}{
		{
			name:   "batch queued",
			send:   func() error { return svc.NotifyBatchQueued(ctx, 42) },
			expect: "⏳ Queued all episodes for download… You will receive them one by one.",
		},
		{
			name:   "extraction failed",
			send:   func() error { return svc.NotifyExtractionFailed(ctx, 42, "3") },
			expect: "❌ Failed to extract data for Episode 3.",
		},
		{
			name:   "no stream",
			send:   func() error { return svc.NotifyNoStream(ctx, 42, "3") },
			expect: "😔 Could not find a subtitled HD stream for Episode 3.",
		},
		{
			name:   "light upload",
			send:   func() error { return svc.NotifyUploadStarting(ctx, 42, "3", transport.LaneLight) },
			expect: "✅ Episode 3 is ready (≤50 MB). Sending via Bot API…",
		},
		{
			name:   "heavy upload",
			send:   func() error { return svc.NotifyUploadStarting(ctx, 42, "3", transport.LaneHeavy) },
			expect: "📦 Episode 3 is >50 MB. Sending full quality via the large-file uploader…",
		},
		{
			name:   "link fallback",
			send:   func() error { return svc.NotifyLinkFallback(ctx, 42, "3", "https://cdn.example.com/ep3.m3u8") },
			expect: "⚠️ Could not deliver Episode 3. Here's the HLS link instead:\n\nhttps://cdn.example.com/ep3.m3u8",
		},
		{
			name:   "subtitle ready",
			send:   func() error { return svc.NotifySubtitleReady(ctx, 42, "3") },
			expect: "✅ Subtitle downloaded as “Episode 3.vtt”.",
		},
		{
			name:   "no subtitle",
			send:   func() error { return svc.NotifyNoSubtitle(ctx, 42, "3") },
			expect: "❗ No English subtitle (.vtt) found for Episode 3.",
		},
		{
			name:   "subtitle fetch failed",
			send:   func() error { return svc.NotifySubtitleFetchFailed(ctx, 42, "3") },
			expect: "⚠️ Found a subtitle URL, but failed to download it for Episode 3.",
		},
		{
			name:   "subtitle send failed",
			send:   func() error { return svc.NotifySubtitleSendFailed(ctx, 42, "3") },
			expect: "⚠️ Could not send subtitle for Episode 3.",
		},
	}

	for i, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.send(); err != nil {
				t.Fatalf("send failed: %v", err)
			}
			api.mu.Lock()
			defer api.mu.Unlock()
			if len(api.sent) != i+1 {
				t.Fatalf("expected %d sends, got %d", i+1, len(api.sent))
			}
			if got := api.sent[i]; got != tc.expect {
				t.Errorf("unexpected message\n got: %q\nwant: %q", got, tc.expect)
			}
		})
	}
}

func TestQueuedReturnsEditableHandle(t *testing.T) {
	api := &recordingAPI{}
	svc := newChatService(t, api)
	ctx := context.Background()

	handle, err := svc.NotifyQueued(ctx, 42, "3")
	if err != nil {
		t.Fatalf("NotifyQueued failed: %v", err)
	}
	if !handle.Valid() || handle.MessageID != 5 || handle.ConversationID != 42 {
		t.Fatalf("unexpected handle %+v", handle)
	}

	if err := svc.EditStatus(ctx, handle, "⬇️ Downloading: 42%"); err != nil {
		t.Fatalf("EditStatus failed: %v", err)
	}
	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.edits) != 1 || api.edits[0] != "⬇️ Downloading: 42%" {
		t.Errorf("unexpected edits %+v", api.edits)
	}
	if !strings.Contains(api.sent[0], "Episode 3 queued for download") {
		t.Errorf("unexpected queued text %q", api.sent[0])
	}
}

func TestEditStatusIgnoresInvalidHandle(t *testing.T) {
	svc := notifications.NewService(nil, 50)
	if err := svc.EditStatus(context.Background(), notifications.StatusHandle{}, "text"); err != nil {
		t.Fatalf("expected nil for noop edit, got %v", err)
	}
}

func TestFailuresCarryNotifyMarker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	}))
	defer server.Close()

	client, err := telegram.New("123456:TEST-TOKEN", server.URL)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	svc := notifications.NewService(client, 50)

	err = svc.NotifyDeliveryFailed(context.Background(), 42, "3")
	if err == nil {
		t.Fatal("expected notify failure")
	}
	if !errors.Is(err, services.ErrNotify) {
		t.Errorf("expected ErrNotify, got %v", err)
	}
}
