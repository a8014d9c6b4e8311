package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"hikari/internal/catalog"
	"hikari/internal/config"
	"hikari/internal/fileutil"
	"hikari/internal/hls"
	"hikari/internal/notifications"
	"hikari/internal/pipeline"
	"hikari/internal/progress"
	"hikari/internal/services"
	"hikari/internal/testsupport"
	"hikari/internal/transport"
)

type fakeResolver struct {
	info catalog.StreamInfo
	err  error
}

func (f *fakeResolver) Resolve(ctx context.Context, handle string) (catalog.StreamInfo, error) {
	return f.info, f.err
}

type fakeDownloader struct {
	size     int64
	err      error
	emitDone bool
}

func (f *fakeDownloader) Download(ctx context.Context, manifestURL, destPath string, sink progress.Sink) (*hls.Artifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	if err := fileutil.EnsureParent(destPath); err != nil {
		return nil, err
	}
	if err := os.WriteFile(destPath, []byte("artifact"), 0o644); err != nil {
		return nil, err
	}
	if f.emitDone && sink != nil {
		sink(progress.Sample{Phase: progress.PhaseDownload, Transferred: f.size, Total: f.size, HasTotal: true, Completed: true})
	}
	return &hls.Artifact{Path: destPath, Size: f.size}, nil
}

type fakeSender struct {
	lane     transport.Lane
	err      error
	requests []transport.SendRequest
}

func (f *fakeSender) Send(ctx context.Context, req transport.SendRequest) error {
	f.requests = append(f.requests, req)
	return f.err
}

func (f *fakeSender) Lane() transport.Lane {
	return f.lane
}

type recorder struct {
	events []string
	edits  []string
}

func (r *recorder) NotifyQueued(ctx context.Context, conversationID int64, label string) (notifications.StatusHandle, error) {
	r.events = append(r.events, "queued")
	return notifications.StatusHandle{ConversationID: conversationID, MessageID: 1}, nil
}

func (r *recorder) NotifyBatchQueued(ctx context.Context, conversationID int64) error {
	r.events = append(r.events, "batch_queued")
	return nil
}

func (r *recorder) NotifyExtractionFailed(ctx context.Context, conversationID int64, label string) error {
	r.events = append(r.events, "extraction_failed")
	return nil
}

func (r *recorder) NotifyNoStream(ctx context.Context, conversationID int64, label string) error {
	r.events = append(r.events, "no_stream")
	return nil
}

func (r *recorder) NotifyUploadStarting(ctx context.Context, conversationID int64, label string, lane transport.Lane) error {
	r.events = append(r.events, "upload_"+string(lane))
	return nil
}

func (r *recorder) NotifyLinkFallback(ctx context.Context, conversationID int64, label, streamURL string) error {
	r.events = append(r.events, "link_fallback:"+streamURL)
	return nil
}

func (r *recorder) NotifyDeliveryFailed(ctx context.Context, conversationID int64, label string) error {
	r.events = append(r.events, "delivery_failed")
	return nil
}

func (r *recorder) NotifySubtitleReady(ctx context.Context, conversationID int64, label string) error {
	r.events = append(r.events, "subtitle_ready")
	return nil
}

func (r *recorder) NotifyNoSubtitle(ctx context.Context, conversationID int64, label string) error {
	r.events = append(r.events, "no_subtitle")
	return nil
}

func (r *recorder) NotifySubtitleFetchFailed(ctx context.Context, conversationID int64, label string) error {
	r.events = append(r.events, "subtitle_fetch_failed")
	return nil
}

func (r *recorder) NotifySubtitleSendFailed(ctx context.Context, conversationID int64, label string) error {
	r.events = append(r.events, "subtitle_send_failed")
	return nil
}

func (r *recorder) EditStatus(ctx context.Context, handle notifications.StatusHandle, text string) error {
	r.edits = append(r.edits, text)
	return nil
}

func subtitleServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("WEBVTT\n\n00:00.000 --> 00:02.000\nhello\n"))
	}))
	t.Cleanup(server.Close)
	return server
}

type testPipeline struct {
	cfg      *config.Config
	pipe     *pipeline.Pipeline
	recorder *recorder
	light    *fakeSender
	heavy    *fakeSender
}

func newTestPipeline(t *testing.T, resolver *fakeResolver, downloader *fakeDownloader) *testPipeline {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	rec := &recorder{}
	light := &fakeSender{lane: transport.LaneLight}
	heavy := &fakeSender{lane: transport.LaneHeavy}
	pipe := pipeline.New(cfg, nil, resolver, downloader, light, heavy, rec)
	return &testPipeline{cfg: cfg, pipe: pipe, recorder: rec, light: light, heavy: heavy}
}

func request() pipeline.Request {
	return pipeline.Request{ConversationID: 42, EpisodeHandle: "frieren-18542?ep=1001", EpisodeLabel: "3"}
}

func mib(n int64) int64 {
	return n * 1024 * 1024
}

func TestRunDeliversSmallEpisodeWithSubtitle(t *testing.T) {
	subs := subtitleServer(t)
	resolver := &fakeResolver{info: catalog.StreamInfo{
		ManifestURL: "https://cdn.example.com/ep3.m3u8",
		SubtitleURL: subs.URL + "/eng.vtt",
	}}
	tp := newTestPipeline(t, resolver, &fakeDownloader{size: mib(10)})

	outcome := tp.pipe.Run(context.Background(), request(), notifications.StatusHandle{ConversationID: 42, MessageID: 1})

	if outcome.Kind != pipeline.OutcomeDelivered || !outcome.VideoSent || !outcome.SubtitleSent {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(tp.light.requests) != 2 {
		t.Fatalf("expected video + subtitle on light lane, got %d sends", len(tp.light.requests))
	}
	if len(tp.heavy.requests) != 0 {
		t.Errorf("heavy lane should be idle, got %d sends", len(tp.heavy.requests))
	}

	video := tp.light.requests[0]
	if video.FileName != "Episode 3.mp4" || video.Caption != "Episode 3" {
		t.Errorf("unexpected video send %+v", video)
	}
	subtitle := tp.light.requests[1]
	if subtitle.FileName != "Episode 3.vtt" || !strings.Contains(subtitle.Caption, "subtitle for Episode 3") {
		t.Errorf("unexpected subtitle send %+v", subtitle)
	}

	want := []string{"upload_light", "subtitle_ready"}
	if fmt.Sprint(tp.recorder.events) != fmt.Sprint(want) {
		t.Errorf("unexpected events %v", tp.recorder.events)
	}
}

func TestRunRoutesLargeEpisodeToHeavyLane(t *testing.T) {
	resolver := &fakeResolver{info: catalog.StreamInfo{ManifestURL: "https://cdn.example.com/ep3.m3u8"}}
	tp := newTestPipeline(t, resolver, &fakeDownloader{size: mib(50) + 1})

	outcome := tp.pipe.Run(context.Background(), request(), notifications.StatusHandle{})

	if outcome.Kind != pipeline.OutcomeDelivered || !outcome.VideoSent {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(tp.heavy.requests) != 1 {
		t.Fatalf("expected heavy lane send, got %d", len(tp.heavy.requests))
	}
	if len(tp.light.requests) != 0 {
		t.Errorf("light lane should be idle, got %d sends", len(tp.light.requests))
	}
	if tp.recorder.events[0] != "upload_heavy" {
		t.Errorf("unexpected events %v", tp.recorder.events)
	}
}

func TestRunThresholdSizeStaysLight(t *testing.T) {
	resolver := &fakeResolver{info: catalog.StreamInfo{ManifestURL: "https://cdn.example.com/ep3.m3u8"}}
	tp := newTestPipeline(t, resolver, &fakeDownloader{size: mib(50)})

	outcome := tp.pipe.Run(context.Background(), request(), notifications.StatusHandle{})

	if outcome.Kind != pipeline.OutcomeDelivered {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(tp.light.requests) != 1 || len(tp.heavy.requests) != 0 {
		t.Errorf("expected threshold-sized artifact on light lane, light=%d heavy=%d",
			len(tp.light.requests), len(tp.heavy.requests))
	}
}

func TestRunDownloadFailureFallsBackAndStillDeliversSubtitle(t *testing.T) {
	subs := subtitleServer(t)
	manifest := "https://cdn.example.com/ep3.m3u8"
	resolver := &fakeResolver{info: catalog.StreamInfo{
		ManifestURL: manifest,
		SubtitleURL: subs.URL + "/eng.vtt",
	}}
	downloadErr := services.Wrap(services.ErrDownload, "download", "segment", "exhausted retries", nil)
	tp := newTestPipeline(t, resolver, &fakeDownloader{err: downloadErr})

	outcome := tp.pipe.Run(context.Background(), request(), notifications.StatusHandle{})

	if outcome.Kind != pipeline.OutcomeLinkFallback || outcome.VideoSent {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if !outcome.SubtitleSent {
		t.Error("expected subtitle delivery despite video failure")
	}
	want := []string{"link_fallback:" + manifest, "subtitle_ready"}
	if fmt.Sprint(tp.recorder.events) != fmt.Sprint(want) {
		t.Errorf("unexpected events %v", tp.recorder.events)
	}
	if len(tp.light.requests) != 1 || tp.light.requests[0].FileName != "Episode 3.vtt" {
		t.Errorf("expected only the subtitle send, got %+v", tp.light.requests)
	}
}

func TestRunUploadFailureFallsBack(t *testing.T) {
	manifest := "https://cdn.example.com/ep3.m3u8"
	resolver := &fakeResolver{info: catalog.StreamInfo{ManifestURL: manifest}}
	tp := newTestPipeline(t, resolver, &fakeDownloader{size: mib(10)})
	tp.light.err = services.Wrap(services.ErrUpload, "upload", "light", "send document", nil)

	outcome := tp.pipe.Run(context.Background(), request(), notifications.StatusHandle{})

	if outcome.Kind != pipeline.OutcomeLinkFallback || outcome.VideoSent {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	want := []string{"upload_light", "link_fallback:" + manifest, "no_subtitle"}
	if fmt.Sprint(tp.recorder.events) != fmt.Sprint(want) {
		t.Errorf("unexpected events %v", tp.recorder.events)
	}
}

func TestRunResolutionFailureSkipsSubtitle(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("catalog search returned 502")}
	tp := newTestPipeline(t, resolver, &fakeDownloader{size: mib(10)})

	outcome := tp.pipe.Run(context.Background(), request(), notifications.StatusHandle{})

	if outcome.Kind != pipeline.OutcomeFailed {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if !errors.Is(outcome.Err, services.ErrResolution) {
		t.Errorf("expected ErrResolution, got %v", outcome.Err)
	}
	want := []string{"extraction_failed"}
	if fmt.Sprint(tp.recorder.events) != fmt.Sprint(want) {
		t.Errorf("unexpected events %v", tp.recorder.events)
	}
}

func TestRunNoStreamIsTerminal(t *testing.T) {
	resolver := &fakeResolver{info: catalog.StreamInfo{SubtitleURL: "https://cdn.example.com/eng.vtt"}}
	tp := newTestPipeline(t, resolver, &fakeDownloader{size: mib(10)})

	outcome := tp.pipe.Run(context.Background(), request(), notifications.StatusHandle{})

	if outcome.Kind != pipeline.OutcomeFailed {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if !errors.Is(outcome.Err, services.ErrNoStream) {
		t.Errorf("expected ErrNoStream, got %v", outcome.Err)
	}
	want := []string{"no_stream"}
	if fmt.Sprint(tp.recorder.events) != fmt.Sprint(want) {
		t.Errorf("unexpected events %v", tp.recorder.events)
	}
}

func TestRunCleansUpArtifactsOnEveryExit(t *testing.T) {
	subs := subtitleServer(t)
	resolver := &fakeResolver{info: catalog.StreamInfo{
		ManifestURL: "https://cdn.example.com/ep3.m3u8",
		SubtitleURL: subs.URL + "/eng.vtt",
	}}

	cases := []struct {
		name     string
		lightErr error
	}{
		{name: "delivered"},
		{name: "upload failed", lightErr: services.Wrap(services.ErrUpload, "upload", "light", "", nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tp := newTestPipeline(t, resolver, &fakeDownloader{size: mib(10)})
			tp.light.err = tc.lightErr

			tp.pipe.Run(context.Background(), request(), notifications.StatusHandle{})

			for _, dir := range []string{tp.cfg.Delivery.VideoDir, tp.cfg.Delivery.SubtitleDir} {
				entries, err := os.ReadDir(dir)
				if err != nil {
					t.Fatalf("failed to read %s: %v", dir, err)
				}
				if len(entries) != 0 {
					t.Errorf("expected %s empty after run, found %d entries", dir, len(entries))
				}
			}
		})
	}
}

func TestRunSubtitleFetchFailureIsReportedNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resolver := &fakeResolver{info: catalog.StreamInfo{
		ManifestURL: "https://cdn.example.com/ep3.m3u8",
		SubtitleURL: server.URL + "/eng.vtt",
	}}
	tp := newTestPipeline(t, resolver, &fakeDownloader{size: mib(10)})

	outcome := tp.pipe.Run(context.Background(), request(), notifications.StatusHandle{})

	if outcome.Kind != pipeline.OutcomeDelivered || !outcome.VideoSent {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.SubtitleSent {
		t.Error("expected subtitle to be missing")
	}
	want := []string{"upload_light", "subtitle_fetch_failed"}
	if fmt.Sprint(tp.recorder.events) != fmt.Sprint(want) {
		t.Errorf("unexpected events %v", tp.recorder.events)
	}
}

func TestRunCanceledProducesNoChatNoise(t *testing.T) {
	resolver := &fakeResolver{info: catalog.StreamInfo{ManifestURL: "https://cdn.example.com/ep3.m3u8"}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tp := newTestPipeline(t, resolver, &fakeDownloader{err: context.Canceled})

	outcome := tp.pipe.Run(ctx, request(), notifications.StatusHandle{})

	if outcome.Kind != pipeline.OutcomeFailed || outcome.Reason != "canceled" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if len(tp.recorder.events) != 0 {
		t.Errorf("expected no notifications for a canceled run, got %v", tp.recorder.events)
	}
}

func TestRunEditsStatusMessageWithProgress(t *testing.T) {
	resolver := &fakeResolver{info: catalog.StreamInfo{ManifestURL: "https://cdn.example.com/ep3.m3u8"}}
	tp := newTestPipeline(t, resolver, &fakeDownloader{size: mib(10), emitDone: true})

	tp.pipe.Run(context.Background(), request(), notifications.StatusHandle{ConversationID: 42, MessageID: 7})

	if len(tp.recorder.edits) == 0 {
		t.Fatal("expected progress edits on the status message")
	}
	if !strings.Contains(tp.recorder.edits[0], "Download complete") {
		t.Errorf("unexpected first edit %q", tp.recorder.edits[0])
	}
}

func TestRequestValidationAndKeys(t *testing.T) {
	if err := (pipeline.Request{EpisodeHandle: "h"}).Validate(); !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected validation error for missing conversation, got %v", err)
	}
	if err := (pipeline.Request{ConversationID: 1}).Validate(); !errors.Is(err, services.ErrValidation) {
		t.Errorf("expected validation error for missing handle, got %v", err)
	}
	req := request()
	if req.Key() != "42:frieren-18542?ep=1001" {
		t.Errorf("unexpected key %q", req.Key())
	}
	if (pipeline.Request{EpisodeHandle: "h"}).Label() != "h" {
		t.Error("expected label fallback to handle")
	}
}
