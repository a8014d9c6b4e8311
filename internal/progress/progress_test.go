package progress_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"hikari/internal/progress"
)

func TestFormatIsIdempotent(t *testing.T) {
	sample := progress.Sample{
		Phase:       progress.PhaseDownload,
		Transferred: 21 * 1000 * 1000,
		Total:       50 * 1000 * 1000,
		HasTotal:    true,
		Elapsed:     10 * time.Second,
		Speed:       2.1 * 1000 * 1000,
		ETA:         14 * time.Second,
		HasETA:      true,
	}
	first := progress.Format(sample)
	second := progress.Format(sample)
	if first != second {
		t.Fatalf("formatter not pure: %q vs %q", first, second)
	}
	if first == "" {
		t.Fatal("expected non-empty render")
	}
}

func TestFormatUnknownTotalOmitsPercent(t *testing.T) {
	sample := progress.Sample{
		Phase:       progress.PhaseDownload,
		Transferred: 5 * 1000 * 1000,
		Elapsed:     4 * time.Second,
		Speed:       1.25 * 1000 * 1000,
	}
	text := progress.Format(sample)
	if want := "5.0 MB"; !containsAll(text, want) {
		t.Fatalf("expected transferred size in %q", text)
	}
	if containsAll(text, "%") {
		t.Fatalf("unexpected percent without total: %q", text)
	}
}

func TestFormatCompletedMentionsCompletion(t *testing.T) {
	sample := progress.Sample{
		Phase:       progress.PhaseUpload,
		Transferred: 80 * 1000 * 1000,
		Total:       80 * 1000 * 1000,
		HasTotal:    true,
		Elapsed:     90 * time.Second,
		Completed:   true,
	}
	text := progress.Format(sample)
	if !containsAll(text, "Upload complete", "1m30s") {
		t.Fatalf("unexpected render: %q", text)
	}
}

func TestThrottleLimitsRate(t *testing.T) {
	var mu sync.Mutex
	var delivered []progress.Sample
	sink := progress.Throttle(func(s progress.Sample) {
		mu.Lock()
		delivered = append(delivered, s)
		mu.Unlock()
	}, 50*time.Millisecond)

	for i := 0; i < 10; i++ {
		sink(progress.Sample{Transferred: int64(i)})
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	count := len(delivered)
	mu.Unlock()
	if count < 1 || count > 2 {
		t.Fatalf("expected 1-2 deliveries over ~50ms window, got %d", count)
	}
}

func TestThrottleAlwaysPassesCompletion(t *testing.T) {
	var mu sync.Mutex
	var delivered []progress.Sample
	sink := progress.Throttle(func(s progress.Sample) {
		mu.Lock()
		delivered = append(delivered, s)
		mu.Unlock()
	}, time.Hour)

	sink(progress.Sample{Transferred: 1})
	sink(progress.Sample{Transferred: 2})
	sink(progress.Sample{Transferred: 3, Completed: true})

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 2 {
		t.Fatalf("expected first sample plus completion, got %d", len(delivered))
	}
	if !delivered[len(delivered)-1].Completed {
		t.Fatal("final delivery must be the completion sample")
	}
}

func TestTeeFansOutAndSkipsNil(t *testing.T) {
	var first, second []int64
	sink := progress.Tee(
		func(s progress.Sample) { first = append(first, s.Transferred) },
		nil,
		func(s progress.Sample) { second = append(second, s.Transferred) },
	)

	sink(progress.Sample{Transferred: 1})
	sink(progress.Sample{Transferred: 2})

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("expected both sinks to see 2 samples, got %d and %d", len(first), len(second))
	}
	if first[1] != 2 || second[1] != 2 {
		t.Fatalf("expected samples in order, got %v and %v", first, second)
	}
}

func TestTrackerEstimatesETA(t *testing.T) {
	tracker := progress.NewTracker(progress.PhaseDownload, 100)
	time.Sleep(10 * time.Millisecond)

	s := tracker.Sample(50)
	if !s.HasTotal || s.Total != 100 {
		t.Fatalf("expected total carried: %+v", s)
	}
	if s.Speed <= 0 {
		t.Fatalf("expected positive speed: %+v", s)
	}
	if !s.HasETA {
		t.Fatalf("expected ETA with known total: %+v", s)
	}

	final := tracker.Complete(100)
	if !final.Completed || final.HasETA {
		t.Fatalf("unexpected terminal sample: %+v", final)
	}
}

func TestTrackerUnknownTotal(t *testing.T) {
	tracker := progress.NewTracker(progress.PhaseDownload, 0)
	s := tracker.Sample(10)
	if s.HasTotal || s.HasETA {
		t.Fatalf("expected no total or ETA: %+v", s)
	}

	tracker.SetTotal(40)
	s = tracker.Sample(20)
	if !s.HasTotal || s.Total != 40 {
		t.Fatalf("expected updated estimate: %+v", s)
	}
}

func TestNotifierDeliversCompletionAndDedupes(t *testing.T) {
	var mu sync.Mutex
	var edits []string
	editor := func(_ context.Context, text string) error {
		mu.Lock()
		edits = append(edits, text)
		mu.Unlock()
		return nil
	}

	n := progress.NewNotifier(context.Background(), editor, nil)
	same := progress.Sample{Phase: progress.PhaseDownload, Transferred: 10, Elapsed: time.Second}
	n.Offer(same)
	n.Offer(same)
	n.Offer(progress.Sample{Phase: progress.PhaseDownload, Transferred: 10, Elapsed: time.Second, Completed: true})
	n.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(edits) < 1 {
		t.Fatal("expected at least the completion edit")
	}
	last := edits[len(edits)-1]
	if !containsAll(last, "complete") {
		t.Fatalf("expected completion text last, got %q", last)
	}
	for i := 1; i < len(edits); i++ {
		if edits[i] == edits[i-1] {
			t.Fatalf("identical consecutive edits should be skipped: %q", edits[i])
		}
	}
}

func TestNotifierCloseIsIdempotent(t *testing.T) {
	n := progress.NewNotifier(context.Background(), nil, nil)
	n.Offer(progress.Sample{Transferred: 1})
	n.Close()
	n.Close()
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
