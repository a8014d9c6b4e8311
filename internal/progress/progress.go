package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Phase identifies which transfer leg a sample belongs to.
type Phase string

const (
	PhaseDownload Phase = "download"
	PhaseUpload   Phase = "upload"
)

// Sample is one ephemeral progress observation. Totals are best effort:
// segmented streams may not expose a reliable size up front.
type Sample struct {
	Phase       Phase
	Transferred int64
	Total       int64
	Elapsed     time.Duration
	Speed       float64
	ETA         time.Duration
	HasTotal    bool
	HasETA      bool
	Completed   bool
}

// Percent returns completion in [0, 100], or 0 when the total is unknown.
func (s Sample) Percent() float64 {
	if !s.HasTotal || s.Total <= 0 {
		return 0
	}
	pct := float64(s.Transferred) / float64(s.Total) * 100
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// Sink consumes progress samples.
type Sink func(Sample)

// Throttle wraps sink so downstream consumers see at most one sample per
// minInterval. Completion samples always pass so the UI reaches a terminal
// visible state regardless of timing.
func Throttle(sink Sink, minInterval time.Duration) Sink {
	if sink == nil {
		return func(Sample) {}
	}
	if minInterval <= 0 {
		return sink
	}
	var mu sync.Mutex
	var last time.Time
	return func(s Sample) {
		mu.Lock()
		now := time.Now()
		if !s.Completed && !last.IsZero() && now.Sub(last) < minInterval {
			mu.Unlock()
			return
		}
		last = now
		mu.Unlock()
		sink(s)
	}
}

// Tee fans each sample out to every sink in order. Nil sinks are skipped.
func Tee(sinks ...Sink) Sink {
	return func(s Sample) {
		for _, sink := range sinks {
			if sink != nil {
				sink(s)
			}
		}
	}
}

// Format renders a sample as a human-readable status line. Pure function:
// identical samples produce identical text.
func Format(s Sample) string {
	icon, verb, done := "⬇️", "Downloading", "Download complete"
	if s.Phase == PhaseUpload {
		icon, verb, done = "📤", "Uploading", "Upload complete"
	}

	if s.Completed {
		return fmt.Sprintf("%s %s: %s in %s", icon, done, humanize.Bytes(uint64(s.Transferred)), formatDuration(s.Elapsed))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: ", icon, verb)
	if s.HasTotal && s.Total > 0 {
		fmt.Fprintf(&b, "%.1f%% of %s", s.Percent(), humanize.Bytes(uint64(s.Total)))
	} else {
		b.WriteString(humanize.Bytes(uint64(s.Transferred)))
	}
	if s.Speed > 0 {
		fmt.Fprintf(&b, " at %s/s", humanize.Bytes(uint64(s.Speed)))
	}
	if s.HasETA {
		fmt.Fprintf(&b, ", ETA %s", formatDuration(s.ETA))
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}

// Tracker converts raw byte counts into samples for one transfer leg.
type Tracker struct {
	mu    sync.Mutex
	phase Phase
	total int64
	start time.Time
}

// NewTracker starts timing a transfer. total may be 0 when unknown.
func NewTracker(phase Phase, total int64) *Tracker {
	return &Tracker{phase: phase, total: total, start: time.Now()}
}

// SetTotal updates the best-effort total estimate.
func (t *Tracker) SetTotal(total int64) {
	t.mu.Lock()
	t.total = total
	t.mu.Unlock()
}

// Sample produces an observation for the given transferred byte count.
func (t *Tracker) Sample(transferred int64) Sample {
	return t.sample(transferred, false)
}

// Complete produces the terminal observation for the transfer.
func (t *Tracker) Complete(transferred int64) Sample {
	return t.sample(transferred, true)
}

func (t *Tracker) sample(transferred int64, completed bool) Sample {
	t.mu.Lock()
	total := t.total
	t.mu.Unlock()

	elapsed := time.Since(t.start)
	s := Sample{
		Phase:       t.phase,
		Transferred: transferred,
		Elapsed:     elapsed,
		Completed:   completed,
	}
	if total > 0 {
		s.Total = total
		s.HasTotal = true
	}
	if secs := elapsed.Seconds(); secs > 0 {
		s.Speed = float64(transferred) / secs
	}
	if s.HasTotal && s.Speed > 0 && total > transferred {
		s.ETA = time.Duration(float64(total-transferred) / s.Speed * float64(time.Second))
		s.HasETA = true
	}
	if completed {
		s.Total = transferred
		s.HasTotal = true
		s.ETA = 0
		s.HasETA = false
	}
	return s
}
