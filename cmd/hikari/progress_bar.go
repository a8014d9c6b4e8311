package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"hikari/internal/progress"
)

// newTransferBar renders transfer samples as a terminal progress bar. Each
// phase change starts a fresh bar. Segmented downloads may never learn
// their total size, in which case the bar stays in spinner mode and shows
// bytes moved.
func newTransferBar(w io.Writer) progress.Sink {
	var mu sync.Mutex
	var bar *progressbar.ProgressBar
	var phase progress.Phase

	return func(s progress.Sample) {
		mu.Lock()
		defer mu.Unlock()

		if bar == nil || phase != s.Phase {
			if bar != nil {
				_ = bar.Finish()
			}
			phase = s.Phase
			bar = newPhaseBar(w, s)
		}

		if s.HasTotal && s.Total > 0 {
			bar.ChangeMax64(s.Total)
		}
		_ = bar.Set64(s.Transferred)
		if s.Completed {
			_ = bar.Finish()
		}
	}
}

func newPhaseBar(w io.Writer, s progress.Sample) *progressbar.ProgressBar {
	total := int64(-1)
	if s.HasTotal && s.Total > 0 {
		total = s.Total
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(phaseDescription(s.Phase)),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
	)
}

func phaseDescription(phase progress.Phase) string {
	if phase == progress.PhaseUpload {
		return "uploading"
	}
	return "downloading"
}
