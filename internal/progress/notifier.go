package progress

import (
	"context"
	"log/slog"
	"sync"

	"hikari/internal/logging"
)

// notifierBuffer bounds how many samples may queue between producer and
// consumer before intermediate samples are dropped.
const notifierBuffer = 8

// Editor applies rendered progress text to the user-visible status surface.
type Editor func(ctx context.Context, text string) error

// Notifier decouples transfer goroutines from chat edits: samples cross a
// bounded channel to a single consumer goroutine, so a slow messaging API can
// never stall a download or upload. Intermediate samples are dropped when the
// consumer lags; completion samples always land.
type Notifier struct {
	ch        chan Sample
	done      chan struct{}
	closeOnce sync.Once
}

// NewNotifier starts the consumer goroutine. Close must be called when the
// transfer finishes; it drains the channel and waits for the consumer.
func NewNotifier(ctx context.Context, editor Editor, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	n := &Notifier{
		ch:   make(chan Sample, notifierBuffer),
		done: make(chan struct{}),
	}
	go n.consume(ctx, editor, logger)
	return n
}

// Offer submits a sample. Safe to use as a Sink. Must not be called after Close.
func (n *Notifier) Offer(s Sample) {
	if s.Completed {
		select {
		case n.ch <- s:
		case <-n.done:
		}
		return
	}
	select {
	case n.ch <- s:
	default:
	}
}

// Close stops the consumer after the queued samples drain.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() { close(n.ch) })
	<-n.done
}

func (n *Notifier) consume(ctx context.Context, editor Editor, logger *slog.Logger) {
	defer close(n.done)
	var lastText string
	for sample := range n.ch {
		if ctx.Err() != nil {
			continue
		}
		text := Format(sample)
		if text == lastText {
			continue
		}
		lastText = text
		if editor == nil {
			continue
		}
		if err := editor(ctx, text); err != nil {
			logger.Debug("progress edit failed", logging.Error(err))
		}
	}
}
