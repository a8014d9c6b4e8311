package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"hikari/internal/logging"
	"hikari/internal/notifications"
	"hikari/internal/pipeline"
	"hikari/internal/services"
)

// ErrNotRunning is returned when a request arrives before Start or after Stop.
var ErrNotRunning = errors.New("scheduler is not running")

// Runner executes a single episode delivery end to end.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, status notifications.StatusHandle) pipeline.Outcome
}

// Stats is a point-in-time view of scheduler activity.
type Stats struct {
	ActiveRuns    int64 `json:"active_runs"`
	ActiveBatches int64 `json:"active_batches"`
	Delivered     int64 `json:"delivered"`
	LinkFallbacks int64 `json:"link_fallbacks"`
	Failed        int64 `json:"failed"`
}

// Scheduler owns the worker lifecycle for episode deliveries. Each run gets
// its own cancellable context keyed by conversation and episode handle, so a
// resubmission can cancel the run it replaces.
type Scheduler struct {
	runner   Runner
	notifier notifications.Service
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	root    context.Context
	cancel  context.CancelFunc
	active  map[string]*runHandle
	wg      sync.WaitGroup

	activeRuns    atomic.Int64
	activeBatches atomic.Int64
	delivered     atomic.Int64
	fallbacks     atomic.Int64
	failed        atomic.Int64
}

type runHandle struct {
	cancel context.CancelFunc
}

// New builds a scheduler around the given runner. Nil notifier and logger
// fall back to noop implementations.
func New(runner Runner, notifier notifications.Service, logger *slog.Logger) *Scheduler {
	if notifier == nil {
		notifier = notifications.NewNop()
	}
	return &Scheduler{
		runner:   runner,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		active:   make(map[string]*runHandle),
	}
}

// Start makes the scheduler accept submissions. Worker contexts derive from
// ctx, so cancelling it tears down every active run.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	root, cancel := context.WithCancel(ctx)
	s.root = root
	s.cancel = cancel
	s.running = true
	s.logger.Info("scheduler started")
	return nil
}

// Stop cancels every active run and waits for the workers to drain.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// Running reports whether the scheduler accepts submissions.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Submit starts a delivery worker for one episode and returns immediately.
// Submitting a conversation+episode pair that is already in flight cancels
// the stale run before the new one begins.
func (s *Scheduler) Submit(req pipeline.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	root := s.root
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.runKeyed(root, req)
	}()
	return nil
}

// SubmitBatch starts one worker that delivers the given episodes strictly in
// order. Invalid entries are skipped; an all-invalid batch is rejected.
func (s *Scheduler) SubmitBatch(conversationID int64, reqs []pipeline.Request) error {
	runnable := make([]pipeline.Request, 0, len(reqs))
	for _, req := range reqs {
		if err := req.Validate(); err != nil {
			s.logger.Warn("skipping invalid batch entry", logging.Error(err))
			continue
		}
		runnable = append(runnable, req)
	}
	if len(runnable) == 0 {
		return services.Wrap(services.ErrValidation, "scheduler", "batch", "no runnable episodes", nil)
	}
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	root := s.root
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.runBatch(root, conversationID, runnable)
	}()
	return nil
}

// Stats returns delivery counters for the status surface.
func (s *Scheduler) Stats() Stats {
	return Stats{
		ActiveRuns:    s.activeRuns.Load(),
		ActiveBatches: s.activeBatches.Load(),
		Delivered:     s.delivered.Load(),
		LinkFallbacks: s.fallbacks.Load(),
		Failed:        s.failed.Load(),
	}
}

func (s *Scheduler) runBatch(ctx context.Context, conversationID int64, reqs []pipeline.Request) {
	s.activeBatches.Add(1)
	defer s.activeBatches.Add(-1)

	if err := s.notifier.NotifyBatchQueued(ctx, conversationID); err != nil {
		s.logger.Warn("batch notification failed", logging.Int64("conversation_id", conversationID), logging.Error(err))
	}
	for _, req := range reqs {
		if ctx.Err() != nil {
			return
		}
		s.runKeyed(ctx, req)
	}
}

// runKeyed registers the run under its conversation+episode key, cancelling
// any run already holding it, then executes to completion.
func (s *Scheduler) runKeyed(ctx context.Context, req pipeline.Request) {
	key := req.Key()
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	if prev, ok := s.active[key]; ok {
		prev.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	handle := &runHandle{cancel: cancel}
	s.active[key] = handle
	s.mu.Unlock()

	defer s.release(key, handle)
	s.runOne(runCtx, req)
}

func (s *Scheduler) runOne(ctx context.Context, req pipeline.Request) {
	s.activeRuns.Add(1)
	defer s.activeRuns.Add(-1)

	// Correlation id so every log line of this run can be grepped together.
	ctx = services.WithRequestID(ctx, uuid.NewString()[:8])
	status, err := s.notifier.NotifyQueued(ctx, req.ConversationID, req.Label())
	if err != nil {
		s.logger.Warn("queued notification failed", logging.String("episode", req.Label()), logging.Error(err))
	}
	s.record(s.execute(ctx, req, status))
}

// execute shields the scheduler from a panicking run. A recovered panic is
// reported to the user as a plain delivery failure.
func (s *Scheduler) execute(ctx context.Context, req pipeline.Request, status notifications.StatusHandle) (outcome pipeline.Outcome) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		s.logger.Error("delivery run panicked",
			logging.String("episode", req.Label()),
			logging.Int64("conversation_id", req.ConversationID),
			logging.Any("panic", r))
		if err := s.notifier.NotifyDeliveryFailed(ctx, req.ConversationID, req.Label()); err != nil {
			s.logger.Warn("delivery failure notification failed", logging.Error(err))
		}
		outcome = pipeline.Outcome{
			Kind:   pipeline.OutcomeFailed,
			Reason: "panic",
			Err:    fmt.Errorf("delivery run panic: %v", r),
		}
	}()
	return s.runner.Run(ctx, req, status)
}

func (s *Scheduler) record(outcome pipeline.Outcome) {
	switch outcome.Kind {
	case pipeline.OutcomeDelivered:
		s.delivered.Add(1)
	case pipeline.OutcomeLinkFallback:
		s.fallbacks.Add(1)
	default:
		s.failed.Add(1)
	}
}

func (s *Scheduler) release(key string, handle *runHandle) {
	handle.cancel()
	s.mu.Lock()
	if s.active[key] == handle {
		delete(s.active, key)
	}
	s.mu.Unlock()
}
