package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"hikari/internal/catalog"
	"hikari/internal/config"
	"hikari/internal/fileutil"
	"hikari/internal/hls"
	"hikari/internal/logging"
	"hikari/internal/notifications"
	"hikari/internal/progress"
	"hikari/internal/services"
	"hikari/internal/transport"
)

const subtitleFetchTimeout = 30 * time.Second

// Resolver turns an episode handle into stream references.
type Resolver interface {
	Resolve(ctx context.Context, handle string) (catalog.StreamInfo, error)
}

// Downloader fetches a segmented stream into a single local file.
type Downloader interface {
	Download(ctx context.Context, manifestURL, destPath string, sink progress.Sink) (*hls.Artifact, error)
}

// Pipeline executes delivery runs from resolution through subtitle
// delivery.
type Pipeline struct {
	cfg        *config.Config
	logger     *slog.Logger
	resolver   Resolver
	downloader Downloader
	router     transport.Router
	light      transport.Sender
	heavy      transport.Sender
	notifier   notifications.Service
	httpClient *http.Client
	extraSink  progress.Sink
}

// Option adjusts optional pipeline behavior.
type Option func(*Pipeline)

// WithProgressSink mirrors every transfer sample to sink in addition to
// the conversation status message. Samples arrive unthrottled.
func WithProgressSink(sink progress.Sink) Option {
	return func(p *Pipeline) {
		p.extraSink = sink
	}
}

// New wires a pipeline from its collaborators. A nil notifier silences
// chat output; a nil heavy sender reuses the light lane.
func New(cfg *config.Config, logger *slog.Logger, resolver Resolver, downloader Downloader, light, heavy transport.Sender, notifier notifications.Service, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewNop()
	}
	if heavy == nil {
		heavy = light
	}
	p := &Pipeline{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		resolver:   resolver,
		downloader: downloader,
		router:     transport.Router{Threshold: cfg.SizeThresholdBytes()},
		light:      light,
		heavy:      heavy,
		notifier:   notifier,
		httpClient: &http.Client{Timeout: subtitleFetchTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes one delivery and returns its terminal outcome. The status
// handle, when valid, receives progress edits during download and upload.
func (p *Pipeline) Run(ctx context.Context, req Request, status notifications.StatusHandle) Outcome {
	if err := req.Validate(); err != nil {
		p.logger.Error("rejected request", logging.Error(err))
		return Outcome{Kind: OutcomeFailed, Reason: "invalid request", Err: err}
	}

	label := req.Label()
	ctx = services.WithConversationID(ctx, req.ConversationID)
	ctx = services.WithEpisode(ctx, label)
	logger := logging.WithContext(ctx, p.logger)

	start := time.Now()
	outcome := p.run(ctx, logger, req, label, status)
	logger.Info("run finished",
		logging.String("outcome", string(outcome.Kind)),
		logging.Bool("video_sent", outcome.VideoSent),
		logging.Bool("subtitle_sent", outcome.SubtitleSent),
		logging.Duration("elapsed", time.Since(start)))
	return outcome
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, req Request, label string, status notifications.StatusHandle) Outcome {
	logger.Info("phase started", logging.String("phase", string(StateExtracting)))
	info, err := p.resolver.Resolve(ctx, req.EpisodeHandle)
	if err != nil {
		if canceled(ctx) {
			return canceledOutcome(logger)
		}
		if !errors.Is(err, services.ErrResolution) {
			err = services.Wrap(services.ErrResolution, string(StateExtracting), "resolve", "", err)
		}
		logger.Error("resolution failed", logging.Error(err))
		p.tryNotify(logger, "extraction failed", func() error {
			return p.notifier.NotifyExtractionFailed(ctx, req.ConversationID, label)
		})
		return Outcome{Kind: OutcomeFailed, Reason: "resolution failed", Err: err}
	}
	if strings.TrimSpace(info.ManifestURL) == "" {
		logger.Warn("no stream available")
		p.tryNotify(logger, "no stream", func() error {
			return p.notifier.NotifyNoStream(ctx, req.ConversationID, label)
		})
		err := services.Wrap(services.ErrNoStream, string(StateExtracting), "resolve", "catalog offered no stream", nil)
		return Outcome{Kind: OutcomeFailed, Reason: "no stream found", Err: err}
	}

	statusNotifier := progress.NewNotifier(ctx, func(ctx context.Context, text string) error {
		return p.notifier.EditStatus(ctx, status, text)
	}, logger)
	defer statusNotifier.Close()
	sink := progress.Throttle(statusNotifier.Offer, p.cfg.ProgressInterval())
	if p.extraSink != nil {
		sink = progress.Tee(sink, p.extraSink)
	}

	logger.Info("phase started", logging.String("phase", string(StateDownloading)))
	destPath := filepath.Join(p.cfg.Delivery.VideoDir, fileutil.ArtifactName(req.ConversationID, label, "mp4"))
	artifact, err := p.downloader.Download(ctx, info.ManifestURL, destPath, sink)
	if err != nil {
		if canceled(ctx) {
			return canceledOutcome(logger)
		}
		logger.Error("download failed", logging.Error(err))
		outcome := p.videoFailure(ctx, logger, req, label, info.ManifestURL, err, "download failed")
		p.deliverSubtitle(ctx, logger, req, label, info, &outcome)
		return outcome
	}
	defer fileutil.RemoveQuiet(artifact.Path)
	logger.Info("phase completed",
		logging.String("phase", string(StateDownloading)),
		logging.Int64("bytes", artifact.Size))

	lane := p.router.Select(artifact.Size)
	logger.Info("phase started",
		logging.String("phase", string(StateRouting)),
		logging.String("lane", string(lane)),
		logging.Int64("bytes", artifact.Size))
	p.tryNotify(logger, "upload starting", func() error {
		return p.notifier.NotifyUploadStarting(ctx, req.ConversationID, label, lane)
	})

	sender := p.light
	if lane == transport.LaneHeavy {
		sender = p.heavy
	}

	logger.Info("phase started", logging.String("phase", string(StateUploading)))
	err = sender.Send(ctx, transport.SendRequest{
		ConversationID: req.ConversationID,
		Path:           artifact.Path,
		FileName:       fileutil.VideoName(label),
		Caption:        notifications.VideoCaption(label),
		Size:           artifact.Size,
		Progress:       sink,
	})

	var outcome Outcome
	if err != nil {
		if canceled(ctx) {
			return canceledOutcome(logger)
		}
		logger.Error("upload failed", logging.String("lane", string(lane)), logging.Error(err))
		outcome = p.videoFailure(ctx, logger, req, label, info.ManifestURL, err, "upload failed")
	} else {
		logger.Info("phase completed",
			logging.String("phase", string(StateUploading)),
			logging.String("lane", string(lane)))
		outcome = Outcome{Kind: OutcomeDelivered, VideoSent: true}
	}

	p.deliverSubtitle(ctx, logger, req, label, info, &outcome)
	return outcome
}

// videoFailure reports a failed video delivery: download and upload
// failures still leave a playable manifest URL, so those fall back to a
// link message instead of a bare failure.
func (p *Pipeline) videoFailure(ctx context.Context, logger *slog.Logger, req Request, label, manifestURL string, cause error, reason string) Outcome {
	if services.FallbackEligible(cause) {
		p.tryNotify(logger, "link fallback", func() error {
			return p.notifier.NotifyLinkFallback(ctx, req.ConversationID, label, manifestURL)
		})
		return Outcome{Kind: OutcomeLinkFallback, Reason: reason, Err: cause}
	}
	p.tryNotify(logger, "delivery failed", func() error {
		return p.notifier.NotifyDeliveryFailed(ctx, req.ConversationID, label)
	})
	return Outcome{Kind: OutcomeFailed, Reason: reason, Err: cause}
}

// deliverSubtitle runs the subtitle leg whenever resolution produced a
// subtitle URL, regardless of how the video leg ended.
func (p *Pipeline) deliverSubtitle(ctx context.Context, logger *slog.Logger, req Request, label string, info catalog.StreamInfo, outcome *Outcome) {
	if canceled(ctx) {
		return
	}
	if strings.TrimSpace(info.SubtitleURL) == "" {
		p.tryNotify(logger, "no subtitle", func() error {
			return p.notifier.NotifyNoSubtitle(ctx, req.ConversationID, label)
		})
		return
	}

	logger.Info("phase started", logging.String("phase", string(StateDeliveringSubtitle)))
	subtitlePath := filepath.Join(p.cfg.Delivery.SubtitleDir, fileutil.ArtifactName(req.ConversationID, label, "vtt"))
	defer fileutil.RemoveQuiet(subtitlePath)

	size, err := p.fetchSubtitle(ctx, info.SubtitleURL, subtitlePath)
	if err != nil {
		logger.Warn("subtitle fetch failed", logging.Error(err))
		p.tryNotify(logger, "subtitle fetch failed", func() error {
			return p.notifier.NotifySubtitleFetchFailed(ctx, req.ConversationID, label)
		})
		return
	}
	p.tryNotify(logger, "subtitle ready", func() error {
		return p.notifier.NotifySubtitleReady(ctx, req.ConversationID, label)
	})

	err = p.light.Send(ctx, transport.SendRequest{
		ConversationID: req.ConversationID,
		Path:           subtitlePath,
		FileName:       fileutil.SubtitleName(label),
		Caption:        notifications.SubtitleCaption(label),
		Size:           size,
	})
	if err != nil {
		err = services.Wrap(services.ErrSubtitle, string(StateDeliveringSubtitle), "send", "", err)
		logger.Warn("subtitle send failed", logging.Error(err))
		p.tryNotify(logger, "subtitle send failed", func() error {
			return p.notifier.NotifySubtitleSendFailed(ctx, req.ConversationID, label)
		})
		return
	}

	outcome.SubtitleSent = true
	logger.Info("phase completed", logging.String("phase", string(StateDeliveringSubtitle)))
}

// tryNotify absorbs chat failures. A conversation that cannot be reached
// never fails a delivery.
func (p *Pipeline) tryNotify(logger *slog.Logger, operation string, send func() error) {
	if err := send(); err != nil {
		logger.Warn("notification failed",
			logging.String("operation", operation),
			logging.Error(err))
	}
}

func canceled(ctx context.Context) bool {
	return ctx.Err() != nil
}

func canceledOutcome(logger *slog.Logger) Outcome {
	logger.Info("run canceled")
	return Outcome{Kind: OutcomeFailed, Reason: "canceled", Err: context.Canceled}
}
