package hls

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"hikari/internal/fileutil"
	"hikari/internal/logging"
	"hikari/internal/progress"
	"hikari/internal/services"
)

const (
	defaultRetries = 3
	defaultBackoff = 2 * time.Second
)

// Artifact is the assembled episode file left on disk after a successful
// download. Callers own its removal.
type Artifact struct {
	Path string
	Size int64
}

// Downloader fetches segmented streams into single local files.
type Downloader struct {
	httpClient *http.Client
	retries    int
	backoff    time.Duration
	logger     *slog.Logger
}

// Option configures optional downloader settings.
type Option func(*Downloader)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(d *Downloader) {
		if h != nil {
			d.httpClient = h
		}
	}
}

// WithRetries sets how many times a failed segment fetch is retried.
func WithRetries(n int) Option {
	return func(d *Downloader) {
		if n >= 0 {
			d.retries = n
		}
	}
}

// WithBackoff sets the fixed delay between segment retry attempts.
func WithBackoff(delay time.Duration) Option {
	return func(d *Downloader) {
		if delay >= 0 {
			d.backoff = delay
		}
	}
}

// New creates a downloader. A nil logger silences it.
func New(logger *slog.Logger, opts ...Option) *Downloader {
	if logger == nil {
		logger = logging.NewNop()
	}
	d := &Downloader{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		retries:    defaultRetries,
		backoff:    defaultBackoff,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches every segment referenced by manifestURL, in manifest
// order, appending into destPath. After each segment the sink receives a
// sample whose total is the running average segment size times the segment
// count. The partial file is removed on any failure, including cancellation.
func (d *Downloader) Download(ctx context.Context, manifestURL, destPath string, sink progress.Sink) (*Artifact, error) {
	if sink == nil {
		sink = func(progress.Sample) {}
	}

	segments, err := d.fetchSegments(ctx, manifestURL)
	if err != nil {
		return nil, err
	}
	d.logger.Info("manifest resolved",
		logging.Int("segments", len(segments)),
		logging.Bool("encrypted", segments[0].keyURI != ""))

	if err := fileutil.EnsureParent(destPath); err != nil {
		return nil, services.Wrap(services.ErrDownload, "download", "assemble", "create destination directory", err)
	}
	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "download", "assemble", "open destination", err)
	}

	fail := func(wrapped error) (*Artifact, error) {
		out.Close()
		fileutil.RemoveQuiet(destPath)
		return nil, wrapped
	}

	keys := make(map[string][]byte)
	tracker := progress.NewTracker(progress.PhaseDownload, 0)
	var transferred int64

	for i, seg := range segments {
		data, err := d.fetchSegment(ctx, seg, keys)
		if err != nil {
			return fail(err)
		}
		if _, err := out.Write(data); err != nil {
			return fail(services.Wrap(services.ErrDownload, "download", "assemble", "write segment", err))
		}

		transferred += int64(len(data))
		done := int64(i + 1)
		tracker.SetTotal(transferred / done * int64(len(segments)))
		sink(tracker.Sample(transferred))
	}

	if err := out.Close(); err != nil {
		fileutil.RemoveQuiet(destPath)
		return nil, services.Wrap(services.ErrDownload, "download", "assemble", "close destination", err)
	}
	sink(tracker.Complete(transferred))
	d.logger.Info("download complete",
		logging.String("path", destPath),
		logging.Int64("bytes", transferred))
	return &Artifact{Path: destPath, Size: transferred}, nil
}

// fetchSegment downloads and, when keyed, decrypts one segment.
func (d *Downloader) fetchSegment(ctx context.Context, seg segment, keys map[string][]byte) ([]byte, error) {
	data, err := d.fetchBytes(ctx, seg.url)
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "download", "segment", seg.url, err)
	}
	if seg.keyURI == "" {
		return data, nil
	}

	key, ok := keys[seg.keyURI]
	if !ok {
		key, err = d.fetchBytes(ctx, seg.keyURI)
		if err != nil {
			return nil, services.Wrap(services.ErrDownload, "download", "segment", "fetch decryption key", err)
		}
		keys[seg.keyURI] = key
	}

	iv, err := segmentIV(seg.ivHex, seg.seqID)
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "download", "segment", "derive iv", err)
	}
	plain, err := decryptAES128(data, key, iv)
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, "download", "segment", "decrypt", err)
	}
	return plain, nil
}

// fetchBytes retrieves a URL with bounded retries and fixed backoff.
// Cancellation aborts immediately without burning the remaining attempts.
func (d *Downloader) fetchBytes(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= d.retries; attempt++ {
		if attempt > 0 {
			d.logger.Debug("retrying fetch",
				logging.String("url", rawURL),
				logging.Int("attempt", attempt))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d.backoff):
			}
		}

		data, err := d.fetchOnce(ctx, rawURL)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, fmt.Errorf("after %d attempts: %w", d.retries+1, lastErr)
}

func (d *Downloader) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}
