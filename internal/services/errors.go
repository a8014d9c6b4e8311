package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrResolution marks failures turning an episode handle into a stream reference.
	ErrResolution = errors.New("resolution error")
	// ErrNoStream marks successful resolution that yielded no usable stream.
	ErrNoStream = errors.New("no stream found")
	// ErrDownload marks segment fetch or merge failures after retries.
	ErrDownload = errors.New("download error")
	// ErrUpload marks transport rejections and connection failures.
	ErrUpload = errors.New("upload error")
	// ErrSubtitle marks subtitle fetch or send failures. Never affects the video outcome.
	ErrSubtitle = errors.New("subtitle error")
	// ErrNotify marks chat notification failures. Logged, never escalated.
	ErrNotify = errors.New("notify error")
	// ErrValidation marks malformed input from updates or callbacks.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration discovered at runtime.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes phase context while tagging it with
// the provided marker for later outcome classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, phase, operation, message string, err error) error {
	detail := buildDetail(phase, operation, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FallbackEligible reports whether a pipeline error routes to the link-only
// fallback branch. Only download and upload failures leave a usable manifest
// URL to hand the user; resolution failures have nothing to offer.
func FallbackEligible(err error) bool {
	return errors.Is(err, ErrDownload) || errors.Is(err, ErrUpload)
}

func buildDetail(phase, operation, message string) string {
	parts := make([]string, 0, 3)
	if phase = strings.TrimSpace(phase); phase != "" {
		parts = append(parts, phase)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
