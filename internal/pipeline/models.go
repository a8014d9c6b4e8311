package pipeline

import (
	"fmt"
	"strings"

	"hikari/internal/services"
)

// State names one phase of a delivery run.
type State string

const (
	StateExtracting         State = "extracting"
	StateDownloading        State = "downloading"
	StateRouting            State = "routing"
	StateUploading          State = "uploading"
	StateDeliveringSubtitle State = "delivering_subtitle"
)

// Request identifies one episode delivery for one conversation.
type Request struct {
	ConversationID int64
	EpisodeHandle  string
	EpisodeLabel   string
}

// Key identifies the request for supersession: a new submission for the
// same conversation and episode cancels the one in flight.
func (r Request) Key() string {
	return fmt.Sprintf("%d:%s", r.ConversationID, r.EpisodeHandle)
}

// Validate rejects requests that cannot be acted on.
func (r Request) Validate() error {
	if r.ConversationID == 0 {
		return services.Wrap(services.ErrValidation, "admission", "request", "conversation id required", nil)
	}
	if strings.TrimSpace(r.EpisodeHandle) == "" {
		return services.Wrap(services.ErrValidation, "admission", "request", "episode handle required", nil)
	}
	return nil
}

// Label returns the user-facing episode label, falling back to the handle.
func (r Request) Label() string {
	if label := strings.TrimSpace(r.EpisodeLabel); label != "" {
		return label
	}
	return r.EpisodeHandle
}

// OutcomeKind tags the terminal result of a run.
type OutcomeKind string

const (
	OutcomeDelivered    OutcomeKind = "delivered"
	OutcomeLinkFallback OutcomeKind = "link_fallback"
	OutcomeFailed       OutcomeKind = "failed"
)

// Outcome is the terminal report of one delivery run, produced exactly
// once per run.
type Outcome struct {
	Kind         OutcomeKind
	VideoSent    bool
	SubtitleSent bool
	Reason       string
	Err          error
}

// Delivered reports whether the episode file reached the conversation.
func (o Outcome) Delivered() bool {
	return o.Kind == OutcomeDelivered
}
