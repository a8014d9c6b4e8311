package transport

import (
	"context"

	"hikari/internal/progress"
)

// Lane identifies which upload path an artifact takes.
type Lane string

const (
	// LaneLight is the standard Bot API upload, bound by its 50 MiB cap.
	LaneLight Lane = "light"
	// LaneHeavy is the self-hosted Bot API upload for larger artifacts.
	LaneHeavy Lane = "heavy"
)

// Router decides the lane for an artifact size. Threshold is the largest
// size in bytes that still rides the light lane.
type Router struct {
	Threshold int64
}

// Select returns the lane for an artifact of the given size. A size equal
// to the threshold stays on the light lane.
func (r Router) Select(sizeBytes int64) Lane {
	if sizeBytes <= r.Threshold {
		return LaneLight
	}
	return LaneHeavy
}

// SendRequest describes one artifact upload.
type SendRequest struct {
	ConversationID int64
	Path           string
	FileName       string
	Caption        string
	Size           int64
	Progress       progress.Sink
}

// Sender uploads one artifact to a conversation. Implementations stream
// the file from disk and feed transfer samples to req.Progress when set.
type Sender interface {
	Send(ctx context.Context, req SendRequest) error
	Lane() Lane
}
