package telegram

import (
	"context"

	"hikari/internal/services"
	"hikari/internal/transport"
)

// DocumentSender adapts a Client to the transport.Sender contract.
type DocumentSender struct {
	client *Client
	lane   transport.Lane
}

var _ transport.Sender = (*DocumentSender)(nil)

// NewLightSender wraps a client for standard Bot API uploads.
func NewLightSender(client *Client) *DocumentSender {
	return &DocumentSender{client: client, lane: transport.LaneLight}
}

// NewHeavySender wraps a client pointed at a self-hosted Bot API server,
// which accepts uploads beyond the hosted cap.
func NewHeavySender(client *Client) *DocumentSender {
	return &DocumentSender{client: client, lane: transport.LaneHeavy}
}

// Lane reports which delivery lane this sender serves.
func (s *DocumentSender) Lane() transport.Lane {
	return s.lane
}

// Send uploads one artifact. Failures carry the upload marker so the
// pipeline can offer the stream link instead.
func (s *DocumentSender) Send(ctx context.Context, req transport.SendRequest) error {
	_, err := s.client.SendDocument(ctx, Document{
		ChatID:   req.ConversationID,
		Path:     req.Path,
		FileName: req.FileName,
		Caption:  req.Caption,
		Progress: req.Progress,
	})
	if err != nil {
		return services.Wrap(services.ErrUpload, "upload", string(s.lane), "send document", err)
	}
	return nil
}
