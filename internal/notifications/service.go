package notifications

import (
	"context"
	"fmt"

	"hikari/internal/services"
	"hikari/internal/telegram"
	"hikari/internal/transport"
)

// StatusHandle identifies the editable status message for one delivery.
type StatusHandle struct {
	ConversationID int64
	MessageID      int
}

// Valid reports whether the handle points at a real message.
func (h StatusHandle) Valid() bool {
	return h.MessageID != 0
}

// Service defines the messaging surface exposed to the delivery flow.
type Service interface {
	NotifyQueued(ctx context.Context, conversationID int64, episodeLabel string) (StatusHandle, error)
	NotifyBatchQueued(ctx context.Context, conversationID int64) error
	NotifyExtractionFailed(ctx context.Context, conversationID int64, episodeLabel string) error
	NotifyNoStream(ctx context.Context, conversationID int64, episodeLabel string) error
	NotifyUploadStarting(ctx context.Context, conversationID int64, episodeLabel string, lane transport.Lane) error
	NotifyLinkFallback(ctx context.Context, conversationID int64, episodeLabel, streamURL string) error
	NotifyDeliveryFailed(ctx context.Context, conversationID int64, episodeLabel string) error
	NotifySubtitleReady(ctx context.Context, conversationID int64, episodeLabel string) error
	NotifyNoSubtitle(ctx context.Context, conversationID int64, episodeLabel string) error
	NotifySubtitleFetchFailed(ctx context.Context, conversationID int64, episodeLabel string) error
	NotifySubtitleSendFailed(ctx context.Context, conversationID int64, episodeLabel string) error
	EditStatus(ctx context.Context, handle StatusHandle, text string) error
}

// VideoCaption is the caption attached to a delivered episode file.
func VideoCaption(episodeLabel string) string {
	return fmt.Sprintf("Episode %s", episodeLabel)
}

// SubtitleCaption is the caption attached to a delivered subtitle file.
func SubtitleCaption(episodeLabel string) string {
	return fmt.Sprintf("Here is the subtitle for Episode %s.", episodeLabel)
}

// NewService builds a chat-backed notification service. A nil client
// yields a noop implementation.
func NewService(client *telegram.Client, thresholdMiB int) Service {
	if client == nil {
		return noopService{}
	}
	if thresholdMiB <= 0 {
		thresholdMiB = 50
	}
	return &chatService{client: client, thresholdMiB: thresholdMiB}
}

// NewNop returns a notification service that does nothing.
func NewNop() Service {
	return noopService{}
}

type chatService struct {
	client       *telegram.Client
	thresholdMiB int
}

func (s *chatService) NotifyQueued(ctx context.Context, conversationID int64, episodeLabel string) (StatusHandle, error) {
	text := fmt.Sprintf("⏳ Episode %s queued for download… You will receive it shortly.", episodeLabel)
	msg, err := s.client.SendMessage(ctx, conversationID, text)
	if err != nil {
		return StatusHandle{}, services.Wrap(services.ErrNotify, "notify", "queued", "", err)
	}
	return StatusHandle{ConversationID: conversationID, MessageID: msg.MessageID}, nil
}

func (s *chatService) NotifyBatchQueued(ctx context.Context, conversationID int64) error {
	return s.send(ctx, conversationID, "batch queued",
		"⏳ Queued all episodes for download… You will receive them one by one.")
}

func (s *chatService) NotifyExtractionFailed(ctx context.Context, conversationID int64, episodeLabel string) error {
	return s.send(ctx, conversationID, "extraction failed",
		fmt.Sprintf("❌ Failed to extract data for Episode %s.", episodeLabel))
}

func (s *chatService) NotifyNoStream(ctx context.Context, conversationID int64, episodeLabel string) error {
	return s.send(ctx, conversationID, "no stream",
		fmt.Sprintf("😔 Could not find a subtitled HD stream for Episode %s.", episodeLabel))
}

func (s *chatService) NotifyUploadStarting(ctx context.Context, conversationID int64, episodeLabel string, lane transport.Lane) error {
	var text string
	if lane == transport.LaneHeavy {
		text = fmt.Sprintf("📦 Episode %s is >%d MB. Sending full quality via the large-file uploader…", episodeLabel, s.thresholdMiB)
	} else {
		text = fmt.Sprintf("✅ Episode %s is ready (≤%d MB). Sending via Bot API…", episodeLabel, s.thresholdMiB)
	}
	return s.send(ctx, conversationID, "upload starting", text)
}

func (s *chatService) NotifyLinkFallback(ctx context.Context, conversationID int64, episodeLabel, streamURL string) error {
	return s.send(ctx, conversationID, "link fallback",
		fmt.Sprintf("⚠️ Could not deliver Episode %s. Here's the HLS link instead:\n\n%s", episodeLabel, streamURL))
}

func (s *chatService) NotifyDeliveryFailed(ctx context.Context, conversationID int64, episodeLabel string) error {
	return s.send(ctx, conversationID, "delivery failed",
		fmt.Sprintf("❌ Failed to deliver Episode %s.", episodeLabel))
}

func (s *chatService) NotifySubtitleReady(ctx context.Context, conversationID int64, episodeLabel string) error {
	return s.send(ctx, conversationID, "subtitle ready",
		fmt.Sprintf("✅ Subtitle downloaded as “Episode %s.vtt”.", episodeLabel))
}

func (s *chatService) NotifyNoSubtitle(ctx context.Context, conversationID int64, episodeLabel string) error {
	return s.send(ctx, conversationID, "no subtitle",
		fmt.Sprintf("❗ No English subtitle (.vtt) found for Episode %s.", episodeLabel))
}

func (s *chatService) NotifySubtitleFetchFailed(ctx context.Context, conversationID int64, episodeLabel string) error {
	return s.send(ctx, conversationID, "subtitle fetch failed",
		fmt.Sprintf("⚠️ Found a subtitle URL, but failed to download it for Episode %s.", episodeLabel))
}

func (s *chatService) NotifySubtitleSendFailed(ctx context.Context, conversationID int64, episodeLabel string) error {
	return s.send(ctx, conversationID, "subtitle send failed",
		fmt.Sprintf("⚠️ Could not send subtitle for Episode %s.", episodeLabel))
}

func (s *chatService) EditStatus(ctx context.Context, handle StatusHandle, text string) error {
	if !handle.Valid() {
		return nil
	}
	if err := s.client.EditMessageText(ctx, handle.ConversationID, handle.MessageID, text); err != nil {
		return services.Wrap(services.ErrNotify, "notify", "edit status", "", err)
	}
	return nil
}

func (s *chatService) send(ctx context.Context, conversationID int64, operation, text string) error {
	if _, err := s.client.SendMessage(ctx, conversationID, text); err != nil {
		return services.Wrap(services.ErrNotify, "notify", operation, "", err)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyQueued(context.Context, int64, string) (StatusHandle, error) {
	return StatusHandle{}, nil
}

func (noopService) NotifyBatchQueued(context.Context, int64) error              { return nil }
func (noopService) NotifyExtractionFailed(context.Context, int64, string) error { return nil }
func (noopService) NotifyNoStream(context.Context, int64, string) error         { return nil }

func (noopService) NotifyUploadStarting(context.Context, int64, string, transport.Lane) error {
	return nil
}

func (noopService) NotifyLinkFallback(context.Context, int64, string, string) error { return nil }
func (noopService) NotifyDeliveryFailed(context.Context, int64, string) error       { return nil }
func (noopService) NotifySubtitleReady(context.Context, int64, string) error        { return nil }
func (noopService) NotifyNoSubtitle(context.Context, int64, string) error           { return nil }
func (noopService) NotifySubtitleFetchFailed(context.Context, int64, string) error  { return nil }
func (noopService) NotifySubtitleSendFailed(context.Context, int64, string) error   { return nil }
func (noopService) EditStatus(context.Context, StatusHandle, string) error          { return nil }
