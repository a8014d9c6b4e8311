package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"hikari/internal/catalog"
	"hikari/internal/logging"
	"hikari/internal/pipeline"
	"hikari/internal/session"
	"hikari/internal/telegram"
)

const queueFailedText = "❌ Could not queue the download; please try again later."

func (h *Handler) handleCallback(ctx context.Context, query *telegram.CallbackQuery) {
	// Acknowledge immediately so the client stops its spinner, whatever
	// happens afterwards.
	if err := h.messenger.AnswerCallbackQuery(ctx, query.ID); err != nil {
		h.logger.Warn("callback ack failed", logging.Error(err))
	}
	if query.Message == nil {
		return
	}
	conversationID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	if !h.cfg.ConversationAllowed(conversationID) {
		h.logger.Warn("refused conversation", logging.Int64("conversation_id", conversationID))
		return
	}
	kind, arg, _ := strings.Cut(query.Data, ":")
	switch kind {
	case "anime":
		h.handleTitleSelection(ctx, conversationID, messageID, arg)
	case "ep":
		if arg == "all" {
			h.handleBatchSelection(ctx, conversationID, messageID)
			return
		}
		h.handleEpisodeSelection(ctx, conversationID, messageID, arg)
	default:
		h.logger.Warn("unknown callback", logging.String("data", query.Data))
	}
}

func (h *Handler) handleTitleSelection(ctx context.Context, conversationID int64, messageID int, arg string) {
	idx, err := strconv.Atoi(arg)
	if err != nil {
		h.edit(ctx, conversationID, messageID, "❌ Internal error: invalid anime selection.")
		return
	}
	snapshot := h.snapshot(ctx, conversationID)
	if snapshot == nil || idx < 0 || idx >= len(snapshot.Titles) {
		h.edit(ctx, conversationID, messageID, "❌ Internal error: anime index out of range.")
		return
	}
	title := snapshot.Titles[idx]
	name := catalog.DisplayName(title)
	h.edit(ctx, conversationID, messageID, fmt.Sprintf("🔍 Fetching episodes for %s…", name))

	episodes, err := h.catalog.Episodes(ctx, title.ID)
	if err != nil {
		h.logger.Error("episode fetch failed", logging.String("anime_id", title.ID), logging.Error(err))
		h.edit(ctx, conversationID, messageID, "❌ Failed to retrieve episodes for that anime.")
		return
	}
	if len(episodes) == 0 {
		h.edit(ctx, conversationID, messageID, "No episodes found for that anime.")
		return
	}
	if err := h.sessions.SaveEpisodes(ctx, conversationID, name, episodes); err != nil {
		h.logger.Error("saving episodes failed", logging.Error(err))
		h.edit(ctx, conversationID, messageID, "❌ Failed to retrieve episodes for that anime.")
		return
	}
	if err := h.messenger.EditMessageKeyboard(ctx, conversationID, messageID, "Select an episode (or Download All):", episodeKeyboard(episodes)); err != nil {
		h.logger.Warn("episode keyboard edit failed", logging.Error(err))
	}
}

// handleEpisodeSelection admits one episode. The keyboard stays in place so
// further picks remain possible; the scheduler's queued message is the
// visible acknowledgement.
func (h *Handler) handleEpisodeSelection(ctx context.Context, conversationID int64, messageID int, arg string) {
	idx, err := strconv.Atoi(arg)
	if err != nil {
		h.edit(ctx, conversationID, messageID, "❌ Invalid episode selection.")
		return
	}
	snapshot := h.snapshot(ctx, conversationID)
	if snapshot == nil || idx < 0 || idx >= len(snapshot.Episodes) {
		h.edit(ctx, conversationID, messageID, "❌ Episode index out of range.")
		return
	}
	episode := snapshot.Episodes[idx]
	req := pipeline.Request{
		ConversationID: conversationID,
		EpisodeHandle:  episode.Handle,
		EpisodeLabel:   episode.Label,
	}
	if err := h.submitter.Submit(req); err != nil {
		h.logger.Error("episode submit failed", logging.String("episode", episode.Label), logging.Error(err))
		h.edit(ctx, conversationID, messageID, queueFailedText)
	}
}

func (h *Handler) handleBatchSelection(ctx context.Context, conversationID int64, messageID int) {
	snapshot := h.snapshot(ctx, conversationID)
	if snapshot == nil || len(snapshot.Episodes) == 0 {
		h.edit(ctx, conversationID, messageID, "❌ No episodes available to download.")
		return
	}
	reqs := make([]pipeline.Request, 0, len(snapshot.Episodes))
	for _, episode := range snapshot.Episodes {
		reqs = append(reqs, pipeline.Request{
			ConversationID: conversationID,
			EpisodeHandle:  episode.Handle,
			EpisodeLabel:   episode.Label,
		})
	}
	if err := h.submitter.SubmitBatch(conversationID, reqs); err != nil {
		h.logger.Error("batch submit failed", logging.Error(err))
		h.edit(ctx, conversationID, messageID, queueFailedText)
	}
}

// snapshot loads the conversation state, treating a missing session the same
// as an empty one. Stale taps after eviction land on the range checks.
func (h *Handler) snapshot(ctx context.Context, conversationID int64) *session.Snapshot {
	snapshot, err := h.sessions.Snapshot(ctx, conversationID)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			h.logger.Error("session snapshot failed", logging.Int64("conversation_id", conversationID), logging.Error(err))
		}
		return nil
	}
	return snapshot
}
