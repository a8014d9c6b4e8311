package bot

import (
	"context"
	"fmt"

	"hikari/internal/catalog"
	"hikari/internal/logging"
	"hikari/internal/telegram"
)

const (
	greetingText = "👋 Hello! I can help you search for anime and deliver episodes as MP4 with English subtitles.\n\nUse /search <anime name> to begin."
	usageText    = "Please provide an anime name. Example: /search Naruto"
	refusalText  = "Sorry, this bot is only available to approved chats."
)

func (h *Handler) handleStart(ctx context.Context, conversationID int64) {
	h.send(ctx, conversationID, greetingText)
}

func (h *Handler) handleSearch(ctx context.Context, conversationID int64, query string) {
	if query == "" {
		h.send(ctx, conversationID, usageText)
		return
	}
	msg, err := h.messenger.SendMessage(ctx, conversationID, fmt.Sprintf("🔍 Searching for %q…", query))
	if err != nil {
		h.logger.Error("search placeholder failed", logging.Error(err))
		return
	}
	titles, err := h.catalog.Search(ctx, query)
	if err != nil {
		h.logger.Error("catalog search failed", logging.String("query", query), logging.Error(err))
		h.edit(ctx, conversationID, msg.MessageID, "❌ Search error; please try again later.")
		return
	}
	if len(titles) == 0 {
		h.edit(ctx, conversationID, msg.MessageID, fmt.Sprintf("No anime found matching %q.", query))
		return
	}
	if err := h.sessions.SaveSearchResults(ctx, conversationID, titles); err != nil {
		h.logger.Error("saving search results failed", logging.Error(err))
		h.edit(ctx, conversationID, msg.MessageID, "❌ Search error; please try again later.")
		return
	}
	if err := h.messenger.EditMessageKeyboard(ctx, conversationID, msg.MessageID, "Select the anime you want:", titleKeyboard(titles)); err != nil {
		h.logger.Warn("result keyboard edit failed", logging.Error(err))
	}
}

func titleKeyboard(titles []catalog.Title) telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(titles))
	for idx, title := range titles {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         catalog.DisplayName(title),
			CallbackData: fmt.Sprintf("anime:%d", idx),
		}})
	}
	return telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func episodeKeyboard(episodes []catalog.Episode) telegram.InlineKeyboardMarkup {
	rows := make([][]telegram.InlineKeyboardButton, 0, len(episodes)+1)
	for idx, episode := range episodes {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         "Episode " + episode.Label,
			CallbackData: fmt.Sprintf("ep:%d", idx),
		}})
	}
	rows = append(rows, []telegram.InlineKeyboardButton{{Text: "Download All", CallbackData: "ep:all"}})
	return telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}
