package bot

import (
	"context"
	"log/slog"
	"strings"

	"hikari/internal/catalog"
	"hikari/internal/config"
	"hikari/internal/logging"
	"hikari/internal/pipeline"
	"hikari/internal/session"
	"hikari/internal/telegram"
)

// Messenger is the slice of the Telegram client the handler sends through.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) (*telegram.Message, error)
	SendKeyboard(ctx context.Context, chatID int64, text string, markup telegram.InlineKeyboardMarkup) (*telegram.Message, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	EditMessageKeyboard(ctx context.Context, chatID int64, messageID int, text string, markup telegram.InlineKeyboardMarkup) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
}

// Catalog is the browse surface of the episode catalog.
type Catalog interface {
	Search(ctx context.Context, query string) ([]catalog.Title, error)
	Episodes(ctx context.Context, animeID string) ([]catalog.Episode, error)
}

// Sessions persists per-conversation browse state between updates.
type Sessions interface {
	SaveSearchResults(ctx context.Context, conversationID int64, titles []catalog.Title) error
	SaveEpisodes(ctx context.Context, conversationID int64, selectedTitle string, episodes []catalog.Episode) error
	Snapshot(ctx context.Context, conversationID int64) (*session.Snapshot, error)
}

// Submitter admits delivery work without blocking the update path.
type Submitter interface {
	Submit(req pipeline.Request) error
	SubmitBatch(conversationID int64, reqs []pipeline.Request) error
}

// Handler turns webhook updates into catalog lookups, keyboard edits, and
// scheduler submissions.
type Handler struct {
	cfg       *config.Config
	messenger Messenger
	catalog   Catalog
	sessions  Sessions
	submitter Submitter
	logger    *slog.Logger
}

// New builds the update handler.
func New(cfg *config.Config, messenger Messenger, cat Catalog, sessions Sessions, submitter Submitter, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		messenger: messenger,
		catalog:   cat,
		sessions:  sessions,
		submitter: submitter,
		logger:    logging.NewComponentLogger(logger, "bot"),
	}
}

// HandleUpdate dispatches one webhook update. It never reports an error to
// the webhook caller; failures are logged and answered in-chat instead.
func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg *telegram.Message) {
	conversationID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}
	if !h.cfg.ConversationAllowed(conversationID) {
		h.logger.Warn("refused conversation", logging.Int64("conversation_id", conversationID))
		h.send(ctx, conversationID, refusalText)
		return
	}
	command, args := splitCommand(text)
	switch command {
	case "/start", "/help":
		h.handleStart(ctx, conversationID)
	case "/search":
		h.handleSearch(ctx, conversationID, args)
	default:
		h.logger.Debug("ignoring unknown command", logging.String("command", command))
	}
}

// splitCommand separates the command word from its argument string and drops
// the @BotName suffix Telegram appends in group chats.
func splitCommand(text string) (command, args string) {
	command, args, _ = strings.Cut(text, " ")
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	return command, strings.TrimSpace(args)
}

func (h *Handler) send(ctx context.Context, conversationID int64, text string) {
	if _, err := h.messenger.SendMessage(ctx, conversationID, text); err != nil {
		h.logger.Warn("send failed", logging.Int64("conversation_id", conversationID), logging.Error(err))
	}
}

func (h *Handler) edit(ctx context.Context, conversationID int64, messageID int, text string) {
	if err := h.messenger.EditMessageText(ctx, conversationID, messageID, text); err != nil {
		h.logger.Warn("edit failed", logging.Int64("conversation_id", conversationID), logging.Error(err))
	}
}
