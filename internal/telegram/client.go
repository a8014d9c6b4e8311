package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the hosted Bot API endpoint.
	DefaultBaseURL = "https://api.telegram.org"

	defaultTimeout = 30 * time.Second
)

// Client is an HTTP client for one Bot API endpoint.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// Option configures optional client settings.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout overrides the default request timeout. Uploads on slow links
// need more headroom than chat methods.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// New creates a client for the given bot token. An empty baseURL targets
// the hosted Bot API.
func New(token, baseURL string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("bot token required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		token:      token,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetMe fetches the bot's own account, confirming the token works.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, "getMe", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SendMessage posts a plain text message to a conversation.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) (*Message, error) {
	return c.sendMessage(ctx, chatID, text, nil)
}

// SendKeyboard posts a message with an inline keyboard attached.
func (c *Client) SendKeyboard(ctx context.Context, chatID int64, text string, markup InlineKeyboardMarkup) (*Message, error) {
	return c.sendMessage(ctx, chatID, text, &markup)
}

func (c *Client) sendMessage(ctx context.Context, chatID int64, text string, markup *InlineKeyboardMarkup) (*Message, error) {
	payload := struct {
		ChatID      int64                 `json:"chat_id"`
		Text        string                `json:"text"`
		ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	}{ChatID: chatID, Text: text, ReplyMarkup: markup}

	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// EditMessageText replaces the text of a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error {
	return c.editMessage(ctx, chatID, messageID, text, nil)
}

// EditMessageKeyboard replaces both the text and the inline keyboard of a
// previously sent message.
func (c *Client) EditMessageKeyboard(ctx context.Context, chatID int64, messageID int, text string, markup InlineKeyboardMarkup) error {
	return c.editMessage(ctx, chatID, messageID, text, &markup)
}

func (c *Client) editMessage(ctx context.Context, chatID int64, messageID int, text string, markup *InlineKeyboardMarkup) error {
	payload := struct {
		ChatID      int64                 `json:"chat_id"`
		MessageID   int                   `json:"message_id"`
		Text        string                `json:"text"`
		ReplyMarkup *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
	}{ChatID: chatID, MessageID: messageID, Text: text, ReplyMarkup: markup}
	return c.call(ctx, "editMessageText", payload, nil)
}

// AnswerCallbackQuery acknowledges a button tap so the client stops
// showing its loading state.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackID string) error {
	payload := struct {
		CallbackQueryID string `json:"callback_query_id"`
	}{CallbackQueryID: callbackID}
	return c.call(ctx, "answerCallbackQuery", payload, nil)
}

// SetWebhook points the bot's update delivery at a public URL. The secret
// token, when set, is echoed back by Telegram on every webhook request.
func (c *Client) SetWebhook(ctx context.Context, publicURL, secretToken string) error {
	payload := struct {
		URL         string `json:"url"`
		SecretToken string `json:"secret_token,omitempty"`
	}{URL: publicURL, SecretToken: secretToken}
	return c.call(ctx, "setWebhook", payload, nil)
}

// call executes one JSON Bot API method. The bot token never appears in
// returned errors.
func (c *Client) call(ctx context.Context, method string, payload, out any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("telegram %s (latency=%v): %w", method, latency, ctx.Err())
		}
		return fmt.Errorf("telegram %s (latency=%v): %w", method, latency, scrubToken(err, c.token))
	}
	defer resp.Body.Close()

	return decodeResponse(resp, method, latency, out)
}

func (c *Client) endpoint(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

func decodeResponse(resp *http.Response, method string, latency time.Duration, out any) error {
	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram %s: decode response (status=%d latency=%v): %w", method, resp.StatusCode, latency, err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram %s: %s (code=%d latency=%v)", method, envelope.Description, envelope.ErrorCode, latency)
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("telegram %s: decode result: %w", method, err)
		}
	}
	return nil
}

// scrubToken removes the bot token from transport errors, which embed the
// full request URL.
func scrubToken(err error, token string) error {
	return errors.New(strings.ReplaceAll(err.Error(), token, "<token>"))
}
