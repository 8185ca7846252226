package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/extruline/report-bot/internal/domain/flow"
)

const defaultAPIBase = "https://api.telegram.org"

// Client talks to the Telegram Bot API. It implements flow.Messenger;
// prompts render as HTML with a resize-enabled reply keyboard, matching
// what the operators' handsets expect.
type Client struct {
	http  *resty.Client
	token string
	log   zerolog.Logger
}

var _ flow.Messenger = (*Client)(nil)

// NewClient builds the Bot API client. apiBase is overridable for tests.
func NewClient(token, apiBase string, log zerolog.Logger) *Client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	http := resty.New().
		SetBaseURL(apiBase).
		SetTimeout(10 * time.Second).
		SetHeader("User-Agent", "shopfloor-report-bot/1.0")

	return &Client{
		http:  http,
		token: token,
		log:   log.With().Str("component", "telegram").Logger(),
	}
}

// Send delivers one prompt to a chat. Best effort: the caller logs the
// returned error and moves on.
func (c *Client) Send(ctx context.Context, chatID int64, p flow.Prompt) error {
	req := sendMessageRequest{
		ChatID:    chatID,
		Text:      p.Text,
		ParseMode: "HTML",
	}
	if len(p.Buttons) > 0 {
		req.ReplyMarkup = keyboard(p.Buttons)
	}

	var out apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/bot%s/sendMessage", c.token))
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if resp.IsError() || !out.OK {
		return fmt.Errorf("send message: telegram error %d: %s", out.ErrorCode, out.Description)
	}
	return nil
}

func keyboard(rows [][]string) *ReplyKeyboardMarkup {
	kb := &ReplyKeyboardMarkup{ResizeKeyboard: true}
	for _, row := range rows {
		buttons := make([]KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, KeyboardButton{Text: label})
		}
		kb.Keyboard = append(kb.Keyboard, buttons)
	}
	return kb
}
