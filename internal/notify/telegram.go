package notify

import (
	"context"
	"net/http"
)

// TelegramSender delivers settlement alerts to a chat through the Bot API.
type TelegramSender struct {
	endpoint string
	chatID   string
	client   *http.Client
}

// NewTelegramSender builds a sender for the given bot token and chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		endpoint: "https://api.telegram.org/bot" + token + "/sendMessage",
		chatID:   chatID,
		client:   &http.Client{Timeout: sendTimeout},
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Send posts one alert as a Markdown message with a bold title line.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, t.client, "telegram", t.endpoint, telegramMessage{
		ChatID:    t.chatID,
		Text:      "*" + title + "*\n" + message,
		ParseMode: "Markdown",
	})
}

func (t *TelegramSender) Name() string { return "telegram" }
