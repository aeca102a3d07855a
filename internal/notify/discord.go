package notify

import (
	"context"
	"net/http"
)

// DiscordSender delivers settlement alerts through a channel webhook.
// Discord answers 204 No Content on success.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender builds a sender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: sendTimeout},
	}
}

type discordMessage struct {
	Content string `json:"content"`
}

// Send posts one alert with the title rendered bold.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	return postJSON(ctx, d.client, "discord", d.webhookURL, discordMessage{
		Content: "**" + title + "**\n" + message,
	})
}

func (d *DiscordSender) Name() string { return "discord" }
