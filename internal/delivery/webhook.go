package delivery

import (
	"context"
	"fmt"

	"github.com/diegoclair/shift-notify-bot/internal/domain"
	"github.com/slack-go/slack"
)

type webhookPoster func(ctx context.Context, url string, msg *slack.WebhookMessage) error

// Webhook posts to a Slack incoming webhook. Incoming webhooks return no
// message id, so sent messages cannot be deleted.
type Webhook struct {
	url  string
	post webhookPoster
}

func NewWebhook(url string) *Webhook {
	return &Webhook{url: url, post: slack.PostWebhookContext}
}

func (d *Webhook) Send(ctx context.Context, content string) (string, error) {
	if err := d.post(ctx, d.url, &slack.WebhookMessage{Text: content}); err != nil {
		return "", fmt.Errorf("failed to post webhook message: %w", err)
	}
	return "", nil
}

func (d *Webhook) Remove(context.Context, string) error {
	return domain.ErrDeliveryNotSupported
}

func (d *Webhook) CanRemove() bool {
	return false
}
