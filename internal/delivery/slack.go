package delivery

import (
	"context"
	"fmt"

	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
	"github.com/slack-go/slack"
)

// SlackBot posts notifications to one channel with a bot token. The message
// timestamp Slack returns is the message id.
type SlackBot struct {
	client    contract.SlackClient
	channelID string
}

func NewSlackBot(client contract.SlackClient, channelID string) *SlackBot {
	return &SlackBot{client: client, channelID: channelID}
}

func (d *SlackBot) Send(ctx context.Context, content string) (string, error) {
	_, ts, err := d.client.PostMessageContext(ctx, d.channelID,
		slack.MsgOptionText(content, false),
		slack.MsgOptionAsUser(false),
	)
	if err != nil {
		return "", fmt.Errorf("failed to send Slack message: %w", err)
	}
	return ts, nil
}

func (d *SlackBot) Remove(ctx context.Context, messageID string) error {
	if _, _, err := d.client.DeleteMessageContext(ctx, d.channelID, messageID); err != nil {
		return fmt.Errorf("failed to delete Slack message %s: %w", messageID, err)
	}
	return nil
}

func (d *SlackBot) CanRemove() bool {
	return true
}
