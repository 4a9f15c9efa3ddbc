package contract

//go:generate go run go.uber.org/mock/mockgen -source=slack.go -destination=../../../mocks/slack.go -package=mocks

import (
	"context"

	"github.com/slack-go/slack"
)

// SlackClient defines the interface for Slack operations
// This allows mocking in tests while keeping the real implementation simple
type SlackClient interface {
	// PostMessageContext sends a message to a Slack channel and returns the channel and message timestamp
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)

	// DeleteMessageContext deletes a message previously posted by the bot
	DeleteMessageContext(ctx context.Context, channel, messageTimestamp string) (string, string, error)
}
