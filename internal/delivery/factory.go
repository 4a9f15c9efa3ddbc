package delivery

import (
	"fmt"

	"github.com/diegoclair/shift-notify-bot/internal/config"
	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

// FromConfig builds the configured transport wrapped in a Guard.
func FromConfig(cfg *config.Config, log zerolog.Logger) (contract.Delivery, error) {
	var transport contract.Delivery

	switch cfg.DeliveryDriver {
	case config.DriverSlack:
		transport = NewSlackBot(slack.New(cfg.SlackBotToken), cfg.SlackChannelID)
	case config.DriverWebhook:
		transport = NewWebhook(cfg.SlackWebhookURL)
	case config.DriverLog:
		transport = NewLog(log)
	default:
		return nil, fmt.Errorf("unknown delivery driver %q", cfg.DeliveryDriver)
	}

	return NewGuard(transport, log, GuardOptions{
		RatePerSec:          cfg.DeliveryRatePerSec,
		ConsecutiveFailures: cfg.BreakerFailures,
		OpenTimeout:         cfg.BreakerOpenTimeout,
	}), nil
}
