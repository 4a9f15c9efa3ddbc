package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Delivery drivers
const (
	DriverSlack   = "slack"
	DriverWebhook = "webhook"
	DriverLog     = "log"
)

type Config struct {
	Port         string `envconfig:"PORT" default:"3000" validate:"required,numeric"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:"./shifts.db" validate:"required"`
	Timezone     string `envconfig:"TIMEZONE" default:"UTC" validate:"required,timezone"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
	LogFormat    string `envconfig:"LOG_FORMAT" default:"console" validate:"oneof=console json"`

	DeliveryDriver     string `envconfig:"DELIVERY_DRIVER" default:"slack" validate:"oneof=slack webhook log"`
	SlackBotToken      string `envconfig:"SLACK_BOT_TOKEN" validate:"required_if=DeliveryDriver slack"`
	SlackChannelID     string `envconfig:"SLACK_CHANNEL_ID" validate:"required_if=DeliveryDriver slack"`
	SlackSigningSecret string `envconfig:"SLACK_SIGNING_SECRET"`
	SlackWebhookURL    string `envconfig:"SLACK_WEBHOOK_URL" validate:"required_if=DeliveryDriver webhook"`

	DeliveryTimeout         time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"10s" validate:"gt=0"`
	DeliveryRatePerSec      float64       `envconfig:"DELIVERY_RATE_PER_SEC" default:"1" validate:"gt=0"`
	MaxConcurrentDeliveries int64         `envconfig:"MAX_CONCURRENT_DELIVERIES" default:"4" validate:"gte=1"`
	MaxLateness             time.Duration `envconfig:"MAX_LATENESS" default:"6h" validate:"gte=0"`
	IdleWait                time.Duration `envconfig:"IDLE_WAIT" default:"1h" validate:"gt=0"`
	Retention               time.Duration `envconfig:"RETENTION" default:"168h" validate:"gt=0"`
	PurgeCron               string        `envconfig:"PURGE_CRON" default:"0 4 * * *" validate:"required"`
	BreakerFailures         uint32        `envconfig:"BREAKER_FAILURES" default:"5" validate:"gte=1"`
	BreakerOpenTimeout      time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"30s" validate:"gt=0"`
	ShutdownTimeout         time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s" validate:"gt=0"`
}

// Load reads .env (if present) and the environment into a validated Config.
func Load() (*Config, error) {
	// Missing .env is fine, the process environment still applies.
	_ = godotenv.Load()

	return load()
}

func load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Location returns the wall-clock zone shift times are expressed in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
