package delivery

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Log is a dry-run transport that only writes what it would deliver.
type Log struct {
	log zerolog.Logger
}

func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log.With().Str("comp", "delivery").Str("driver", "log").Logger()}
}

func (d *Log) Send(_ context.Context, content string) (string, error) {
	id := "log-" + uuid.NewString()
	d.log.Info().Str("message_id", id).Str("content", content).Msg("send")
	return id, nil
}

func (d *Log) Remove(_ context.Context, messageID string) error {
	d.log.Info().Str("message_id", messageID).Msg("remove")
	return nil
}

func (d *Log) CanRemove() bool {
	return true
}
