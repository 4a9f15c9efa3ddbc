package service

import (
	"context"
	"fmt"

	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Janitor periodically removes fired, skipped and cancelled jobs older than
// the retention window.
type Janitor struct {
	dm   contract.DataManager
	log  zerolog.Logger
	opts Options
	cron *cron.Cron
}

func newJanitor(dm contract.DataManager, log zerolog.Logger, opts Options) *Janitor {
	return &Janitor{
		dm:   dm,
		log:  log.With().Str("comp", "janitor").Logger(),
		opts: opts,
		cron: cron.New(cron.WithLocation(opts.Location)),
	}
}

func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.opts.PurgeCron, func() {
		if _, err := j.Purge(context.Background()); err != nil {
			j.log.Error().Err(err).Msg("purge failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", j.opts.PurgeCron, err)
	}
	j.cron.Start()
	return nil
}

func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Purge deletes terminal jobs last updated before now minus the retention.
func (j *Janitor) Purge(ctx context.Context) (int, error) {
	before := j.opts.Now().Add(-j.opts.Retention)
	n, err := j.dm.Job().PurgeTerminal(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge terminal jobs: %w", err)
	}
	j.log.Info().Int("purged", n).Time("before", before).Msg("terminal jobs purged")
	return n, nil
}
