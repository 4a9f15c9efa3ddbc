package service

import (
	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
	"github.com/rs/zerolog"
)

type Instance struct {
	Shift     *shiftService
	Scheduler *Scheduler
	Janitor   *Janitor
}

func NewInstance(dm contract.DataManager, delivery contract.Delivery, log zerolog.Logger, opts Options) *Instance {
	opts = opts.withDefaults()

	scheduler := newScheduler(dm, delivery, log, opts)

	return &Instance{
		Shift:     newShift(dm, delivery, scheduler, log, opts),
		Scheduler: scheduler,
		Janitor:   newJanitor(dm, log, opts),
	}
}
