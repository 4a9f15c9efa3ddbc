package service

import "time"

// Options configures the services built by NewInstance.
type Options struct {
	// Location is the wall-clock zone shift times are expressed in.
	Location *time.Location

	DeliveryTimeout         time.Duration
	MaxConcurrentDeliveries int64
	// MaxLateness is how late a due job may still fire. Zero disables the check.
	MaxLateness time.Duration
	// IdleWait is how long the scheduler sleeps when nothing is pending.
	IdleWait time.Duration

	Retention time.Duration
	PurgeCron string

	// Now overrides the clock, for tests.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.DeliveryTimeout <= 0 {
		o.DeliveryTimeout = 10 * time.Second
	}
	if o.MaxConcurrentDeliveries <= 0 {
		o.MaxConcurrentDeliveries = 4
	}
	if o.IdleWait <= 0 {
		o.IdleWait = time.Hour
	}
	if o.Retention <= 0 {
		o.Retention = 7 * 24 * time.Hour
	}
	if o.PurgeCron == "" {
		o.PurgeCron = "0 4 * * *"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
