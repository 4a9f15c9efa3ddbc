package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// errorBackoff is how long the loop waits after a failed store read.
const errorBackoff = 5 * time.Second

// Scheduler fires due jobs through the delivery transport. The pending set
// lives in the job store, so a restart resumes from there.
type Scheduler struct {
	dm       contract.DataManager
	delivery contract.Delivery
	log      zerolog.Logger
	opts     Options

	wake     chan struct{}
	stopChan chan struct{}
	done     chan struct{}
	sem      *semaphore.Weighted
	inflight sync.WaitGroup

	mu      sync.Mutex
	running bool
}

func newScheduler(dm contract.DataManager, delivery contract.Delivery, log zerolog.Logger, opts Options) *Scheduler {
	return &Scheduler{
		dm:       dm,
		delivery: delivery,
		log:      log.With().Str("comp", "scheduler").Logger(),
		opts:     opts,
		wake:     make(chan struct{}, 1),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
		sem:      semaphore.NewWeighted(opts.MaxConcurrentDeliveries),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.log.Info().Msg("scheduler starting")
	go s.mainLoop()
}

// Stop ends the main loop and waits for in-flight deliveries until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.log.Info().Msg("scheduler stopping")
	close(s.stopChan)
	<-s.done

	finished := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stopped with deliveries in flight: %w", ctx.Err())
	}
}

// Wake makes the loop recompute its next fire time. It never blocks.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
		// a wake-up is already queued
	}
}

func (s *Scheduler) mainLoop() {
	defer close(s.done)

	for {
		wait := s.nextWait()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
			if n, err := s.runDue(context.Background()); err != nil {
				s.log.Error().Err(err).Msg("failed to claim due jobs")
				s.sleep(errorBackoff)
			} else if n == 0 {
				// The next fire time may have moved under us, give the clock a tick.
				s.sleep(time.Second)
			}

		case <-s.wake:
			timer.Stop()
			s.log.Debug().Msg("woken up, recalculating schedule")

		case <-s.stopChan:
			timer.Stop()
			return
		}
	}
}

// nextWait returns how long to sleep before the next due job.
func (s *Scheduler) nextWait() time.Duration {
	next, ok, err := s.dm.Job().NextFireTime(context.Background())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read next fire time")
		return errorBackoff
	}
	if !ok {
		s.log.Debug().Dur("idle_wait", s.opts.IdleWait).Msg("no pending jobs")
		return s.opts.IdleWait
	}

	wait := next.Sub(s.opts.Now())
	if wait < 0 {
		wait = 0
	}
	s.log.Debug().Time("next", next).Dur("in", wait).Msg("next job armed")
	return wait
}

func (s *Scheduler) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-s.wake:
		// keep the wake-up for the next iteration
		s.Wake()
	case <-s.stopChan:
	}
}

// runDue claims every due job and dispatches it. It returns the number of jobs
// taken out of the pending set.
func (s *Scheduler) runDue(ctx context.Context) (int, error) {
	claimed, skipped, err := s.claimDue(ctx, s.opts.Now())
	if err != nil {
		return 0, err
	}
	for _, ev := range claimed {
		s.dispatch(ev)
	}
	return len(claimed) + skipped, nil
}

// claimDue marks due jobs fired, or skipped when they are older than
// MaxLateness, in a single transaction. A job is marked before it is
// delivered, so a crash mid-delivery never fires it twice.
func (s *Scheduler) claimDue(ctx context.Context, now time.Time) ([]*entity.Event, int, error) {
	var claimed []*entity.Event
	var skipped int

	err := s.dm.WithTransaction(ctx, func(tx contract.DataManager) error {
		claimed, skipped = nil, 0

		due, err := tx.Job().ListDue(ctx, now)
		if err != nil {
			return fmt.Errorf("failed to list due jobs: %w", err)
		}

		for _, ev := range due {
			if late := now.Sub(ev.FireAt); s.opts.MaxLateness > 0 && late > s.opts.MaxLateness {
				ok, err := tx.Job().MarkSkipped(ctx, ev.ID, fmt.Sprintf("stale: %s late", late.Truncate(time.Second)))
				if err != nil {
					return fmt.Errorf("failed to skip job %s: %w", ev.ID, err)
				}
				if ok {
					skipped++
					s.log.Warn().Str("job_id", ev.ID).Dur("late", late).Msg("stale job skipped")
				}
				continue
			}

			ok, err := tx.Job().MarkFired(ctx, ev.ID)
			if err != nil {
				return fmt.Errorf("failed to claim job %s: %w", ev.ID, err)
			}
			if !ok {
				continue
			}
			ev.State = entity.StateFired
			claimed = append(claimed, ev)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return claimed, skipped, nil
}

// dispatch runs the delivery of ev in its own goroutine.
func (s *Scheduler) dispatch(ev *entity.Event) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.opts.DeliveryTimeout)
		defer cancel()

		if err := s.sem.Acquire(ctx, 1); err != nil {
			s.recordOutcome(ev, "", fmt.Errorf("delivery slot not acquired: %w", err), nil)
			return
		}
		defer s.sem.Release(1)

		s.deliver(ctx, ev)
	}()
}

// deliver performs one delivery attempt. There are no retries: the job is
// already fired, only the outcome is recorded.
func (s *Scheduler) deliver(ctx context.Context, ev *entity.Event) {
	switch ev.Kind {
	case entity.KindDelete:
		err := s.delivery.Remove(ctx, ev.TargetRef)
		s.recordOutcome(ev, "", err, nil)

	default:
		messageID, err := s.delivery.Send(ctx, ev.Content)
		var followUp *entity.Event
		if err == nil && messageID != "" && ev.DeleteAt != nil {
			followUp = s.followUpDelete(ev, messageID)
		}
		if s.recordOutcome(ev, messageID, err, followUp) && followUp != nil {
			s.log.Debug().Str("job_id", followUp.ID).Time("fire_at", followUp.FireAt).Msg("message delete scheduled")
			s.Wake()
		}
	}
}

// recordOutcome stores the delivery result on the job row and, in the same
// transaction, arms followUp when given. followUp is only stored while the
// parent row still exists, so a clear that commits first leaves nothing
// behind. It reports whether followUp was stored, or for a nil followUp
// whether the row was found.
func (s *Scheduler) recordOutcome(ev *entity.Event, messageID string, deliveryErr error, followUp *entity.Event) bool {
	log := s.log.With().Str("job_id", ev.ID).Str("kind", string(ev.Kind)).Logger()

	var errText string
	if deliveryErr != nil {
		errText = deliveryErr.Error()
		log.Error().Err(deliveryErr).Msg("delivery failed")
	} else {
		log.Info().Str("message_id", messageID).Msg("delivered")
	}

	// the delivery context may already be expired
	ctx := context.Background()

	var stored bool
	err := s.dm.WithTransaction(ctx, func(tx contract.DataManager) error {
		found, err := tx.Job().RecordDelivery(ctx, ev.ID, messageID, errText)
		if err != nil {
			return err
		}
		if !found {
			log.Debug().Msg("job gone before its outcome was recorded")
			return nil
		}
		if followUp == nil {
			stored = true
			return nil
		}
		if err := tx.Job().UpsertPending(ctx, followUp); err != nil {
			// keep the recorded outcome, only the delete is lost
			log.Error().Err(err).Msg("failed to schedule message delete")
			return nil
		}
		stored = true
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to record delivery outcome")
		return false
	}
	return stored
}

// followUpDelete builds the removal job of a delivered message, or nil when
// its DeleteAt has already passed.
func (s *Scheduler) followUpDelete(ev *entity.Event, messageID string) *entity.Event {
	fireAt := ev.DeleteAt.Truncate(time.Minute)
	if fireAt.Before(s.opts.Now().Truncate(time.Minute)) {
		s.log.Debug().Str("job_id", ev.ID).Msg("delete time already passed, not scheduled")
		return nil
	}

	return &entity.Event{
		ID:        EventIdentity(entity.KindDelete, fireAt, "", messageID),
		ShiftID:   ev.ShiftID,
		FireAt:    fireAt,
		Kind:      entity.KindDelete,
		TargetRef: messageID,
		State:     entity.StatePending,
	}
}
