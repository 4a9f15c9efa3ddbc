package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/domain"
	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// waker is notified whenever the set of pending jobs changes.
type waker interface {
	Wake()
}

type shiftService struct {
	dm       contract.DataManager
	delivery contract.Delivery
	waker    waker
	validate *validator.Validate
	log      zerolog.Logger
	loc      *time.Location
	now      func() time.Time
}

func newShift(dm contract.DataManager, delivery contract.Delivery, w waker, log zerolog.Logger, opts Options) *shiftService {
	return &shiftService{
		dm:       dm,
		delivery: delivery,
		waker:    w,
		validate: newShiftValidator(),
		log:      log.With().Str("comp", "shift").Logger(),
		loc:      opts.Location,
		now:      opts.Now,
	}
}

func newShiftValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their json name so errors match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Submit validates, expands and persists one shift declaration. Nothing is
// stored when validation fails.
func (s *shiftService) Submit(ctx context.Context, shift *entity.Shift) (*entity.SubmitResult, error) {
	if shift == nil {
		return nil, domain.NewValidationError(domain.ErrCodeValidationMissingField, "body", "shift declaration is required")
	}
	if err := validateShift(s.validate, shift); err != nil {
		return nil, err
	}

	now := s.now().In(s.loc)
	shift.ID = uuid.NewString()
	shift.SubmittedAt = now

	plan := Expand(shift, now, ExpandOptions{
		NativeDelete: s.delivery.CanRemove(),
		Location:     s.loc,
	})

	var events []*entity.Event
	err := s.dm.WithTransaction(ctx, func(tx contract.DataManager) error {
		if err := tx.Shift().Create(ctx, shift); err != nil {
			return fmt.Errorf("failed to store shift: %w", err)
		}

		states, err := tx.Job().GetStates(ctx, CandidateIDs(plan.Candidates))
		if err != nil {
			return fmt.Errorf("failed to load job states: %w", err)
		}

		events = Filter(plan.Candidates, now, states)
		for _, ev := range events {
			ev.ShiftID = shift.ID
			if err := tx.Job().UpsertPending(ctx, ev); err != nil {
				return fmt.Errorf("failed to store job %s: %w", ev.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewAppError(domain.ErrCodeInternalDB, "failed to schedule shift", err)
	}

	s.waker.Wake()

	dropped := len(plan.Candidates) - len(events)
	s.log.Info().
		Str("shift_id", shift.ID).
		Str("shift_type", shift.ShiftType).
		Int("scheduled", len(events)).
		Int("dropped", dropped).
		Msg("shift scheduled")
	if dropped > 0 {
		s.log.Debug().Int("dropped", dropped).Msg("past-due or already handled candidates dropped")
	}

	return &entity.SubmitResult{
		ShiftID:       shift.ID,
		Scheduled:     len(events),
		Dropped:       dropped,
		SlotScheduled: plan.SlotScheduled,
		SkippedReason: plan.SkippedReason,
		Events:        events,
	}, nil
}

// ValidateShift checks a declaration the same way Submit does, without
// storing anything.
func ValidateShift(shift *entity.Shift) error {
	if shift == nil {
		return domain.NewValidationError(domain.ErrCodeValidationMissingField, "body", "shift declaration is required")
	}
	return validateShift(newShiftValidator(), shift)
}

func validateShift(v *validator.Validate, shift *entity.Shift) error {
	if err := v.Struct(shift); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return domain.NewAppError(domain.ErrCodeValidationInvalidValue, "invalid shift declaration", err)
		}

		fe := verrs[0]
		switch fe.Tag() {
		case "required", "required_if":
			return domain.NewValidationError(domain.ErrCodeValidationMissingField, fe.Field(), "is required")
		case "oneof":
			return domain.NewValidationError(domain.ErrCodeValidationInvalidValue, fe.Field(), fmt.Sprintf("must be one of [%s]", fe.Param()))
		default:
			return domain.NewValidationError(domain.ErrCodeValidationInvalidValue, fe.Field(), fmt.Sprintf("invalid value %v", fe.Value()))
		}
	}

	if shift.ShiftType == domain.ShiftMorning {
		if len(shift.MorningTimes) == 0 {
			return domain.NewValidationError(domain.ErrCodeValidationMissingField, "morningTimes", "is required")
		}
		for _, mark := range shift.MorningTimes {
			h, err := strconv.Atoi(strings.TrimSpace(mark))
			if err != nil || h < 0 || h > 23 {
				return domain.NewValidationError(domain.ErrCodeValidationInvalidValue, "morningTimes", fmt.Sprintf("hour mark %q must be between 0 and 23", mark))
			}
		}
	}

	return nil
}

// ClearAll cancels every pending job and removes every stored job.
func (s *shiftService) ClearAll(ctx context.Context) (int, error) {
	var cancelled int
	err := s.dm.WithTransaction(ctx, func(tx contract.DataManager) error {
		pending, err := tx.Job().ListPending(ctx)
		if err != nil {
			return fmt.Errorf("failed to list pending jobs: %w", err)
		}

		for _, ev := range pending {
			ok, err := tx.Job().MarkCancelled(ctx, ev.ID)
			if err != nil {
				return fmt.Errorf("failed to cancel job %s: %w", ev.ID, err)
			}
			if ok {
				cancelled++
			}
		}

		if _, err := tx.Job().DeleteAll(ctx); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return 0, domain.NewAppError(domain.ErrCodeInternalDB, "failed to clear schedules", err)
	}

	s.waker.Wake()
	s.log.Info().Int("cancelled", cancelled).Msg("all schedules cleared")
	return cancelled, nil
}

func (s *shiftService) Status(ctx context.Context) (*entity.Status, error) {
	latest, err := s.dm.Shift().GetLatest(ctx)
	if err != nil {
		return nil, domain.NewAppError(domain.ErrCodeInternalDB, "failed to load latest shift", err)
	}

	counts, err := s.dm.Job().CountByState(ctx)
	if err != nil {
		return nil, domain.NewAppError(domain.ErrCodeInternalDB, "failed to count jobs", err)
	}

	last, err := s.dm.Job().LastDelivered(ctx)
	if err != nil {
		return nil, domain.NewAppError(domain.ErrCodeInternalDB, "failed to load last delivery", err)
	}

	next, err := s.dm.Job().NextPending(ctx)
	if err != nil {
		return nil, domain.NewAppError(domain.ErrCodeInternalDB, "failed to load next pending job", err)
	}

	status := &entity.Status{
		Shift:         latest,
		Pending:       counts[entity.StatePending],
		Counts:        make(map[string]int, len(counts)),
		LastDelivered: last,
		NextEvent:     next,
	}
	for state, n := range counts {
		status.Counts[string(state)] = n
	}
	return status, nil
}

func (s *shiftService) PendingJobs(ctx context.Context) ([]*entity.Event, error) {
	events, err := s.dm.Job().ListPending(ctx)
	if err != nil {
		return nil, domain.NewAppError(domain.ErrCodeInternalDB, "failed to list pending jobs", err)
	}
	return events, nil
}
