package service

import (
	"context"
	"testing"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/database"
	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
	"github.com/diegoclair/shift-notify-bot/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type flowEnv struct {
	dm       contract.DataManager
	delivery *mocks.MockDelivery
	now      time.Time
	inst     *Instance
}

// newFlowEnv builds the services on an in-memory store with a movable clock.
func newFlowEnv(t *testing.T, now time.Time) *flowEnv {
	t.Helper()

	db := database.SetupTestDB(t)
	t.Cleanup(func() { database.CleanupTestDB(t, db) })

	ctrl := gomock.NewController(t)
	env := &flowEnv{
		dm:       database.NewInstance(db),
		delivery: mocks.NewMockDelivery(ctrl),
		now:      now,
	}

	opts := testOptions(now)
	opts.Now = func() time.Time { return env.now }
	env.inst = NewInstance(env.dm, env.delivery, nopLogger(), opts)
	return env
}

func pendingTimes(t *testing.T, dm contract.DataManager) []string {
	t.Helper()

	events, err := dm.Job().ListPending(context.Background())
	require.NoError(t, err)

	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.FireAt.Format("01-02 15:04"))
	}
	return out
}

func morningShift() *entity.Shift {
	return &entity.Shift{ShiftType: "morning", ShiftOrder: "1", TaskType: "none", MorningTimes: []string{"10"}}
}

func TestFlow_MorningSubmission(t *testing.T) {
	env := newFlowEnv(t, day(8, 0))
	ctx := context.Background()
	env.delivery.EXPECT().CanRemove().Return(true).AnyTimes()

	res, err := env.inst.Shift.Submit(ctx, morningShift())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Scheduled)
	assert.Equal(t, []string{"03-02 08:00", "03-02 09:54", "03-02 10:54", "03-02 15:00"}, pendingTimes(t, env.dm))

	t.Run("Should not duplicate on re-submission", func(t *testing.T) {
		res, err := env.inst.Shift.Submit(ctx, morningShift())
		require.NoError(t, err)
		assert.Equal(t, 4, res.Scheduled)
		assert.Len(t, pendingTimes(t, env.dm), 4)
	})

	t.Run("Should exclude past-due alarms", func(t *testing.T) {
		env.now = day(10, 0)
		res, err := env.inst.Shift.Submit(ctx, morningShift())
		require.NoError(t, err)
		// a fresh acknowledgment, 10:54 and 15:00; 09:54 is already past
		assert.Equal(t, 3, res.Scheduled)
		assert.Equal(t, 1, res.Dropped)
		for _, ev := range res.Events {
			assert.False(t, ev.FireAt.Before(day(10, 0)))
		}
	})
}

func TestFlow_FireAndRetractAcknowledgment(t *testing.T) {
	env := newFlowEnv(t, day(8, 0))
	ctx := context.Background()
	sched := env.inst.Scheduler
	env.delivery.EXPECT().CanRemove().Return(true).AnyTimes()

	_, err := env.inst.Shift.Submit(ctx, morningShift())
	require.NoError(t, err)

	// 08:00, the acknowledgment fires
	claimed, _, err := sched.claimDue(ctx, env.now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	env.delivery.EXPECT().Send(gomock.Any(), claimed[0].Content).Return("1700000000.000100", nil)
	sched.deliver(ctx, claimed[0])

	ack, err := env.dm.Job().GetByID(ctx, claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateFired, ack.State)
	assert.Equal(t, "1700000000.000100", ack.MessageID)
	assert.Equal(t, []string{"03-02 09:54", "03-02 10:54", "03-02 15:00", "03-02 15:30"}, pendingTimes(t, env.dm))

	// a second claim at the same minute fires nothing again
	claimed, _, err = sched.claimDue(ctx, env.now)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	// 15:30, the slot alarms are stale, the leave reminder and delete are due
	env.now = day(15, 30)
	claimed, skipped, err := sched.claimDue(ctx, env.now)
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, claimed, 2)
	assert.Equal(t, entity.KindNotify, claimed[0].Kind)
	assert.Equal(t, entity.KindDelete, claimed[1].Kind)

	env.delivery.EXPECT().Send(gomock.Any(), claimed[0].Content).Return("1700000000.000200", nil)
	env.delivery.EXPECT().Remove(gomock.Any(), "1700000000.000100").Return(nil)
	sched.deliver(ctx, claimed[0])
	sched.deliver(ctx, claimed[1])

	assert.Empty(t, pendingTimes(t, env.dm))

	counts, err := env.dm.Job().CountByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, counts[entity.StateFired])
	assert.Equal(t, 2, counts[entity.StateSkipped])

	status, err := env.inst.Shift.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, status.LastDelivered)
	assert.Equal(t, "1700000000.000200", status.LastDelivered.MessageID)
	assert.Nil(t, status.NextEvent)
}

func TestFlow_ClearThenScan(t *testing.T) {
	env := newFlowEnv(t, day(12, 0))
	ctx := context.Background()
	env.delivery.EXPECT().CanRemove().Return(false).AnyTimes()

	_, err := env.inst.Shift.Submit(ctx, &entity.Shift{ShiftType: "afternoon", ShiftOrder: "1", TaskType: "recycling", ShiftTimeRange: "13-16"})
	require.NoError(t, err)

	cancelled, err := env.inst.Shift.ClearAll(ctx)
	require.NoError(t, err)
	assert.Greater(t, cancelled, 0)

	env.now = day(23, 59).Add(2 * time.Hour)
	claimed, skipped, err := env.inst.Scheduler.claimDue(ctx, env.now)
	require.NoError(t, err)
	assert.Empty(t, claimed)
	assert.Zero(t, skipped)

	counts, err := env.dm.Job().CountByState(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[entity.StateFired])
	assert.Zero(t, counts[entity.StatePending])

	// the declaration stays in the audit table
	latest, err := env.dm.Shift().GetLatest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "afternoon", latest.ShiftType)
}

// recordHookDataManager runs afterRecord once a delivery outcome is written,
// inside whatever transaction wrote it.
type recordHookDataManager struct {
	contract.DataManager
	afterRecord func()
}

func (h *recordHookDataManager) Job() contract.JobRepo {
	return &recordHookJobRepo{JobRepo: h.DataManager.Job(), afterRecord: h.afterRecord}
}

func (h *recordHookDataManager) WithTransaction(ctx context.Context, fn func(dm contract.DataManager) error) error {
	return h.DataManager.WithTransaction(ctx, func(tx contract.DataManager) error {
		return fn(&recordHookDataManager{DataManager: tx, afterRecord: h.afterRecord})
	})
}

type recordHookJobRepo struct {
	contract.JobRepo
	afterRecord func()
}

func (r *recordHookJobRepo) RecordDelivery(ctx context.Context, id, messageID, deliveryErr string) (bool, error) {
	found, err := r.JobRepo.RecordDelivery(ctx, id, messageID, deliveryErr)
	if err == nil {
		r.afterRecord()
	}
	return found, err
}

func TestFlow_ClearDuringDeliveryLeavesNothingPending(t *testing.T) {
	env := newFlowEnv(t, day(8, 0))
	ctx := context.Background()
	env.delivery.EXPECT().CanRemove().Return(true).AnyTimes()

	_, err := env.inst.Shift.Submit(ctx, morningShift())
	require.NoError(t, err)

	claimed, _, err := env.inst.Scheduler.claimDue(ctx, env.now)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NotNil(t, claimed[0].DeleteAt)

	// A clear starts right after the outcome is written. It either finishes
	// before the follow-up delete would be stored or waits for the whole
	// outcome to commit; give it the chance to finish first.
	clearErr := make(chan error, 1)
	var started bool
	hooked := &recordHookDataManager{DataManager: env.dm, afterRecord: func() {
		if started {
			return
		}
		started = true
		go func() {
			_, err := env.inst.Shift.ClearAll(ctx)
			clearErr <- err
		}()
		select {
		case err := <-clearErr:
			clearErr <- err
		case <-time.After(200 * time.Millisecond):
		}
	}}

	opts := testOptions(env.now)
	sched := newScheduler(hooked, env.delivery, nopLogger(), opts)

	env.delivery.EXPECT().Send(gomock.Any(), claimed[0].Content).Return("ts-1", nil)
	sched.deliver(ctx, claimed[0])

	require.True(t, started)
	require.NoError(t, <-clearErr)

	assert.Empty(t, pendingTimes(t, env.dm))

	env.now = day(23, 0)
	due, skipped, err := env.inst.Scheduler.claimDue(ctx, env.now)
	require.NoError(t, err)
	assert.Empty(t, due)
	assert.Zero(t, skipped)

	counts, err := env.dm.Job().CountByState(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[entity.StatePending])
	assert.Zero(t, counts[entity.StateFired])
}

func TestFlow_Purge(t *testing.T) {
	env := newFlowEnv(t, time.Now().UTC())
	ctx := context.Background()
	env.delivery.EXPECT().CanRemove().Return(true).AnyTimes()

	_, err := env.inst.Shift.Submit(ctx, &entity.Shift{ShiftType: "afternoon", ShiftOrder: "3", TaskType: "none"})
	require.NoError(t, err)

	claimed, _, err := env.inst.Scheduler.claimDue(ctx, env.now)
	require.NoError(t, err)
	require.NotEmpty(t, claimed)

	// nothing is old enough yet
	n, err := env.inst.Janitor.Purge(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	env.now = env.now.Add(env.inst.Janitor.opts.Retention + time.Hour)
	n, err = env.inst.Janitor.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(claimed), n)
}
