package database

import (
	"context"
	"testing"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJob(id string, fireAt time.Time) *entity.Event {
	return &entity.Event{
		ID:      id,
		ShiftID: "shift-1",
		FireAt:  fireAt,
		Content: "content " + id,
		Kind:    entity.KindNotify,
		State:   entity.StatePending,
	}
}

func TestJobRepo_UpsertPending(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	ctx := context.Background()
	repo := newJobRepo(db.conn)
	fireAt := time.Date(2026, 3, 2, 9, 54, 0, 0, time.UTC)

	job := newTestJob("job-1", fireAt)
	require.NoError(t, repo.UpsertPending(ctx, job))

	found, err := repo.GetByID(ctx, "job-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, entity.StatePending, found.State)
	assert.True(t, fireAt.Equal(found.FireAt))
	assert.Nil(t, found.DeleteAt)

	t.Run("Should overwrite a pending job", func(t *testing.T) {
		deleteAt := fireAt.Add(time.Hour)
		job.DeleteAt = &deleteAt
		job.ShiftID = "shift-2"
		require.NoError(t, repo.UpsertPending(ctx, job))

		found, err := repo.GetByID(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, "shift-2", found.ShiftID)
		require.NotNil(t, found.DeleteAt)
		assert.True(t, deleteAt.Equal(*found.DeleteAt))

		counts, err := repo.CountByState(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, counts[entity.StatePending])
	})

	t.Run("Should never re-arm a fired job", func(t *testing.T) {
		ok, err := repo.MarkFired(ctx, "job-1")
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, repo.UpsertPending(ctx, job))

		found, err := repo.GetByID(ctx, "job-1")
		require.NoError(t, err)
		assert.Equal(t, entity.StateFired, found.State)
	})
}

func TestJobRepo_GetStates(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	ctx := context.Background()
	repo := newJobRepo(db.conn)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.UpsertPending(ctx, newTestJob("a", now)))
	require.NoError(t, repo.UpsertPending(ctx, newTestJob("b", now)))
	_, err := repo.MarkSkipped(ctx, "b", "stale")
	require.NoError(t, err)

	states, err := repo.GetStates(ctx, []string{"a", "b", "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]entity.EventState{
		"a": entity.StatePending,
		"b": entity.StateSkipped,
	}, states)

	empty, err := repo.GetStates(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestJobRepo_ListDueAndNextFireTime(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	ctx := context.Background()
	repo := newJobRepo(db.conn)
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	_, ok, err := repo.NextFireTime(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "empty store has no next fire time")

	require.NoError(t, repo.UpsertPending(ctx, newTestJob("later", base.Add(2*time.Hour))))
	require.NoError(t, repo.UpsertPending(ctx, newTestJob("now", base)))
	require.NoError(t, repo.UpsertPending(ctx, newTestJob("soon", base.Add(time.Minute))))

	next, ok, err := repo.NextFireTime(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, base.Equal(next))

	due, err := repo.ListDue(ctx, base.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "now", due[0].ID)
	assert.Equal(t, "soon", due[1].ID)

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestJobRepo_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		transition func(r *jobRepo, ctx context.Context, id string) (bool, error)
		wantState  entity.EventState
	}{
		{
			name:       "Should mark fired",
			transition: func(r *jobRepo, ctx context.Context, id string) (bool, error) { return r.MarkFired(ctx, id) },
			wantState:  entity.StateFired,
		},
		{
			name: "Should mark skipped",
			transition: func(r *jobRepo, ctx context.Context, id string) (bool, error) {
				return r.MarkSkipped(ctx, id, "stale")
			},
			wantState: entity.StateSkipped,
		},
		{
			name:       "Should mark cancelled",
			transition: func(r *jobRepo, ctx context.Context, id string) (bool, error) { return r.MarkCancelled(ctx, id) },
			wantState:  entity.StateCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := SetupTestDB(t)
			defer CleanupTestDB(t, db)

			ctx := context.Background()
			repo := newJobRepo(db.conn).(*jobRepo)
			require.NoError(t, repo.UpsertPending(ctx, newTestJob("job", time.Now())))

			ok, err := tt.transition(repo, ctx, "job")
			require.NoError(t, err)
			assert.True(t, ok)

			// terminal states never change
			ok, err = tt.transition(repo, ctx, "job")
			require.NoError(t, err)
			assert.False(t, ok)
			ok, err = repo.MarkFired(ctx, "job")
			require.NoError(t, err)
			assert.False(t, ok)

			found, err := repo.GetByID(ctx, "job")
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, found.State)

			ok, err = tt.transition(repo, ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestJobRepo_RecordDelivery(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	ctx := context.Background()
	repo := newJobRepo(db.conn)
	require.NoError(t, repo.UpsertPending(ctx, newTestJob("job", time.Now())))

	found, err := repo.RecordDelivery(ctx, "job", "1700000000.000100", "")
	require.NoError(t, err)
	assert.False(t, found, "pending jobs cannot record a delivery")

	_, err = repo.MarkFired(ctx, "job")
	require.NoError(t, err)

	found, err = repo.RecordDelivery(ctx, "job", "1700000000.000100", "")
	require.NoError(t, err)
	assert.True(t, found)

	last, err := repo.LastDelivered(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "job", last.ID)
	assert.Equal(t, "1700000000.000100", last.MessageID)

	found, err = repo.RecordDelivery(ctx, "missing", "x", "")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestJobRepo_LastDelivered_SkipsFailures(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	ctx := context.Background()
	repo := newJobRepo(db.conn)

	last, err := repo.LastDelivered(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, repo.UpsertPending(ctx, newTestJob("failed", time.Now())))
	_, err = repo.MarkFired(ctx, "failed")
	require.NoError(t, err)
	_, err = repo.RecordDelivery(ctx, "failed", "", "channel_not_found")
	require.NoError(t, err)

	last, err = repo.LastDelivered(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestJobRepo_DeleteAll(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	ctx := context.Background()
	repo := newJobRepo(db.conn)
	now := time.Now()

	require.NoError(t, repo.UpsertPending(ctx, newTestJob("a", now)))
	require.NoError(t, repo.UpsertPending(ctx, newTestJob("b", now)))
	require.NoError(t, repo.UpsertPending(ctx, newTestJob("c", now)))
	_, err := repo.MarkFired(ctx, "c")
	require.NoError(t, err)

	removed, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	counts, err := repo.CountByState(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	due, err := repo.ListDue(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestJobRepo_NextPending(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	ctx := context.Background()
	repo := newJobRepo(db.conn)
	now := time.Now().UTC().Truncate(time.Minute)

	next, err := repo.NextPending(ctx)
	require.NoError(t, err)
	assert.Nil(t, next)

	require.NoError(t, repo.UpsertPending(ctx, newTestJob("earliest-fired", now)))
	require.NoError(t, repo.UpsertPending(ctx, newTestJob("later", now.Add(2*time.Hour))))
	require.NoError(t, repo.UpsertPending(ctx, newTestJob("earliest-pending", now.Add(time.Hour))))
	_, err = repo.MarkFired(ctx, "earliest-fired")
	require.NoError(t, err)

	next, err = repo.NextPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "earliest-pending", next.ID)
	assert.Equal(t, entity.StatePending, next.State)
}

func TestJobRepo_PurgeTerminal(t *testing.T) {
	db := SetupTestDB(t)
	defer CleanupTestDB(t, db)

	ctx := context.Background()
	repo := newJobRepo(db.conn)
	now := time.Now()

	require.NoError(t, repo.UpsertPending(ctx, newTestJob("pending", now)))
	require.NoError(t, repo.UpsertPending(ctx, newTestJob("fired", now)))
	_, err := repo.MarkFired(ctx, "fired")
	require.NoError(t, err)

	n, err := repo.PurgeTerminal(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is older than the cutoff")

	n, err = repo.PurgeTerminal(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	found, err := repo.GetByID(ctx, "pending")
	require.NoError(t, err)
	assert.NotNil(t, found, "pending jobs are never purged")
}
