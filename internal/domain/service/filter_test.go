package service

import (
	"testing"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notify(at time.Time, content string) entity.Candidate {
	return entity.Candidate{FireAt: at, Content: content, Kind: entity.KindNotify}
}

func TestEventIdentity(t *testing.T) {
	at := day(9, 54)

	id := EventIdentity(entity.KindNotify, at, "hello", "")
	assert.Len(t, id, 64)
	assert.Equal(t, id, EventIdentity(entity.KindNotify, at, "hello", ""), "identity is stable")

	// same instant in another zone
	assert.Equal(t, id, EventIdentity(entity.KindNotify, at.In(time.FixedZone("X", 7200)), "hello", ""))

	assert.NotEqual(t, id, EventIdentity(entity.KindNotify, at, "hello!", ""))
	assert.NotEqual(t, id, EventIdentity(entity.KindNotify, at.Add(time.Minute), "hello", ""))
	assert.NotEqual(t, id, EventIdentity(entity.KindDelete, at, "hello", ""))
	assert.NotEqual(t, id, EventIdentity(entity.KindNotify, at, "hello", "123.456"))
}

func TestFilter(t *testing.T) {
	now := day(10, 0).Add(30 * time.Second)

	t.Run("Should drop past-due candidates but keep the current minute", func(t *testing.T) {
		cands := []entity.Candidate{
			notify(day(9, 54), "past"),
			notify(day(10, 0), "this minute"),
			notify(day(10, 54), "future"),
		}

		got := Filter(cands, now, nil)
		require.Len(t, got, 2)
		assert.Equal(t, "this minute", got[0].Content)
		assert.Equal(t, "future", got[1].Content)
		for _, ev := range got {
			assert.Equal(t, entity.StatePending, ev.State)
			assert.Equal(t, EventIdentity(ev.Kind, ev.FireAt, ev.Content, ""), ev.ID)
		}
	})

	t.Run("Should collapse duplicates keeping the last", func(t *testing.T) {
		deleteAt := day(15, 30)
		second := notify(day(11, 0), "dup")
		second.DeleteAt = &deleteAt

		got := Filter([]entity.Candidate{notify(day(11, 0), "dup"), second}, now, nil)
		require.Len(t, got, 1)
		require.NotNil(t, got[0].DeleteAt)
		assert.Equal(t, deleteAt, *got[0].DeleteAt)
	})

	t.Run("Should skip identities already in a terminal state", func(t *testing.T) {
		fired := notify(day(11, 0), "fired")
		pending := notify(day(11, 0), "pending")
		existing := map[string]entity.EventState{
			CandidateIDs([]entity.Candidate{fired})[0]:   entity.StateFired,
			CandidateIDs([]entity.Candidate{pending})[0]: entity.StatePending,
		}

		got := Filter([]entity.Candidate{fired, pending}, now, existing)
		require.Len(t, got, 1)
		assert.Equal(t, "pending", got[0].Content)
	})

	t.Run("Should order by fire time then identity", func(t *testing.T) {
		cands := []entity.Candidate{
			notify(day(12, 0), "c"),
			notify(day(11, 0), "b"),
			notify(day(11, 0), "a"),
		}

		got := Filter(cands, now, nil)
		require.Len(t, got, 3)
		assert.True(t, got[0].FireAt.Equal(day(11, 0)))
		assert.True(t, got[1].FireAt.Equal(day(11, 0)))
		assert.Less(t, got[0].ID, got[1].ID)
		assert.Equal(t, "c", got[2].Content)
	})

	t.Run("Should return an empty slice for no candidates", func(t *testing.T) {
		got := Filter(nil, now, nil)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
