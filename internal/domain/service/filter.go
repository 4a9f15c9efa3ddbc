package service

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
)

const identityTimeLayout = "2006-01-02T15:04"

// EventIdentity is the content hash that identifies an event across
// submissions and restarts.
func EventIdentity(kind entity.EventKind, fireAt time.Time, content, targetRef string) string {
	key := strings.Join([]string{
		string(kind),
		fireAt.UTC().Format(identityTimeLayout),
		content,
		targetRef,
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Filter drops past-due candidates, collapses duplicates and skips identities
// that already reached a terminal state. The result is ordered by fire time,
// then identity.
func Filter(cands []entity.Candidate, now time.Time, existing map[string]entity.EventState) []*entity.Event {
	cutoff := now.Truncate(time.Minute)

	byID := make(map[string]*entity.Event, len(cands))
	for _, c := range cands {
		fireAt := c.FireAt.Truncate(time.Minute)
		if fireAt.Before(cutoff) {
			continue
		}

		id := EventIdentity(c.Kind, fireAt, c.Content, "")
		if state, ok := existing[id]; ok && state.Terminal() {
			continue
		}

		byID[id] = &entity.Event{
			ID:       id,
			FireAt:   fireAt,
			Content:  c.Content,
			Kind:     c.Kind,
			State:    entity.StatePending,
			DeleteAt: c.DeleteAt,
		}
	}

	events := make([]*entity.Event, 0, len(byID))
	for _, ev := range byID {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].FireAt.Equal(events[j].FireAt) {
			return events[i].FireAt.Before(events[j].FireAt)
		}
		return events[i].ID < events[j].ID
	})
	return events
}

// CandidateIDs returns the identities of cands, in order.
func CandidateIDs(cands []entity.Candidate) []string {
	ids := make([]string, 0, len(cands))
	for _, c := range cands {
		ids = append(ids, EventIdentity(c.Kind, c.FireAt.Truncate(time.Minute), c.Content, ""))
	}
	return ids
}
