package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
)

const jobColumns = `id, shift_id, fire_at, content, kind, target_ref, state, delete_at,
	message_id, delivery_error, created_at, updated_at`

type jobRepo struct {
	db dbConn
}

func newJobRepo(db dbConn) contract.JobRepo {
	return &jobRepo{db: db}
}

// UpsertPending inserts a pending job. An existing pending row with the same
// id is overwritten; rows in any other state are left alone.
func (r *jobRepo) UpsertPending(ctx context.Context, ev *entity.Event) error {
	query := `
		INSERT INTO jobs (id, shift_id, fire_at, content, kind, target_ref, state, delete_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			shift_id = excluded.shift_id,
			fire_at = excluded.fire_at,
			content = excluded.content,
			delete_at = excluded.delete_at,
			updated_at = excluded.updated_at
		WHERE jobs.state = 'pending'
	`

	now := toUnix(time.Now())
	_, err := r.db.ExecContext(ctx, query,
		ev.ID,
		ev.ShiftID,
		toUnix(ev.FireAt),
		ev.Content,
		string(ev.Kind),
		ev.TargetRef,
		nullableUnix(ev.DeleteAt),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}

	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*entity.Event, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`

	ev, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return ev, nil
}

func (r *jobRepo) GetStates(ctx context.Context, ids []string) (map[string]entity.EventState, error) {
	states := make(map[string]entity.EventState, len(ids))
	if len(ids) == 0 {
		return states, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := `SELECT id, state FROM jobs WHERE id IN (` + placeholders + `)`

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get job states: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, state string
		if err := rows.Scan(&id, &state); err != nil {
			return nil, fmt.Errorf("failed to scan job state: %w", err)
		}
		states[id] = entity.EventState(state)
	}

	return states, rows.Err()
}

func (r *jobRepo) ListDue(ctx context.Context, asOf time.Time) ([]*entity.Event, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE state = 'pending' AND fire_at <= ?
		ORDER BY fire_at, id
	`

	return r.list(ctx, query, toUnix(asOf))
}

func (r *jobRepo) ListPending(ctx context.Context) ([]*entity.Event, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE state = 'pending'
		ORDER BY fire_at, id
	`

	return r.list(ctx, query)
}

func (r *jobRepo) NextFireTime(ctx context.Context) (time.Time, bool, error) {
	query := `SELECT MIN(fire_at) FROM jobs WHERE state = 'pending'`

	var next sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query).Scan(&next); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get next fire time: %w", err)
	}
	if !next.Valid {
		return time.Time{}, false, nil
	}

	return fromUnix(next.Int64), true, nil
}

// NextPending returns the earliest pending job, or nil when none is left.
func (r *jobRepo) NextPending(ctx context.Context) (*entity.Event, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE state = 'pending'
		ORDER BY fire_at, id
		LIMIT 1
	`

	ev, err := scanJob(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next pending job: %w", err)
	}

	return ev, nil
}

func (r *jobRepo) MarkFired(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx, id, entity.StateFired, "")
}

func (r *jobRepo) MarkSkipped(ctx context.Context, id, reason string) (bool, error) {
	return r.transition(ctx, id, entity.StateSkipped, reason)
}

func (r *jobRepo) MarkCancelled(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx, id, entity.StateCancelled, "")
}

// transition moves a pending job to a terminal state. It reports false when
// the job is missing or not pending anymore.
func (r *jobRepo) transition(ctx context.Context, id string, to entity.EventState, reason string) (bool, error) {
	query := `
		UPDATE jobs SET state = ?, delivery_error = ?, updated_at = ?
		WHERE id = ? AND state = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, string(to), reason, toUnix(time.Now()), id)
	if err != nil {
		return false, fmt.Errorf("failed to mark job %s: %w", to, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n == 1, nil
}

// RecordDelivery stores the delivery outcome of a fired job.
func (r *jobRepo) RecordDelivery(ctx context.Context, id, messageID, deliveryErr string) (bool, error) {
	query := `
		UPDATE jobs SET message_id = ?, delivery_error = ?, delivered_at = ?, updated_at = ?
		WHERE id = ? AND state = 'fired'
	`

	now := toUnix(time.Now())
	result, err := r.db.ExecContext(ctx, query, messageID, deliveryErr, now, now, id)
	if err != nil {
		return false, fmt.Errorf("failed to record delivery: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return n == 1, nil
}

// LastDelivered returns the most recently delivered notification, or nil.
func (r *jobRepo) LastDelivered(ctx context.Context) (*entity.Event, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE kind = 'notify' AND delivered_at IS NOT NULL AND delivery_error = ''
		ORDER BY delivered_at DESC, fire_at DESC
		LIMIT 1
	`

	ev, err := scanJob(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last delivered job: %w", err)
	}

	return ev, nil
}

func (r *jobRepo) CountByState(ctx context.Context) (map[entity.EventState]int, error) {
	query := `SELECT state, COUNT(*) FROM jobs GROUP BY state`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.EventState]int)
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan job count: %w", err)
		}
		counts[entity.EventState(state)] = n
	}

	return counts, rows.Err()
}

// DeleteAll empties the table and returns how many rows were removed.
func (r *jobRepo) DeleteAll(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete jobs: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(n), nil
}

// PurgeTerminal deletes jobs in a terminal state last touched before the
// given time.
func (r *jobRepo) PurgeTerminal(ctx context.Context, before time.Time) (int, error) {
	query := `DELETE FROM jobs WHERE state != 'pending' AND updated_at < ?`

	result, err := r.db.ExecContext(ctx, query, toUnix(before))
	if err != nil {
		return 0, fmt.Errorf("failed to purge jobs: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(n), nil
}

func (r *jobRepo) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var events []*entity.Event
	for rows.Next() {
		ev, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		events = append(events, ev)
	}

	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*entity.Event, error) {
	var (
		ev                           entity.Event
		kind, state                  string
		fireAt, createdAt, updatedAt int64
		deleteAt                     sql.NullInt64
	)

	err := row.Scan(
		&ev.ID,
		&ev.ShiftID,
		&fireAt,
		&ev.Content,
		&kind,
		&ev.TargetRef,
		&state,
		&deleteAt,
		&ev.MessageID,
		&ev.DeliveryError,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	ev.Kind = entity.EventKind(kind)
	ev.State = entity.EventState(state)
	ev.FireAt = fromUnix(fireAt)
	ev.DeleteAt = fromNullableUnix(deleteAt)
	ev.CreatedAt = fromUnix(createdAt)
	ev.UpdatedAt = fromUnix(updatedAt)

	return &ev, nil
}
