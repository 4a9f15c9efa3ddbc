package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
)

type shiftRepo struct {
	db dbConn
}

func newShiftRepo(db dbConn) contract.ShiftRepo {
	return &shiftRepo{db: db}
}

func (r *shiftRepo) Create(ctx context.Context, shift *entity.Shift) error {
	query := `
		INSERT INTO shifts (id, shift_type, shift_order, task_type, payload, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	// The full declaration is kept as JSON for audit
	payload, err := json.Marshal(shift)
	if err != nil {
		return fmt.Errorf("failed to marshal shift: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		shift.ID,
		shift.ShiftType,
		shift.ShiftOrder,
		shift.TaskType,
		string(payload),
		toUnix(shift.SubmittedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create shift: %w", err)
	}

	return nil
}

func (r *shiftRepo) GetByID(ctx context.Context, id string) (*entity.Shift, error) {
	query := `SELECT payload, submitted_at FROM shifts WHERE id = ?`

	shift, err := scanShift(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}

	return shift, nil
}

func (r *shiftRepo) GetLatest(ctx context.Context) (*entity.Shift, error) {
	query := `SELECT payload, submitted_at FROM shifts ORDER BY submitted_at DESC, rowid DESC LIMIT 1`

	shift, err := scanShift(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest shift: %w", err)
	}

	return shift, nil
}

func scanShift(row rowScanner) (*entity.Shift, error) {
	var payload string
	var submittedAt int64
	if err := row.Scan(&payload, &submittedAt); err != nil {
		return nil, err
	}

	shift := &entity.Shift{}
	if err := json.Unmarshal([]byte(payload), shift); err != nil {
		return nil, fmt.Errorf("failed to unmarshal shift: %w", err)
	}
	shift.SubmittedAt = fromUnix(submittedAt)

	return shift, nil
}
