package database

import (
	"context"
	"fmt"

	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
)

// instance implements DataManager interface
type instance struct {
	db        *DB
	jobRepo   contract.JobRepo
	shiftRepo contract.ShiftRepo
}

// NewInstance creates a new database instance with all repositories
func NewInstance(db *DB) contract.DataManager {
	instance := &instance{
		db: db,
	}
	instance.repoInstances()
	return instance
}

func (i *instance) repoInstances() {
	i.jobRepo = newJobRepo(i.db.conn)
	i.shiftRepo = newShiftRepo(i.db.conn)
}

// repoInstancesWithConn creates repository instances bound to a transaction
func repoInstancesWithConn(db dbConn) *instance {
	return &instance{
		jobRepo:   newJobRepo(db),
		shiftRepo: newShiftRepo(db),
	}
}

func (i *instance) Job() contract.JobRepo {
	return i.jobRepo
}

func (i *instance) Shift() contract.ShiftRepo {
	return i.shiftRepo
}

// WithTransaction executes a function within a database transaction.
// Nested calls run inside the outer transaction.
func (i *instance) WithTransaction(ctx context.Context, fn func(dm contract.DataManager) error) error {
	if i.db == nil {
		return fn(i)
	}

	tx, err := i.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txInstance := repoInstancesWithConn(tx)
	err = fn(txInstance)
	if err != nil {
		rbErr := tx.Rollback()
		if rbErr != nil {
			return fmt.Errorf("error rolling back transaction: %v, original error: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
