package contract

//go:generate go run go.uber.org/mock/mockgen -source=repo.go -destination=../../../mocks/repo.go -package=mocks

import (
	"context"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
)

// DataManager aggregates all repository interfaces
type DataManager interface {
	WithTransaction(ctx context.Context, fn func(dm DataManager) error) error
	Job() JobRepo
	Shift() ShiftRepo
}

// JobRepo defines the contract for the scheduled event store
type JobRepo interface {
	UpsertPending(ctx context.Context, event *entity.Event) error
	GetByID(ctx context.Context, id string) (*entity.Event, error)
	GetStates(ctx context.Context, ids []string) (map[string]entity.EventState, error)
	ListDue(ctx context.Context, asOf time.Time) ([]*entity.Event, error)
	ListPending(ctx context.Context) ([]*entity.Event, error)
	NextFireTime(ctx context.Context) (time.Time, bool, error)
	NextPending(ctx context.Context) (*entity.Event, error)
	MarkFired(ctx context.Context, id string) (bool, error)
	MarkSkipped(ctx context.Context, id, reason string) (bool, error)
	MarkCancelled(ctx context.Context, id string) (bool, error)
	RecordDelivery(ctx context.Context, id, messageID, deliveryErr string) (bool, error)
	LastDelivered(ctx context.Context) (*entity.Event, error)
	CountByState(ctx context.Context) (map[entity.EventState]int, error)
	DeleteAll(ctx context.Context) (int, error)
	PurgeTerminal(ctx context.Context, before time.Time) (int, error)
}

// ShiftRepo defines the contract for the submitted shift audit store
type ShiftRepo interface {
	Create(ctx context.Context, shift *entity.Shift) error
	GetByID(ctx context.Context, id string) (*entity.Shift, error)
	GetLatest(ctx context.Context) (*entity.Shift, error)
}
