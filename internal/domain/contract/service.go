package contract

//go:generate go run go.uber.org/mock/mockgen -source=service.go -destination=../../../mocks/service.go -package=mocks

import (
	"context"

	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
)

type ShiftService interface {
	Submit(ctx context.Context, shift *entity.Shift) (*entity.SubmitResult, error)
	ClearAll(ctx context.Context) (int, error)
	Status(ctx context.Context) (*entity.Status, error)
	PendingJobs(ctx context.Context) ([]*entity.Event, error)
}
