package service

import (
	"context"
	"testing"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
	"github.com/diegoclair/shift-notify-bot/mocks"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

type allMocks struct {
	mockDataManager *mocks.MockDataManager
	mockJobRepo     *mocks.MockJobRepo
	mockShiftRepo   *mocks.MockShiftRepo
	mockDelivery    *mocks.MockDelivery
}

// newServiceTestMock wires a DataManager mock whose transactions run the
// callback against the same mocked repositories.
func newServiceTestMock(t *testing.T) (m allMocks, ctrl *gomock.Controller) {
	t.Helper()

	ctrl = gomock.NewController(t)

	dm := mocks.NewMockDataManager(ctrl)

	jobRepo := mocks.NewMockJobRepo(ctrl)
	dm.EXPECT().Job().Return(jobRepo).AnyTimes()

	shiftRepo := mocks.NewMockShiftRepo(ctrl)
	dm.EXPECT().Shift().Return(shiftRepo).AnyTimes()

	dm.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func(contract.DataManager) error) error {
			return fn(dm)
		}).AnyTimes()

	m = allMocks{
		mockDataManager: dm,
		mockJobRepo:     jobRepo,
		mockShiftRepo:   shiftRepo,
		mockDelivery:    mocks.NewMockDelivery(ctrl),
	}

	return
}

func testOptions(now time.Time) Options {
	return Options{
		Location:                now.Location(),
		DeliveryTimeout:         time.Second,
		MaxConcurrentDeliveries: 2,
		MaxLateness:             time.Hour,
		IdleWait:                time.Hour,
		Now:                     func() time.Time { return now },
	}.withDefaults()
}

type wakeCounter struct {
	n int
}

func (w *wakeCounter) Wake() { w.n++ }

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
