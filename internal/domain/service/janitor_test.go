package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_Janitor_Purge(t *testing.T) {
	m, ctrl := newServiceTestMock(t)
	defer ctrl.Finish()

	now := day(4, 0)
	opts := testOptions(now)
	opts.Retention = 48 * time.Hour
	j := newJanitor(m.mockDataManager, nopLogger(), opts)

	m.mockJobRepo.EXPECT().PurgeTerminal(gomock.Any(), now.Add(-48*time.Hour)).Return(5, nil)

	n, err := j.Purge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	m.mockJobRepo.EXPECT().PurgeTerminal(gomock.Any(), gomock.Any()).Return(0, errors.New("locked"))
	_, err = j.Purge(context.Background())
	require.Error(t, err)
}

func Test_Janitor_Start(t *testing.T) {
	m, ctrl := newServiceTestMock(t)
	defer ctrl.Finish()

	opts := testOptions(day(4, 0))
	opts.PurgeCron = "not a schedule"
	j := newJanitor(m.mockDataManager, nopLogger(), opts)
	require.Error(t, j.Start())

	opts.PurgeCron = "0 4 * * *"
	j = newJanitor(m.mockDataManager, nopLogger(), opts)
	require.NoError(t, j.Start())
	j.Stop()
}
