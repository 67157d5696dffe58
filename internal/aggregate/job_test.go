package aggregate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockProjectionRepo struct {
	mock.Mock
}

func (m *mockProjectionRepo) EnsureTables(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockProjectionRepo) RefreshMonthlySummary(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockProjectionRepo) CalculateShopPerformance(ctx context.Context, days int) error {
	return m.Called(ctx, days).Error(0)
}

func (m *mockProjectionRepo) AggregateUserJourneys(ctx context.Context, day time.Time) error {
	return m.Called(ctx, day).Error(0)
}

func (m *mockProjectionRepo) RefreshHourlyVisits(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockProjectionRepo) RefreshDailyActivity(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestJob_RunOnce_RefreshesEveryProjection(t *testing.T) {
	repo := new(mockProjectionRepo)
	repo.On("RefreshMonthlySummary", mock.Anything).Return(nil).Once()
	repo.On("CalculateShopPerformance", mock.Anything, 7).Return(nil).Once()
	repo.On("AggregateUserJourneys", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("RefreshHourlyVisits", mock.Anything).Return(nil).Once()
	repo.On("RefreshDailyActivity", mock.Anything).Return(nil).Once()

	job := NewJob(repo, time.Hour, zap.NewNop())
	job.RunOnce(context.Background())

	repo.AssertExpectations(t)
}

func TestJob_RunOnce_ContinuesPastFailures(t *testing.T) {
	repo := new(mockProjectionRepo)
	repo.On("RefreshMonthlySummary", mock.Anything).Return(errors.New("boom")).Once()
	repo.On("CalculateShopPerformance", mock.Anything, performanceWindowDays).Return(nil).Once()
	repo.On("AggregateUserJourneys", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("RefreshHourlyVisits", mock.Anything).Return(nil).Once()
	repo.On("RefreshDailyActivity", mock.Anything).Return(nil).Once()

	job := NewJob(repo, time.Hour, zap.NewNop())
	job.RunOnce(context.Background())

	repo.AssertExpectations(t)
}

func TestJob_StopEndsLoop(t *testing.T) {
	repo := new(mockProjectionRepo)
	repo.On("EnsureTables", mock.Anything).Return(nil)
	repo.On("RefreshMonthlySummary", mock.Anything).Return(nil)
	repo.On("CalculateShopPerformance", mock.Anything, performanceWindowDays).Return(nil)
	repo.On("AggregateUserJourneys", mock.Anything, mock.Anything).Return(nil)
	repo.On("RefreshHourlyVisits", mock.Anything).Return(nil)
	repo.On("RefreshDailyActivity", mock.Anything).Return(nil)

	job := NewJob(repo, time.Hour, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		done <- job.Start(context.Background())
	}()

	time.Sleep(50 * time.Millisecond)
	assert.NoError(t, job.Stop())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("job did not stop")
	}
}
