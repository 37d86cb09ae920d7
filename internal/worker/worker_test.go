package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirinyoku/eventhub/internal/domain"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type expirerMock struct{ mock.Mock }

func (m *expirerMock) ExpireHolds(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type countersMock struct{ mock.Mock }

func (m *countersMock) Drain(ctx context.Context, key string) (map[int64]int64, error) {
	args := m.Called(ctx, key)
	counts, _ := args.Get(0).(map[int64]int64)
	return counts, args.Error(1)
}

func (m *countersMock) Restore(ctx context.Context, key string, counts map[int64]int64) error {
	return m.Called(ctx, key, counts).Error(0)
}

type adSinkMock struct{ mock.Mock }

func (m *adSinkMock) AddCounters(ctx context.Context, impressions, clicks map[int64]int64) error {
	return m.Called(ctx, impressions, clicks).Error(0)
}

type viewSinkMock struct{ mock.Mock }

func (m *viewSinkMock) AddEventViews(ctx context.Context, views []domain.DailyViews) error {
	return m.Called(ctx, views).Error(0)
}

func TestSweeperSweep(t *testing.T) {
	holds := &expirerMock{}
	holds.On("ExpireHolds", mock.Anything).Return(int64(4), nil).Once()
	holds.On("ExpireHolds", mock.Anything).Return(int64(0), errors.New("db down")).Once()

	s := NewSweeper(holds, time.Second, discardLogger())

	require.NoError(t, s.Sweep(context.Background()))
	assert.ErrorContains(t, s.Sweep(context.Background()), "db down")

	holds.AssertExpectations(t)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	holds := &expirerMock{}
	holds.On("ExpireHolds", mock.Anything).Run(func(mock.Arguments) { calls.Add(1) }).Return(int64(0), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewSweeper(holds, 10*time.Millisecond, discardLogger()).Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func newTestFlusher(c *countersMock, ads *adSinkMock, views *viewSinkMock, now time.Time) *Flusher {
	f := NewFlusher(c, ads, views, time.Second, discardLogger())
	f.now = func() time.Time { return now }
	return f
}

func TestFlusherFlushesAdsAndViews(t *testing.T) {
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	today := redisrepo.KeyEventViews("2026-10-17")
	yesterday := redisrepo.KeyEventViews("2026-10-16")

	c := &countersMock{}
	c.On("Drain", mock.Anything, redisrepo.KeyAdImpressions()).Return(map[int64]int64{1: 10}, nil)
	c.On("Drain", mock.Anything, redisrepo.KeyAdClicks()).Return(map[int64]int64{1: 2}, nil)
	c.On("Drain", mock.Anything, yesterday).Return(map[int64]int64{}, nil)
	c.On("Drain", mock.Anything, today).Return(map[int64]int64{5: 3}, nil)
	c.On("Drain", mock.Anything, mock.Anything).Return(map[int64]int64{}, nil)

	ads := &adSinkMock{}
	ads.On("AddCounters", mock.Anything, map[int64]int64{1: 10}, map[int64]int64{1: 2}).Return(nil)

	views := &viewSinkMock{}
	views.On("AddEventViews", mock.Anything, []domain.DailyViews{
		{EventID: 5, Day: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC), Views: 3},
	}).Return(nil)

	require.NoError(t, newTestFlusher(c, ads, views, now).Flush(context.Background()))

	c.AssertExpectations(t)
	ads.AssertExpectations(t)
	views.AssertExpectations(t)
	c.AssertNotCalled(t, "Restore", mock.Anything, mock.Anything, mock.Anything)
}

func TestFlusherRestoresOnPersistFailure(t *testing.T) {
	now := time.Date(2026, 10, 17, 0, 5, 0, 0, time.UTC)
	today := redisrepo.KeyEventViews("2026-10-17")
	yesterday := redisrepo.KeyEventViews("2026-10-16")

	impressions := map[int64]int64{2: 7}
	clicks := map[int64]int64{}
	late := map[int64]int64{9: 4}

	c := &countersMock{}
	c.On("Drain", mock.Anything, redisrepo.KeyAdImpressions()).Return(impressions, nil)
	c.On("Drain", mock.Anything, redisrepo.KeyAdClicks()).Return(clicks, nil)
	c.On("Drain", mock.Anything, yesterday).Return(late, nil)
	c.On("Drain", mock.Anything, today).Return(map[int64]int64{}, nil)
	c.On("Drain", mock.Anything, mock.Anything).Return(map[int64]int64{}, nil)
	c.On("Restore", mock.Anything, redisrepo.KeyAdImpressions(), impressions).Return(nil).Once()
	c.On("Restore", mock.Anything, redisrepo.KeyAdClicks(), clicks).Return(nil).Once()
	c.On("Restore", mock.Anything, yesterday, late).Return(nil).Once()

	ads := &adSinkMock{}
	ads.On("AddCounters", mock.Anything, impressions, clicks).Return(errors.New("pg down"))

	views := &viewSinkMock{}
	views.On("AddEventViews", mock.Anything, mock.Anything).Return(errors.New("pg down"))

	err := newTestFlusher(c, ads, views, now).Flush(context.Background())
	assert.ErrorContains(t, err, "pg down")

	c.AssertExpectations(t)
}

func TestFlusherNothingToFlush(t *testing.T) {
	c := &countersMock{}
	c.On("Drain", mock.Anything, mock.Anything).Return(map[int64]int64{}, nil)

	ads := &adSinkMock{}
	views := &viewSinkMock{}

	require.NoError(t, newTestFlusher(c, ads, views, time.Now()).Flush(context.Background()))

	ads.AssertNotCalled(t, "AddCounters", mock.Anything, mock.Anything, mock.Anything)
	views.AssertNotCalled(t, "AddEventViews", mock.Anything, mock.Anything)
}

func TestFlusherDrainsEveryRetainedDay(t *testing.T) {
	now := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)
	stale := redisrepo.KeyEventViews("2026-10-12")
	oldest := redisrepo.KeyEventViews("2026-10-10")

	c := &countersMock{}
	c.On("Drain", mock.Anything, stale).Return(map[int64]int64{3: 6}, nil).Once()
	c.On("Drain", mock.Anything, oldest).Return(map[int64]int64{}, nil).Once()
	c.On("Drain", mock.Anything, mock.Anything).Return(map[int64]int64{}, nil)

	views := &viewSinkMock{}
	views.On("AddEventViews", mock.Anything, []domain.DailyViews{
		{EventID: 3, Day: time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), Views: 6},
	}).Return(nil).Once()

	require.NoError(t, newTestFlusher(c, &adSinkMock{}, views, now).Flush(context.Background()))

	c.AssertExpectations(t)
	views.AssertExpectations(t)
	c.AssertNotCalled(t, "Drain", mock.Anything, redisrepo.KeyEventViews("2026-10-09"))
	// two ad hashes plus eight days of views
	c.AssertNumberOfCalls(t, "Drain", 10)
}
