package live

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kirinyoku/eventhub/internal/domain"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sourceMock struct {
	mock.Mock
}

func (m *sourceMock) Availability(ctx context.Context, eventID int64) (*domain.EventCounts, error) {
	args := m.Called(ctx, eventID)
	if ec, ok := args.Get(0).(*domain.EventCounts); ok {
		return ec, args.Error(1)
	}
	return nil, args.Error(1)
}

type feedFunc func(ctx context.Context, handler func(ctx context.Context, msg redisrepo.EventChanged)) error

func (f feedFunc) Subscribe(ctx context.Context, handler func(ctx context.Context, msg redisrepo.EventChanged)) error {
	return f(ctx, handler)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubNotifyDeliversToEventSubscribers(t *testing.T) {
	src := &sourceMock{}
	src.On("Availability", mock.Anything, int64(7)).Return(&domain.EventCounts{EventID: 7, Available: 12}, nil).Once()

	h := NewHub(src, discardLogger())
	a, closeA := h.Subscribe(7)
	defer closeA()
	b, closeB := h.Subscribe(7)
	defer closeB()
	other, closeOther := h.Subscribe(8)
	defer closeOther()

	h.Notify(context.Background(), 7)

	for _, sub := range []*Subscription{a, b} {
		select {
		case got := <-sub.C():
			assert.Equal(t, int64(12), got.Available)
		default:
			t.Fatal("expected a snapshot")
		}
	}

	select {
	case <-other.C():
		t.Fatal("subscriber of another event got a snapshot")
	default:
	}

	src.AssertExpectations(t)
}

func TestHubNotifyWithoutSubscribersSkipsLoad(t *testing.T) {
	src := &sourceMock{}
	h := NewHub(src, discardLogger())

	h.Notify(context.Background(), 3)

	src.AssertNotCalled(t, "Availability", mock.Anything, mock.Anything)
}

func TestHubSlowSubscriberKeepsLatest(t *testing.T) {
	src := &sourceMock{}
	for i := 1; i <= subscriberBuffer+3; i++ {
		src.On("Availability", mock.Anything, int64(1)).Return(&domain.EventCounts{EventID: 1, Sold: int64(i)}, nil).Once()
	}

	h := NewHub(src, discardLogger())
	sub, done := h.Subscribe(1)
	defer done()

	for i := 0; i < subscriberBuffer+3; i++ {
		h.Notify(context.Background(), 1)
	}

	var last domain.EventCounts
	n := 0
	for len(sub.C()) > 0 {
		last = <-sub.C()
		n++
	}
	assert.Equal(t, subscriberBuffer, n)
	assert.Equal(t, int64(subscriberBuffer+3), last.Sold)
}

func TestHubUnsubscribe(t *testing.T) {
	h := NewHub(&sourceMock{}, discardLogger())

	_, done := h.Subscribe(5)
	require.Equal(t, 1, h.Subscribers(5))

	done()
	done()
	assert.Equal(t, 0, h.Subscribers(5))
}

func TestHubRunForwardsFeed(t *testing.T) {
	src := &sourceMock{}
	src.On("Availability", mock.Anything, int64(9)).Return(&domain.EventCounts{EventID: 9}, nil)

	h := NewHub(src, discardLogger())
	sub, done := h.Subscribe(9)
	defer done()

	ctx, cancel := context.WithCancel(context.Background())
	feed := feedFunc(func(ctx context.Context, handler func(context.Context, redisrepo.EventChanged)) error {
		handler(ctx, redisrepo.EventChanged{Type: "event_changed", EventID: 9})
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})

	require.NoError(t, h.Run(ctx, feed))

	select {
	case got := <-sub.C():
		assert.Equal(t, int64(9), got.EventID)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestHubRunReturnsFeedError(t *testing.T) {
	h := NewHub(&sourceMock{}, discardLogger())
	boom := errors.New("redis down")

	err := h.Run(context.Background(), feedFunc(func(context.Context, func(context.Context, redisrepo.EventChanged)) error {
		return boom
	}))
	assert.ErrorIs(t, err, boom)
}
