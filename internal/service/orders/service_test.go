package orders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/notify"
	"github.com/kirinyoku/eventhub/internal/ticketcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	return m.Called(ctx, topic, key, payload).Error(0)
}

func (m *mockPublisher) Close() error { return nil }

func newService(t *testing.T, pub notify.Publisher) *Service {
	t.Helper()
	signer, err := ticketcode.NewSigner(nil)
	require.NoError(t, err)
	return New(nil, nil, nil, signer, pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestMintTicketsOnePerUnit(t *testing.T) {
	s := newService(t, nil)
	o := domain.Order{ID: uuid.New(), EventID: 9, UserID: 3, CreatedAt: time.Now()}

	minted, err := s.mintTickets(o, []domain.PricedItem{
		{TicketTypeID: 1, Quantity: 2},
		{TicketTypeID: 2, Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, minted, 3)

	seen := map[uuid.UUID]bool{}
	for _, nt := range minted {
		assert.False(t, seen[nt.ID])
		seen[nt.ID] = true

		claims, err := s.signer.Verify(nt.Code)
		require.NoError(t, err)
		assert.Equal(t, nt.ID, claims.TicketID)
		assert.Equal(t, int64(9), claims.EventID)
		assert.Equal(t, nt.TicketTypeID, claims.TicketTypeID)
	}
}

func TestAssemble(t *testing.T) {
	o := domain.Order{ID: uuid.New(), EventID: 1, UserID: 7}
	items := []domain.PricedItem{{TicketTypeID: 4, Name: "GA", Quantity: 1, UnitPriceCents: 2500}}
	minted := []domain.NewTicket{{ID: uuid.New(), TicketTypeID: 4, Code: "c"}}

	got := assemble(o, items, minted)

	require.Len(t, got.Items, 1)
	assert.Equal(t, "GA", got.Items[0].Name)
	require.Len(t, got.Tickets, 1)
	assert.Equal(t, int64(7), got.Tickets[0].HolderID)
	assert.Equal(t, o.ID, got.Tickets[0].OrderID)
	assert.Equal(t, domain.TicketValid, got.Tickets[0].Status)
}

func TestPublishHookSendsOrderEvent(t *testing.T) {
	pub := &mockPublisher{}
	s := newService(t, pub)

	o := domain.Order{ID: uuid.New(), EventID: 2, UserID: 5, TotalCents: 1200, Currency: "USD"}
	ev := orderEvent(o, 2, time.Now())

	pub.On("Publish", mock.Anything, notify.TopicOrderConfirmed, o.ID.String(), ev).Return(nil)

	s.publish(notify.TopicOrderConfirmed, ev)(context.Background())

	pub.AssertExpectations(t)
}

func TestPublishHookLogsFailure(t *testing.T) {
	pub := &mockPublisher{}
	s := newService(t, pub)

	ev := orderEvent(domain.Order{ID: uuid.New()}, 0, time.Now())
	pub.On("Publish", mock.Anything, notify.TopicOrderCancelled, mock.Anything, mock.Anything).
		Return(errors.New("broker unavailable"))

	assert.NotPanics(t, func() {
		s.publish(notify.TopicOrderCancelled, ev)(context.Background())
	})
	pub.AssertExpectations(t)
}

func TestListEventOrdersRejectsUnknownStatus(t *testing.T) {
	s := newService(t, nil)

	_, err := s.ListEventOrders(context.Background(), 1, "refunded", 0, 0)

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}
