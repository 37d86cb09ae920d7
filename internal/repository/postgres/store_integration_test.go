package postgresrepo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/kirinyoku/eventhub/internal/postgres"
	"github.com/kirinyoku/eventhub/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()

	pool, err := postgres.New(ctx, postgres.Config{DSN: dsn, MaxConns: 16})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool, slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err = pool.Exec(ctx,
		`TRUNCATE profiles, security_activity, saved_payment_methods, organizers, venues, categories,
		          events, ticket_types, holds, hold_items, orders, order_items, tickets, saved_events,
		          content_pages, vanity_urls, site_settings, ad_zones, ads, event_daily_stats
		 RESTART IDENTITY CASCADE`,
	)
	require.NoError(t, err)

	return NewStore(pool), pool
}

type fixture struct {
	userID       int64
	eventID      int64
	ticketTypeID int64
}

func seed(t *testing.T, s *Store, capacity int) fixture {
	t.Helper()
	ctx := context.Background()

	userID, err := s.Profiles().CreateProfile(ctx, domain.Profile{
		Email:        "buyer@example.com",
		Role:         domain.RoleUser,
		ReferralCode: "REF00001",
	}, []byte("hash"))
	require.NoError(t, err)

	orgID, err := s.Catalog().CreateOrganizer(ctx, domain.Organizer{Name: "Org", Slug: "org"})
	require.NoError(t, err)

	venueID, err := s.Catalog().CreateVenue(ctx, domain.Venue{Name: "Hall", City: "Kyiv", Capacity: 500})
	require.NoError(t, err)

	start := time.Now().Add(48 * time.Hour)
	eventID, err := s.Catalog().CreateEvent(ctx, domain.Event{
		OrganizerID: orgID,
		VenueID:     venueID,
		Title:       "Show",
		Slug:        "show",
		Starts:      start,
		Ends:        start.Add(3 * time.Hour),
		Status:      domain.StatusPublished,
	})
	require.NoError(t, err)

	ttID, err := s.Catalog().CreateTicketType(ctx, domain.TicketType{
		EventID:     eventID,
		Name:        "GA",
		PriceCents:  2500,
		Capacity:    capacity,
		MaxPerOrder: 4,
		Status:      domain.TicketTypeActive,
	})
	require.NoError(t, err)

	return fixture{userID: userID, eventID: eventID, ticketTypeID: ttID}
}

func newHold(f fixture, qty int, ttl time.Duration) domain.Hold {
	return domain.Hold{
		ID:        uuid.New(),
		EventID:   f.eventID,
		UserID:    f.userID,
		Items:     []domain.HoldItem{{TicketTypeID: f.ticketTypeID, Quantity: qty}},
		ExpiresAt: time.Now().Add(ttl),
	}
}

func TestCreateHoldNeverOversells(t *testing.T) {
	s, _ := newTestStore(t)
	f := seed(t, s, 10)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		held     int
		failures []error
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Inventory().CreateHold(ctx, newHold(f, 1, time.Minute))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			held++
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, held)
	assert.Len(t, failures, 10)
	for _, err := range failures {
		assert.ErrorIs(t, err, repository.ErrTicketsUnavailable)
	}

	types, err := s.Catalog().ListTicketTypes(ctx, f.eventID)
	require.NoError(t, err)
	require.Len(t, types, 1)

	assert.LessOrEqual(t, held, 10)
	assert.Equal(t, held, types[0].Held)
	assert.LessOrEqual(t, types[0].Sold+types[0].Held, types[0].Capacity)
}

func TestCreateHoldRejectsOverMaxPerOrder(t *testing.T) {
	s, _ := newTestStore(t)
	f := seed(t, s, 10)

	err := s.Inventory().CreateHold(context.Background(), newHold(f, 5, time.Minute))
	assert.ErrorIs(t, err, repository.ErrTicketsUnavailable)
}

func TestExpireHoldsReleasesUnits(t *testing.T) {
	s, pool := newTestStore(t)
	f := seed(t, s, 10)
	ctx := context.Background()

	h := newHold(f, 3, time.Minute)
	require.NoError(t, s.Inventory().CreateHold(ctx, h))

	_, err := pool.Exec(ctx, `UPDATE holds SET expires_at = now() - interval '1 second' WHERE id = $1`, h.ID)
	require.NoError(t, err)

	holds, units, events, err := s.Inventory().ExpireHolds(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, holds)
	assert.Equal(t, int64(3), units)
	assert.Equal(t, []int64{f.eventID}, events)

	types, err := s.Catalog().ListTicketTypes(ctx, f.eventID)
	require.NoError(t, err)
	assert.Equal(t, 0, types[0].Held)

	_, err = s.Inventory().GetHold(ctx, h.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCheckoutCancelAndCheckIn(t *testing.T) {
	s, _ := newTestStore(t)
	f := seed(t, s, 10)
	ctx := context.Background()

	h := newHold(f, 2, time.Minute)
	require.NoError(t, s.Inventory().CreateHold(ctx, h))

	items, err := s.Orders().PricedItems(ctx, h.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2500), items[0].UnitPriceCents)

	order := domain.Order{
		ID:            uuid.New(),
		EventID:       f.eventID,
		UserID:        f.userID,
		Status:        domain.OrderConfirmed,
		SubtotalCents: 5000,
		FeeCents:      100,
		TotalCents:    5100,
		Currency:      "USD",
	}
	tickets := []domain.NewTicket{
		{ID: uuid.New(), TicketTypeID: f.ticketTypeID, Code: "code-1"},
		{ID: uuid.New(), TicketTypeID: f.ticketTypeID, Code: "code-2"},
	}

	err = s.RunTx(ctx, nil, func(ctx context.Context, tx DB) error {
		if _, err := s.Inventory().With(tx).LockHold(ctx, h.ID); err != nil {
			return err
		}
		return s.Orders().With(tx).CreateFromHold(ctx, h.ID, order, items, tickets)
	})
	require.NoError(t, err)

	types, err := s.Catalog().ListTicketTypes(ctx, f.eventID)
	require.NoError(t, err)
	assert.Equal(t, 0, types[0].Held)
	assert.Equal(t, 2, types[0].Sold)

	got, err := s.Orders().GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, got.Tickets, 2)
	assert.Equal(t, int64(5100), got.Order.TotalCents)

	_, ok, err := s.Tickets().CheckIn(ctx, tickets[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = s.Tickets().CheckIn(ctx, tickets[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.Orders().CancelOrder(ctx, order.ID)
	assert.True(t, errors.Is(err, repository.ErrOrderCheckedIn))
}

func TestPaymentMethodsKeepOneDefault(t *testing.T) {
	s, _ := newTestStore(t)
	f := seed(t, s, 1)
	ctx := context.Background()
	repo := s.Profiles()

	first, err := repo.AddPaymentMethod(ctx, domain.PaymentMethod{UserID: f.userID, Brand: "visa", Last4: "4242", ExpMonth: 1, ExpYear: 2099})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := repo.AddPaymentMethod(ctx, domain.PaymentMethod{UserID: f.userID, Brand: "mc", Last4: "4444", ExpMonth: 2, ExpYear: 2099})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	require.NoError(t, repo.SetDefaultPaymentMethod(ctx, f.userID, second.ID))
	require.NoError(t, repo.DeletePaymentMethod(ctx, f.userID, second.ID))

	methods, err := repo.ListPaymentMethods(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.True(t, methods[0].IsDefault)
}

func TestSavedEvents(t *testing.T) {
	s, _ := newTestStore(t)
	f := seed(t, s, 1)
	ctx := context.Background()
	repo := s.Favorites()

	require.NoError(t, repo.Save(ctx, f.userID, f.eventID))
	require.NoError(t, repo.Save(ctx, f.userID, f.eventID))

	saved, err := repo.List(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, f.eventID, saved[0].Event.ID)

	err = repo.Save(ctx, f.userID, f.eventID+1000)
	assert.ErrorIs(t, err, repository.ErrReferenceMissing)

	require.NoError(t, repo.Unsave(ctx, f.userID, f.eventID))
	saved, err = repo.List(ctx, f.userID)
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestListEventsStatusFilter(t *testing.T) {
	s, _ := newTestStore(t)
	f := seed(t, s, 1)
	ctx := context.Background()

	published, err := s.Catalog().GetEvent(ctx, f.eventID)
	require.NoError(t, err)

	draft := *published
	draft.Title = "Draft show"
	draft.Slug = "draft-show"
	draft.Status = domain.StatusDraft
	draftID, err := s.Catalog().CreateEvent(ctx, draft)
	require.NoError(t, err)

	ids := func(status domain.PublishStatus) []int64 {
		events, err := s.Catalog().ListEvents(ctx, domain.EventFilter{Status: status, Limit: 10})
		require.NoError(t, err)
		var out []int64
		for _, e := range events {
			out = append(out, e.ID)
		}
		return out
	}

	assert.ElementsMatch(t, []int64{f.eventID, draftID}, ids(""))
	assert.Equal(t, []int64{draftID}, ids(domain.StatusDraft))
	assert.Equal(t, []int64{f.eventID}, ids(domain.StatusPublished))
}
