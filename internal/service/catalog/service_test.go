package catalog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/kirinyoku/eventhub/internal/domain"
	redisrepo "github.com/kirinyoku/eventhub/internal/repository/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedService(t *testing.T) (*Service, redismock.ClientMock) {
	t.Helper()
	db, mock := redismock.NewClientMock()
	return New(nil, redisrepo.NewCache(db), nil, Config{}), mock
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestGetEventHidesDraftsFromPublic(t *testing.T) {
	s, mock := newCachedService(t)
	draft := domain.Event{ID: 4, Title: "Soon", Status: domain.StatusDraft}

	mock.ExpectGet(redisrepo.KeyEvent(4)).SetVal(mustJSON(t, draft))
	_, err := s.GetEvent(context.Background(), 4, false)
	assert.ErrorIs(t, err, ErrEventNotFound)

	mock.ExpectGet(redisrepo.KeyEvent(4)).SetVal(mustJSON(t, draft))
	got, err := s.GetEvent(context.Background(), 4, true)
	require.NoError(t, err)
	assert.Equal(t, "Soon", got.Title)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityServedFromCache(t *testing.T) {
	s, mock := newCachedService(t)
	ev := domain.Event{ID: 2, Status: domain.StatusPublished}
	counts := domain.EventCounts{EventID: 2, Available: 40, Total: 50, Sold: 10}

	mock.ExpectGet(redisrepo.KeyEvent(2)).SetVal(mustJSON(t, ev))
	mock.ExpectGet(redisrepo.KeyEventAvailability(2)).SetVal(mustJSON(t, counts))

	got, err := s.Availability(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(40), got.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTicketTypesFiltersHiddenForPublic(t *testing.T) {
	s, mock := newCachedService(t)
	ev := domain.Event{ID: 3, Status: domain.StatusPublished}
	types := []domain.TicketType{
		{ID: 1, EventID: 3, Name: "GA", Status: domain.TicketTypeActive},
		{ID: 2, EventID: 3, Name: "Comp", Status: domain.TicketTypeHidden},
	}

	mock.ExpectGet(redisrepo.KeyEvent(3)).SetVal(mustJSON(t, ev))
	mock.ExpectGet(redisrepo.KeyEventTicketTypes(3)).SetVal(mustJSON(t, types))

	got, err := s.ListTicketTypes(context.Background(), 3, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "GA", got[0].Name)

	mock.ExpectGet(redisrepo.KeyEvent(3)).SetVal(mustJSON(t, ev))
	mock.ExpectGet(redisrepo.KeyEventTicketTypes(3)).SetVal(mustJSON(t, types))

	got, err = s.ListTicketTypes(context.Background(), 3, true)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestValidateEvent(t *testing.T) {
	start := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)

	e := domain.Event{OrganizerID: 1, VenueID: 1, Title: " Jazz Night ", Starts: start, Ends: start.Add(2 * time.Hour)}
	require.NoError(t, validateEvent(&e))
	assert.Equal(t, "Jazz Night", e.Title)
	assert.Equal(t, "jazz-night", e.Slug)

	bad := []domain.Event{
		{OrganizerID: 1, VenueID: 1, Starts: start, Ends: start.Add(time.Hour)},
		{VenueID: 1, Title: "x", Starts: start, Ends: start.Add(time.Hour)},
		{OrganizerID: 1, Title: "x", Starts: start, Ends: start.Add(time.Hour)},
		{OrganizerID: 1, VenueID: 1, Title: "x", Starts: start, Ends: start},
		{OrganizerID: 1, VenueID: 1, Title: "x"},
		{OrganizerID: 1, VenueID: 1, Title: "!!!", Starts: start, Ends: start.Add(time.Hour)},
	}
	for i, e := range bad {
		var ve *domain.ValidationError
		assert.ErrorAs(t, validateEvent(&e), &ve, "case %d", i)
	}
}

func TestValidateTicketTypeDefaults(t *testing.T) {
	tt := domain.TicketType{Name: "GA", PriceCents: 1500, Capacity: 100}
	require.NoError(t, validateTicketType(&tt))
	assert.Equal(t, 10, tt.MaxPerOrder)
	assert.Equal(t, domain.TicketTypeActive, tt.Status)

	start := time.Now()
	end := start.Add(-time.Hour)
	for _, bad := range []domain.TicketType{
		{Name: "", Capacity: 1},
		{Name: "GA", PriceCents: -1},
		{Name: "GA", Capacity: -1},
		{Name: "GA", MaxPerOrder: -2},
		{Name: "GA", SalesStart: &start, SalesEnd: &end},
		{Name: "GA", Status: "sold_out"},
	} {
		assert.Error(t, validateTicketType(&bad))
	}
}

func TestCreateEventRejectsInvalidInputWithoutStore(t *testing.T) {
	s := New(nil, nil, nil, Config{})

	_, err := s.CreateEvent(context.Background(), domain.Event{Title: "x"})

	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestListEventsValidatesFilter(t *testing.T) {
	s := New(nil, nil, nil, Config{})

	_, err := s.ListEvents(context.Background(), domain.EventFilter{Status: "live"}, true)
	assert.Error(t, err)

	from := time.Now()
	to := from.Add(-time.Hour)
	_, err = s.ListEvents(context.Background(), domain.EventFilter{From: &from, To: &to}, false)
	assert.Error(t, err)
}

func TestSetEventStatusRejectsUnknownStatus(t *testing.T) {
	s := New(nil, nil, nil, Config{})

	err := s.SetEventStatus(context.Background(), 1, "live")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestLimitDefaults(t *testing.T) {
	s := New(nil, nil, nil, Config{})
	assert.Equal(t, 20, s.limit(0))
	assert.Equal(t, 100, s.limit(1000))
}
