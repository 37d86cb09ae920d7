package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to PublishStatus
		ok       bool
	}{
		{StatusDraft, StatusPublished, true},
		{StatusDraft, StatusArchived, true},
		{StatusPublished, StatusArchived, true},
		{StatusArchived, StatusDraft, true},
		{StatusPublished, StatusDraft, false},
		{StatusArchived, StatusPublished, false},
		{StatusDraft, StatusDraft, false},
		{PublishStatus("bogus"), StatusDraft, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}

	assert.True(t, StatusArchived.Valid())
	assert.False(t, PublishStatus("live").Valid())
}

func TestMergeHoldItems(t *testing.T) {
	got := MergeHoldItems([]HoldItem{
		{TicketTypeID: 9, Quantity: 1},
		{TicketTypeID: 3, Quantity: 2},
		{TicketTypeID: 9, Quantity: 4},
	})

	require.Len(t, got, 2)
	assert.Equal(t, HoldItem{TicketTypeID: 3, Quantity: 2}, got[0])
	assert.Equal(t, HoldItem{TicketTypeID: 9, Quantity: 5}, got[1])
	assert.Equal(t, 7, Hold{Items: got}.TotalQuantity())
}

func TestTicketTypeAvailability(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)

	tt := TicketType{Capacity: 100, Sold: 60, Held: 15, Status: TicketTypeActive, SalesStart: &start, SalesEnd: &end}
	assert.Equal(t, 25, tt.Available())
	assert.True(t, tt.OnSale(now))
	assert.False(t, tt.OnSale(end))
	assert.False(t, tt.OnSale(start.Add(-time.Second)))

	tt.Held = 50
	assert.Equal(t, 0, tt.Available())

	tt.Status = TicketTypeHidden
	assert.False(t, tt.OnSale(now))
}

func TestNewEventCountsSkipsHiddenTypes(t *testing.T) {
	ec := NewEventCounts(7, []TicketType{
		{ID: 1, Name: "GA", Capacity: 100, Sold: 10, Held: 5, Status: TicketTypeActive},
		{ID: 2, Name: "VIP", Capacity: 10, Sold: 10, Status: TicketTypeActive},
		{ID: 3, Name: "Comp", Capacity: 50, Status: TicketTypeHidden},
	})

	assert.Equal(t, int64(7), ec.EventID)
	require.Len(t, ec.Types, 2)
	assert.Equal(t, int64(85), ec.Available)
	assert.Equal(t, int64(5), ec.Held)
	assert.Equal(t, int64(20), ec.Sold)
	assert.Equal(t, int64(110), ec.Total)
	assert.Equal(t, 0, ec.Types[1].Available)
}

func TestPaymentMethodExpired(t *testing.T) {
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	assert.False(t, PaymentMethod{ExpMonth: 10, ExpYear: 2026}.Expired(now))
	assert.True(t, PaymentMethod{ExpMonth: 9, ExpYear: 2026}.Expired(now))
	assert.True(t, PaymentMethod{ExpMonth: 12, ExpYear: 2025}.Expired(now))
	assert.False(t, PaymentMethod{ExpMonth: 1, ExpYear: 2027}.Expired(now))
}

func TestAdRunning(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.True(t, Ad{Status: AdActive, Weight: 1}.Running(now))
	assert.False(t, Ad{Status: AdPaused, Weight: 1}.Running(now))
	assert.False(t, Ad{Status: AdActive, Weight: 0}.Running(now))
	assert.False(t, Ad{Status: AdActive, Weight: 1, StartsAt: &future}.Running(now))
	assert.False(t, Ad{Status: AdActive, Weight: 1, EndsAt: &past}.Running(now))
	assert.True(t, Ad{Status: AdActive, Weight: 1, StartsAt: &past, EndsAt: &future}.Running(now))
}

func TestRatios(t *testing.T) {
	assert.Equal(t, 0.0, ViralCoefficient(5, 0))
	assert.InDelta(t, 0.25, ViralCoefficient(25, 100), 1e-9)
	assert.Equal(t, 0.0, Conversion(3, 0))
	assert.InDelta(t, 0.1, Conversion(10, 100), 1e-9)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "jazz-night-2026", Slugify("  Jazz Night: 2026! "))
	assert.Equal(t, "café-live", Slugify("Café -- Live"))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 20, ClampLimit(0, 20, 100))
	assert.Equal(t, 20, ClampLimit(-5, 20, 100))
	assert.Equal(t, 50, ClampLimit(50, 20, 100))
	assert.Equal(t, 100, ClampLimit(500, 20, 100))
}

func TestValidationError(t *testing.T) {
	err := fmt.Errorf("op:%w", Invalid("title", "is required"))

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "title is required", ve.Error())
	assert.Equal(t, "no items", Invalid("", "no items").Error())
}
