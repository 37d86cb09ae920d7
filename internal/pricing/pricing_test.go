package pricing

import (
	"testing"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	cases := []struct {
		name    string
		percent string
		fixed   int64
		items   []domain.PricedItem
		want    Quote
	}{
		{
			name:    "no fees",
			percent: "0",
			items:   []domain.PricedItem{{UnitPriceCents: 2500, Quantity: 2}},
			want:    Quote{SubtotalCents: 5000, TotalCents: 5000, Currency: "USD"},
		},
		{
			name:    "percent rounds half up",
			percent: "2.5",
			items:   []domain.PricedItem{{UnitPriceCents: 1, Quantity: 1}, {UnitPriceCents: 19, Quantity: 1}},
			// 20 * 2.5% = 0.5 -> 1
			want: Quote{SubtotalCents: 20, FeeCents: 1, TotalCents: 21, Currency: "USD"},
		},
		{
			name:    "fixed fee per paid ticket",
			percent: "10",
			fixed:   50,
			items: []domain.PricedItem{
				{UnitPriceCents: 1000, Quantity: 3},
				{UnitPriceCents: 0, Quantity: 2},
			},
			want: Quote{SubtotalCents: 3000, FeeCents: 450, TotalCents: 3450, Currency: "USD"},
		},
		{
			name:    "free order has no fee",
			percent: "10",
			fixed:   50,
			items:   []domain.PricedItem{{UnitPriceCents: 0, Quantity: 4}},
			want:    Quote{Currency: "USD"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New(Config{FeePercent: decimal.RequireFromString(tc.percent), FixedFeeCents: tc.fixed})
			got, err := c.Quote(tc.items)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got.SubtotalCents+got.FeeCents, got.TotalCents)
		})
	}
}

func TestQuoteRejectsEmpty(t *testing.T) {
	_, err := New(Config{}).Quote(nil)
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "19.99", Format(1999))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "120.00", Format(12000))
}
