// Package pricing computes order totals in integer cents.
package pricing

import (
	"errors"

	"github.com/kirinyoku/eventhub/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrNoItems = errors.New("pricing: no items")

var hundred = decimal.NewFromInt(100)

type Config struct {
	// FeePercent is the service fee as a percentage of the subtotal.
	FeePercent decimal.Decimal
	// FixedFeeCents is charged once per paid ticket.
	FixedFeeCents int64
	Currency      string
}

type Quote struct {
	SubtotalCents int64
	FeeCents      int64
	TotalCents    int64
	Currency      string
}

type Calculator struct {
	cfg Config
}

func New(cfg Config) *Calculator {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &Calculator{cfg: cfg}
}

// Quote prices items. The percentage fee is rounded half-up to whole
// cents; free tickets carry no fixed fee, so an all-free order is free.
func (c *Calculator) Quote(items []domain.PricedItem) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, ErrNoItems
	}

	subtotal := decimal.Zero
	var paidTickets int64

	for _, it := range items {
		line := decimal.NewFromInt(it.UnitPriceCents).Mul(decimal.NewFromInt(int64(it.Quantity)))
		subtotal = subtotal.Add(line)
		if it.UnitPriceCents > 0 {
			paidTickets += int64(it.Quantity)
		}
	}

	fee := decimal.Zero
	if subtotal.IsPositive() {
		fee = subtotal.Mul(c.cfg.FeePercent).Div(hundred).Round(0).
			Add(decimal.NewFromInt(c.cfg.FixedFeeCents).Mul(decimal.NewFromInt(paidTickets)))
	}

	return Quote{
		SubtotalCents: subtotal.IntPart(),
		FeeCents:      fee.IntPart(),
		TotalCents:    subtotal.Add(fee).IntPart(),
		Currency:      c.cfg.Currency,
	}, nil
}

// Format renders cents as a decimal amount, e.g. 1999 -> "19.99".
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
