package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type HoldItem struct {
	TicketTypeID int64 `json:"ticket_type_id"`
	Quantity     int   `json:"quantity"`
}

type Hold struct {
	ID        uuid.UUID  `json:"id"`
	EventID   int64      `json:"event_id"`
	UserID    int64      `json:"user_id"`
	Items     []HoldItem `json:"items"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// MergeHoldItems sums quantities per ticket type and orders the result by
// ticket type ID, so that concurrent holds touch rows in the same order.
func MergeHoldItems(items []HoldItem) []HoldItem {
	sums := make(map[int64]int, len(items))
	for _, it := range items {
		sums[it.TicketTypeID] += it.Quantity
	}

	out := make([]HoldItem, 0, len(sums))
	for id, q := range sums {
		out = append(out, HoldItem{TicketTypeID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketTypeID < out[j].TicketTypeID })

	return out
}

// TotalQuantity returns the number of units the hold reserves.
func (h Hold) TotalQuantity() int {
	n := 0
	for _, it := range h.Items {
		n += it.Quantity
	}
	return n
}
