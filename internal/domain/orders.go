package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID            uuid.UUID   `json:"id"`
	EventID       int64       `json:"event_id"`
	UserID        int64       `json:"user_id"`
	Status        OrderStatus `json:"status"`
	SubtotalCents int64       `json:"subtotal_cents"`
	FeeCents      int64       `json:"fee_cents"`
	TotalCents    int64       `json:"total_cents"`
	Currency      string      `json:"currency"`
	CreatedAt     time.Time   `json:"created_at"`
	CancelledAt   *time.Time  `json:"cancelled_at,omitempty"`
}

type OrderItem struct {
	TicketTypeID   int64  `json:"ticket_type_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

type TicketStatus string

const (
	TicketValid TicketStatus = "valid"
	TicketVoid  TicketStatus = "void"
)

type Ticket struct {
	ID           uuid.UUID    `json:"id"`
	OrderID      uuid.UUID    `json:"order_id"`
	EventID      int64        `json:"event_id"`
	TicketTypeID int64        `json:"ticket_type_id"`
	HolderID     int64        `json:"holder_id"`
	Code         string       `json:"code"`
	Status       TicketStatus `json:"status"`
	CheckedInAt  *time.Time   `json:"checked_in_at,omitempty"`
	Created      time.Time    `json:"created_at"`
}

type OrderWithTickets struct {
	Order   Order       `json:"order"`
	Items   []OrderItem `json:"items"`
	Tickets []Ticket    `json:"tickets"`
}

// PricedItem is a hold item resolved against its ticket type at checkout.
type PricedItem struct {
	TicketTypeID   int64
	Name           string
	Quantity       int
	UnitPriceCents int64
}

// NewTicket is a ticket about to be inserted at checkout.
type NewTicket struct {
	ID           uuid.UUID
	TicketTypeID int64
	Code         string
}

type CheckInResult string

const (
	CheckInAdmitted         CheckInResult = "admitted"
	CheckInValid            CheckInResult = "valid"
	CheckInAlreadyCheckedIn CheckInResult = "already_checked_in"
	CheckInVoid             CheckInResult = "void"
	CheckInWrongEvent       CheckInResult = "wrong_event"
	CheckInInvalid          CheckInResult = "invalid"
)

type CheckIn struct {
	Result      CheckInResult `json:"result"`
	TicketID    *uuid.UUID    `json:"ticket_id,omitempty"`
	EventID     int64         `json:"event_id,omitempty"`
	CheckedInAt *time.Time    `json:"checked_in_at,omitempty"`
}
