package domain

import (
	"strings"
	"time"
	"unicode"
)

type PublishStatus string

const (
	StatusDraft     PublishStatus = "draft"
	StatusPublished PublishStatus = "published"
	StatusArchived  PublishStatus = "archived"
)

// publishTransitions lists the allowed moves for events and content pages.
var publishTransitions = map[PublishStatus][]PublishStatus{
	StatusDraft:     {StatusPublished, StatusArchived},
	StatusPublished: {StatusArchived},
	StatusArchived:  {StatusDraft},
}

func (s PublishStatus) Valid() bool {
	_, ok := publishTransitions[s]
	return ok
}

// CanTransition reports whether a record in status s may move to next.
func (s PublishStatus) CanTransition(next PublishStatus) bool {
	for _, allowed := range publishTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type CategoryKind string

const (
	CategoryEvent   CategoryKind = "event"
	CategoryContent CategoryKind = "content"
)

type Organizer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Email     string    `json:"email"`
	OwnerID   *int64    `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Venue struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Capacity int    `json:"capacity"`
}

type Category struct {
	ID   int64        `json:"id"`
	Name string       `json:"name"`
	Slug string       `json:"slug"`
	Kind CategoryKind `json:"kind"`
}

type Event struct {
	ID          int64         `json:"id"`
	OrganizerID int64         `json:"organizer_id"`
	VenueID     int64         `json:"venue_id"`
	CategoryID  *int64        `json:"category_id,omitempty"`
	Title       string        `json:"title"`
	Slug        string        `json:"slug"`
	Description string        `json:"description"`
	ImageKey    string        `json:"image_key,omitempty"`
	Starts      time.Time     `json:"starts_at"`
	Ends        time.Time     `json:"ends_at"`
	Status      PublishStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type EventFilter struct {
	CategorySlug string
	City         string
	Query        string
	From         *time.Time
	To           *time.Time
	// Status restricts the listing. Empty means any status.
	Status PublishStatus
	Limit  int
	Offset int
}

type TicketTypeStatus string

const (
	TicketTypeActive TicketTypeStatus = "active"
	TicketTypeHidden TicketTypeStatus = "hidden"
)

type TicketType struct {
	ID          int64            `json:"id"`
	EventID     int64            `json:"event_id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	PriceCents  int64            `json:"price_cents"`
	Capacity    int              `json:"capacity"`
	Sold        int              `json:"sold"`
	Held        int              `json:"held"`
	MaxPerOrder int              `json:"max_per_order"`
	SalesStart  *time.Time       `json:"sales_start,omitempty"`
	SalesEnd    *time.Time       `json:"sales_end,omitempty"`
	Status      TicketTypeStatus `json:"status"`
}

// Available is the number of units that can still be held.
func (t TicketType) Available() int {
	n := t.Capacity - t.Sold - t.Held
	if n < 0 {
		return 0
	}
	return n
}

// OnSale reports whether the sales window is open at now.
func (t TicketType) OnSale(now time.Time) bool {
	if t.Status != TicketTypeActive {
		return false
	}
	if t.SalesStart != nil && now.Before(*t.SalesStart) {
		return false
	}
	if t.SalesEnd != nil && !now.Before(*t.SalesEnd) {
		return false
	}
	return true
}

type TicketTypeAvailability struct {
	TicketTypeID int64  `json:"ticket_type_id"`
	Name         string `json:"name"`
	PriceCents   int64  `json:"price_cents"`
	Available    int    `json:"available"`
	Held         int    `json:"held"`
	Sold         int    `json:"sold"`
	Total        int    `json:"total"`
}

type EventCounts struct {
	EventID   int64                    `json:"event_id"`
	Available int64                    `json:"available"`
	Held      int64                    `json:"held"`
	Sold      int64                    `json:"sold"`
	Total     int64                    `json:"total"`
	Types     []TicketTypeAvailability `json:"types"`
}

// NewEventCounts folds ticket types into per-type and total availability.
func NewEventCounts(eventID int64, types []TicketType) EventCounts {
	ec := EventCounts{EventID: eventID, Types: make([]TicketTypeAvailability, 0, len(types))}
	for _, t := range types {
		if t.Status != TicketTypeActive {
			continue
		}
		a := TicketTypeAvailability{
			TicketTypeID: t.ID,
			Name:         t.Name,
			PriceCents:   t.PriceCents,
			Available:    t.Available(),
			Held:         t.Held,
			Sold:         t.Sold,
			Total:        t.Capacity,
		}
		ec.Types = append(ec.Types, a)
		ec.Available += int64(a.Available)
		ec.Held += int64(a.Held)
		ec.Sold += int64(a.Sold)
		ec.Total += int64(a.Total)
	}
	return ec
}

// Slugify lowercases s and joins its letters and digits with single
// hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
		default:
			dash = true
		}
	}
	return b.String()
}

// ClampLimit applies the default page size to non-positive limits and caps
// the rest at max.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
