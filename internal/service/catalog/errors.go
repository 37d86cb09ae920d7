package catalog

import "errors"

var (
	ErrEventNotFound          = errors.New("event not found")
	ErrTicketTypeNotFound     = errors.New("ticket type not found")
	ErrSlugTaken              = errors.New("slug already taken")
	ErrVenueExists            = errors.New("venue already exists")
	ErrTicketTypeExists       = errors.New("ticket type already exists")
	ErrMissingReference       = errors.New("organizer, venue or category does not exist")
	ErrInvalidTransition      = errors.New("status transition not allowed")
	ErrEventHasOrders         = errors.New("event has orders")
	ErrCapacityBelowCommitted = errors.New("capacity below sold and held tickets")
)
