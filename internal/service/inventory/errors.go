package inventory

import "errors"

var (
	ErrEventNotFound      = errors.New("event not found")
	ErrTicketsUnavailable = errors.New("some tickets are unavailable")
	ErrHoldNotFound       = errors.New("hold not found")
	ErrHoldExpired        = errors.New("hold is expired")
)
