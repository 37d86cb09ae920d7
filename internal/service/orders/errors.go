package orders

import "errors"

var (
	ErrHoldNotFound       = errors.New("hold not found")
	ErrHoldExpired        = errors.New("hold is expired")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderNotCancelable = errors.New("order cannot be cancelled")
	ErrOrderCheckedIn     = errors.New("order has checked-in tickets")
)
