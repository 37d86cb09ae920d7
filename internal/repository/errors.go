package repository

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrReferenceMissing   = errors.New("referenced row does not exist")
	ErrCheckViolation     = errors.New("check constraint violated")
	ErrTicketsUnavailable = errors.New("some tickets unavailable")
	ErrHoldExpired        = errors.New("hold expired")
	ErrNothingToConfirm   = errors.New("nothing to confirm")
	ErrOrderNotCancelable = errors.New("order cannot be cancelled")
	ErrOrderCheckedIn     = errors.New("order has checked-in tickets")
	ErrContention         = errors.New("too many concurrent updates, retry later")
)
