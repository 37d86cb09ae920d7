package profiles

import "errors"

var (
	ErrProfileNotFound       = errors.New("profile not found")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrCardExpired           = errors.New("card is expired")
)
