package bookings

import "errors"

var (
	ErrNotFound               = errors.New("booking not found")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidStateTransition = errors.New("invalid booking state transition")
)
