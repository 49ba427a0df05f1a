package booking

import "errors"

var (
	// ErrSlotUnavailable: the slot is not in a lockable state, or a late
	// payment callback arrived after the lock was reclaimed.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrSpecialtyNotFound: bad reference data on a lock request.
	ErrSpecialtyNotFound = errors.New("specialty not found")
	// ErrPendingBookingNotFound: stale or invalid ledger id.
	ErrPendingBookingNotFound = errors.New("pending booking not found")
	// ErrSlotNotFound: a ledger row references a missing slot. Referential
	// corruption; callers log at error level and answer 5xx.
	ErrSlotNotFound = errors.New("time slot not found")

	ErrValidation = errors.New("validation error")
)
