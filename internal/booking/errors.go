package booking

import "errors"

var (
	// ErrShowNotFound - the show id does not resolve to a stored show.
	ErrShowNotFound = errors.New("show not found")

	// ErrBookingNotFound - the booking id does not resolve to a stored
	// booking. The webhook treats this as "possibly expired", not a fault.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrSeatsUnavailable - at least one requested seat is already held.
	// Covers both the pre-check and a race lost between check and commit.
	ErrSeatsUnavailable = errors.New("selected seats are not available")
)
