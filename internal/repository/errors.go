// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrInsufficientSeats signals that a conditional inventory
// decrement found fewer seats than requested, while ErrInvalidTransition
// signals a lifecycle operation applied to a row that is no longer in
// the required state (e.g. accepting an offer that was already declined).
package repository

import "errors"

// ErrNotFound is returned when a flight, inventory row, hold or waitlist
// entry does not exist. Handlers should translate this into an HTTP 404
// response.
var ErrNotFound = errors.New("not found")

// ErrInsufficientSeats is returned when the ledger cannot satisfy a
// decrement because fewer seats remain than were requested. It is a
// retryable condition: the caller may join the waitlist instead.
// Handlers should translate this into an HTTP 409 response.
var ErrInsufficientSeats = errors.New("insufficient seats")

// ErrDuplicateWaitlist is returned when a user already has an active
// (waiting or offered) entry for the same flight and cabin. Handlers
// should translate this into an HTTP 409 response.
var ErrDuplicateWaitlist = errors.New("duplicate waitlist entry")

// ErrInvalidTransition is returned when a guarded status update matches
// no row because the row is not in a state the transition is allowed
// from. Handlers should translate this into an HTTP 400 response with
// a specific reason.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrOfferExpired is returned when an offer is accepted after its
// deadline. The entry is flipped to expired as a side effect. Handlers
// should translate this into an HTTP 410 response.
var ErrOfferExpired = errors.New("offer expired")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed due to
// conflicting state, such as an increment that would push availability
// past the sellable ceiling. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")
