// Package service implements the allocation façade: the seat ledger and
// hold manager, the waitlist queue, the overbooking advisor and the
// denied-boarding resolver.  Handlers call into this package and nothing
// else mutates seat counts.
package service

import (
	"context"
	"errors"

	"github.com/kafaat/airline-seat-inventory/internal/queue"
)

// ErrSeatCount is returned when a requested seat count is outside 1..9.
var ErrSeatCount = errors.New("seat count must be between 1 and 9")

// ErrFlightClosed is returned when the flight is departed or cancelled and
// its inventory is no longer sellable.
var ErrFlightClosed = errors.New("flight is closed for sale")

// ErrSeatsAvailable is returned when a user tries to join the waitlist for
// a cabin that can still seat their party; they should book normally.
var ErrSeatsAvailable = errors.New("seats are available; book instead of waitlisting")

// ErrHoldExpired is returned when a hold is converted after its deadline,
// even if the expiry sweep has not reclaimed it yet.
var ErrHoldExpired = errors.New("hold expired")

// EventPublisher abstracts the broker so services can emit domain events
// without depending on RabbitMQ directly.  Implementations must be safe
// for concurrent use.  A nil publisher disables events.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}
