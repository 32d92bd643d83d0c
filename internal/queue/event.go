// Package queue defines message payloads exchanged over the message broker.
package queue

// Event names published on the inventory.events queue.
const (
	TypeWaitlistOffered = "waitlist.offered"
	TypeHoldExpired     = "hold.expired"
	TypeBoardingDenied  = "boarding.denied"
)

// Event is the envelope published for every inventory domain event.  It
// carries enough information for downstream consumers to notify, log or
// trigger analytics without querying the primary database.  Fields that do
// not apply to a given event type are omitted from the JSON.
type Event struct {
	ID                string `json:"id"`
	Type              string `json:"type"`
	OccurredAt        string `json:"occurred_at"`
	FlightID          uint64 `json:"flight_id"`
	CabinClass        string `json:"cabin_class,omitempty"`
	UserID            uint64 `json:"user_id,omitempty"`
	Seats             int    `json:"seats,omitempty"`
	WaitlistID        uint64 `json:"waitlist_id,omitempty"`
	HoldToken         string `json:"hold_token,omitempty"`
	BookingID         uint64 `json:"booking_id,omitempty"`
	CompensationCents int64  `json:"compensation_cents,omitempty"`
	OfferExpiresAt    string `json:"offer_expires_at,omitempty"`
	NotifyEmail       bool   `json:"notify_email,omitempty"`
	NotifySMS         bool   `json:"notify_sms,omitempty"`
}
