package model

import "time"

// Waitlist entry statuses.  confirmed, expired and cancelled are terminal.
const (
	WaitlistWaiting   = "waiting"   // queued, no offer outstanding
	WaitlistOffered   = "offered"   // time-boxed offer outstanding
	WaitlistConfirmed = "confirmed" // offer accepted
	WaitlistExpired   = "expired"   // offer window passed unanswered
	WaitlistCancelled = "cancelled" // withdrawn or declined
)

// WaitlistEntry is queued demand for seats on a (flight, cabin) pair that
// was full at request time.  Priority is a monotonically increasing integer
// assigned at insertion; it is never reassigned or reused, so an entry's
// relative position is stable even as other entries cancel around it.
// Party size must be satisfied atomically – partial offers are not made.
//
// Fields:
//  ID             – primary key identifier.
//  FlightID       – flight being waited on.
//  CabinClass     – cabin being waited on.
//  UserID         – user who joined the waitlist.
//  Seats          – party size; an offer covers all or nothing.
//  Priority       – per-(flight, cabin) FIFO sequence number.
//  Status         – waiting, offered, confirmed, expired or cancelled.
//  OfferedAt      – when the current offer was extended, if any.
//  OfferExpiresAt – deadline for accepting the current offer.
//  ConfirmedAt    – when the offer was accepted, if ever.
//  NotifyEmail    – whether to notify this user by email on offer.
//  NotifySMS      – whether to notify this user by SMS on offer.
type WaitlistEntry struct {
	ID             uint64     // waitlist_entries.id
	FlightID       uint64     // waitlist_entries.flight_id
	CabinClass     string     // waitlist_entries.cabin_class
	UserID         uint64     // waitlist_entries.user_id
	Seats          int        // waitlist_entries.seats
	Priority       int64      // waitlist_entries.priority
	Status         string     // waitlist_entries.status
	OfferedAt      *time.Time // waitlist_entries.offered_at (nullable)
	OfferExpiresAt *time.Time // waitlist_entries.offer_expires_at (nullable)
	ConfirmedAt    *time.Time // waitlist_entries.confirmed_at (nullable)
	NotifyEmail    bool       // waitlist_entries.notify_email
	NotifySMS      bool       // waitlist_entries.notify_sms
	CreatedAt      time.Time  // waitlist_entries.created_at
}
