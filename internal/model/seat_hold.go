package model

import "time"

// Seat hold statuses.  A hold is owned by the session that created it until
// it converts into a booking or its deadline passes.
const (
	HoldActive    = "active"    // seats are reserved for the session
	HoldReleased  = "released"  // explicitly cancelled, seats returned
	HoldExpired   = "expired"   // deadline passed, seats returned by sweep
	HoldConverted = "converted" // finalized into a booking
)

// SeatHold represents temporarily reserved capacity for a shopping session.
// Creating a hold decrements the flight inventory; releasing or expiring it
// credits the seats back.  Conversion keeps the decrement in place and
// produces a Booking.
//
// Fields:
//  ID         – primary key identifier.
//  HoldToken  – opaque token returned to the client for correlation.
//  FlightID   – flight the seats are held on.
//  CabinClass – cabin the seats are held in.
//  SeatCount  – number of seats held (1..9).
//  UserID     – user who owns the hold.
//  SessionID  – shopping session the hold is tied to.
//  Status     – active, released, expired or converted.
//  ExpiresAt  – wall-clock deadline after which the hold is reclaimable.
//  CreatedAt  – when the hold was created.
type SeatHold struct {
	ID         uint64    // seat_holds.id
	HoldToken  string    // seat_holds.hold_token
	FlightID   uint64    // seat_holds.flight_id
	CabinClass string    // seat_holds.cabin_class
	SeatCount  int       // seat_holds.seat_count
	UserID     uint64    // seat_holds.user_id
	SessionID  string    // seat_holds.session_id
	Status     string    // seat_holds.status
	ExpiresAt  time.Time // seat_holds.expires_at
	CreatedAt  time.Time // seat_holds.created_at
}
