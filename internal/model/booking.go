package model

import "time"

// Booking statuses.
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingBumped    = "bumped"
)

// Booking is a finalized purchase produced by converting a seat hold.  The
// engine keeps bookings for two of its own needs: bump candidate selection
// during denied boarding (fare and recency ordering) and historical demand
// for the forecast.  Payment capture happens elsewhere; FareCents is the
// amount reported by the finalizing collaborator.
//
// Fields:
//  ID            – primary key identifier.
//  FlightID      – flight booked.
//  CabinClass    – cabin booked.
//  UserID        – passenger who owns the booking.
//  SeatCount     – seats covered by the booking.
//  FareCents     – total fare paid, in cents.
//  Status        – confirmed, cancelled or bumped.
//  VolunteerBump – passenger volunteered to be bumped if oversold.
//  BookedAt      – when the booking was finalized.
type Booking struct {
	ID            uint64    // bookings.id
	FlightID      uint64    // bookings.flight_id
	CabinClass    string    // bookings.cabin_class
	UserID        uint64    // bookings.user_id
	SeatCount     int       // bookings.seat_count
	FareCents     int64     // bookings.fare_cents
	Status        string    // bookings.status
	VolunteerBump bool      // bookings.volunteer_bump
	BookedAt      time.Time // bookings.booked_at
}
