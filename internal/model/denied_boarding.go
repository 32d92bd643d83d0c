package model

import "time"

// Denied boarding record types and statuses.
const (
	BumpVoluntary   = "voluntary"
	BumpInvoluntary = "involuntary"

	DeniedPending   = "pending"
	DeniedAccepted  = "accepted"
	DeniedRejected  = "rejected"
	DeniedCompleted = "completed"
)

// Compensation types.
const (
	CompVoucher = "voucher"
	CompCash    = "cash"
)

// DeniedBoardingRecord captures one passenger bumped from an oversold
// flight, together with the compensation owed and an optional rebooking
// suggestion.  Records start out pending; the passenger (voluntary) or the
// airline (involuntary) moves them to accepted or rejected, and completed
// marks the compensation as paid out.
//
// Fields:
//  ID                  – primary key identifier.
//  FlightID            – oversold flight.
//  BookingID           – booking that was bumped.
//  Type                – voluntary or involuntary.
//  CompensationCents   – amount owed, in cents.
//  CompensationType    – voucher or cash.
//  AlternativeFlightID – suggested rebooking, if one was found.
//  Status              – pending, accepted, rejected or completed.
type DeniedBoardingRecord struct {
	ID                  uint64    // denied_boarding_records.id
	FlightID            uint64    // denied_boarding_records.flight_id
	BookingID           uint64    // denied_boarding_records.booking_id
	Type                string    // denied_boarding_records.type
	CompensationCents   int64     // denied_boarding_records.compensation_cents
	CompensationType    string    // denied_boarding_records.compensation_type
	AlternativeFlightID *uint64   // denied_boarding_records.alternative_flight_id (nullable)
	Status              string    // denied_boarding_records.status
	CreatedAt           time.Time // denied_boarding_records.created_at
	UpdatedAt           time.Time // denied_boarding_records.updated_at
}
