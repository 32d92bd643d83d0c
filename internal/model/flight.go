package model

import "time"

// Flight statuses.  Inventory for a flight is sellable only while the
// flight is scheduled; departed and cancelled flights report "closed".
const (
	FlightScheduled = "scheduled"
	FlightDeparted  = "departed"
	FlightCancelled = "cancelled"
)

// Cabin classes sold on a flight.  Inventory is tracked per (flight, cabin)
// pair, never per physical seat.
const (
	CabinEconomy  = "economy"
	CabinBusiness = "business"
	CabinFirst    = "first"
)

// Flight represents a scheduled departure.  The allocation engine only
// needs routing and timing for overbooking scope resolution and for
// suggesting alternative flights after a denied boarding.
//
// Fields:
//  ID           – primary key identifier.
//  FlightNumber – marketing number, e.g. "KF204".
//  AirlineCode  – two-letter carrier code used in config scoping.
//  Origin       – IATA code of the departure airport.
//  Destination  – IATA code of the arrival airport.
//  DepartsAt    – scheduled departure time (UTC).
//  Status       – scheduled, departed or cancelled.
type Flight struct {
	ID           uint64    // flights.id
	FlightNumber string    // flights.flight_number
	AirlineCode  string    // flights.airline_code
	Origin       string    // flights.origin
	Destination  string    // flights.destination
	DepartsAt    time.Time // flights.departs_at
	Status       string    // flights.status
	CreatedAt    time.Time // flights.created_at
}

// ValidCabin reports whether the given cabin class is one the engine sells.
func ValidCabin(cabin string) bool {
	switch cabin {
	case CabinEconomy, CabinBusiness, CabinFirst:
		return true
	}
	return false
}
