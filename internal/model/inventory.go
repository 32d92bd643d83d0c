package model

// FlightInventory is the authoritative seat counter for one (flight, cabin)
// pair.  AvailableSeats is only ever mutated through conditional updates in
// the inventory repository, which is the single serialization point for
// concurrent shoppers.
//
// Invariant: 0 <= AvailableSeats <= TotalSeats + OverbookingAllowance.
//
// Fields:
//  ID                   – primary key identifier.
//  FlightID             – flight this counter belongs to.
//  CabinClass           – economy, business or first.
//  TotalSeats           – physical seats installed in the cabin.
//  AvailableSeats       – seats currently sellable (includes allowance).
//  OverbookingAllowance – extra sellable seats beyond physical capacity.
type FlightInventory struct {
	ID                   uint64 // flight_inventory.id
	FlightID             uint64 // flight_inventory.flight_id
	CabinClass           string // flight_inventory.cabin_class
	TotalSeats           int    // flight_inventory.total_seats
	AvailableSeats       int    // flight_inventory.available_seats
	OverbookingAllowance int    // flight_inventory.overbooking_allowance
}

// Inventory status values reported to shoppers by the availability endpoint.
const (
	InventoryAvailable    = "available"     // plenty of seats left
	InventoryLimited      = "limited"       // low remaining availability
	InventoryWaitlistOnly = "waitlist_only" // sold out, waitlist open
	InventoryClosed       = "closed"        // flight departed or cancelled
)
