package repository

import (
	"context"
	"database/sql"

	"github.com/kafaat/airline-seat-inventory/internal/model"
)

// FlightRepo provides data access to the flights table.  Besides plain
// lookups it answers the disruption question asked during denied boarding:
// which later flight on the same route still has seats for a bumped
// passenger.
type FlightRepo struct {
	db *sql.DB
}

// NewFlightRepo returns a new FlightRepo bound to the provided database.
func NewFlightRepo(db *sql.DB) *FlightRepo { return &FlightRepo{db: db} }

const flightCols = `id, flight_number, airline_code, origin, destination, departs_at, status, created_at`

// CreateTx inserts a newly scheduled flight within the provided transaction
// and populates the generated ID.  Inventory rows for its cabins are
// created in the same transaction by InventoryRepo.CreateBulkTx.
func (r *FlightRepo) CreateTx(ctx context.Context, tx *sql.Tx, f *model.Flight) error {
	const q = `INSERT INTO flights (flight_number, airline_code, origin, destination, departs_at, status)
	           VALUES (?, ?, ?, ?, ?, 'scheduled')`
	res, err := tx.ExecContext(ctx, q,
		f.FlightNumber, f.AirlineCode, f.Origin, f.Destination,
		f.DepartsAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	f.ID = uint64(id)
	f.Status = model.FlightScheduled
	return nil
}

// GetByID returns a flight.  ErrNotFound is returned for unknown IDs.
func (r *FlightRepo) GetByID(ctx context.Context, id uint64) (*model.Flight, error) {
	const q = `SELECT ` + flightCols + ` FROM flights WHERE id = ?`
	var f model.Flight
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&f.ID, &f.FlightNumber, &f.AirlineCode, &f.Origin, &f.Destination,
		&f.DepartsAt, &f.Status, &f.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// NextAlternative finds the earliest later scheduled flight on the same
// route with at least the requested availability in the given cabin.  It
// returns ErrNotFound when no candidate exists; denied-boarding records are
// then created without a rebooking suggestion.
func (r *FlightRepo) NextAlternative(ctx context.Context, f *model.Flight, cabin string, seats int) (*model.Flight, error) {
	const q = `SELECT f.id, f.flight_number, f.airline_code, f.origin, f.destination, f.departs_at, f.status, f.created_at
	           FROM flights f
	           JOIN flight_inventory fi ON fi.flight_id = f.id
	           WHERE f.origin = ? AND f.destination = ? AND f.status = 'scheduled'
	             AND f.departs_at > ? AND f.id <> ?
	             AND fi.cabin_class = ? AND fi.available_seats >= ?
	           ORDER BY f.departs_at ASC
	           LIMIT 1`
	var alt model.Flight
	err := r.db.QueryRowContext(ctx, q,
		f.Origin, f.Destination, f.DepartsAt.UTC().Format("2006-01-02 15:04:05"), f.ID,
		cabin, seats,
	).Scan(
		&alt.ID, &alt.FlightNumber, &alt.AirlineCode, &alt.Origin, &alt.Destination,
		&alt.DepartsAt, &alt.Status, &alt.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &alt, nil
}
