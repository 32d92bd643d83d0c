package repository

import (
	"context"
	"database/sql"

	"github.com/kafaat/airline-seat-inventory/internal/model"
)

// InventoryRepo is the seat ledger: the authoritative available-seat
// counters per (flight, cabin) pair.  Every seat-count mutation in the
// system goes through the conditional updates in this type; no other
// component may write flight_inventory.  The WHERE guards make each
// mutation atomic with respect to concurrent callers without any
// application-level lock, so correctness holds across multiple server
// instances sharing one database.
type InventoryRepo struct {
	db *sql.DB
}

// NewInventoryRepo returns a new InventoryRepo bound to the provided database.
func NewInventoryRepo(db *sql.DB) *InventoryRepo { return &InventoryRepo{db: db} }

// DB exposes the underlying handle so services can open transactions that
// span the ledger and the hold or waitlist tables.
func (r *InventoryRepo) DB() *sql.DB { return r.db }

const inventoryCols = `id, flight_id, cabin_class, total_seats, available_seats, overbooking_allowance`

// CreateBulkTx inserts inventory rows for a newly scheduled flight within
// the provided transaction.  AvailableSeats starts equal to TotalSeats and
// the overbooking allowance starts at zero until an admin applies the
// advisor's recommendation.  Passing an empty slice has no effect.
func (r *InventoryRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, invs []model.FlightInventory) error {
	if len(invs) == 0 {
		return nil
	}
	query := `INSERT INTO flight_inventory (flight_id, cabin_class, total_seats, available_seats, overbooking_allowance) VALUES `
	args := make([]interface{}, 0, len(invs)*5)
	for i, inv := range invs {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, 0)"
		args = append(args, inv.FlightID, inv.CabinClass, inv.TotalSeats, inv.TotalSeats)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Get returns the inventory row for a (flight, cabin) pair.  ErrNotFound is
// returned when the pair is unknown.
func (r *InventoryRepo) Get(ctx context.Context, flightID uint64, cabin string) (*model.FlightInventory, error) {
	const q = `SELECT ` + inventoryCols + ` FROM flight_inventory WHERE flight_id = ? AND cabin_class = ?`
	return scanInventory(r.db.QueryRowContext(ctx, q, flightID, cabin))
}

// GetTx is Get within an existing transaction.
func (r *InventoryRepo) GetTx(ctx context.Context, tx *sql.Tx, flightID uint64, cabin string) (*model.FlightInventory, error) {
	const q = `SELECT ` + inventoryCols + ` FROM flight_inventory WHERE flight_id = ? AND cabin_class = ?`
	return scanInventory(tx.QueryRowContext(ctx, q, flightID, cabin))
}

// ListByFlight returns all cabin inventories of a flight.
func (r *InventoryRepo) ListByFlight(ctx context.Context, flightID uint64) ([]model.FlightInventory, error) {
	const q = `SELECT ` + inventoryCols + ` FROM flight_inventory WHERE flight_id = ? ORDER BY cabin_class`
	rows, err := r.db.QueryContext(ctx, q, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invs []model.FlightInventory
	for rows.Next() {
		var inv model.FlightInventory
		if err := rows.Scan(&inv.ID, &inv.FlightID, &inv.CabinClass, &inv.TotalSeats, &inv.AvailableSeats, &inv.OverbookingAllowance); err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

// CurrentAvailable returns the sellable seat count for a (flight, cabin)
// pair.  ErrNotFound is returned when the pair is unknown.
func (r *InventoryRepo) CurrentAvailable(ctx context.Context, flightID uint64, cabin string) (int, error) {
	const q = `SELECT available_seats FROM flight_inventory WHERE flight_id = ? AND cabin_class = ?`
	var n int
	err := r.db.QueryRowContext(ctx, q, flightID, cabin).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// TryDecrementTx atomically removes n seats from availability.  The guard
// available_seats >= n makes the decrement conditional: a losing racer gets
// ErrInsufficientSeats, never a negative counter and never a clamped one.
// ErrNotFound is returned when the (flight, cabin) pair does not exist.
func (r *InventoryRepo) TryDecrementTx(ctx context.Context, tx *sql.Tx, flightID uint64, cabin string, n int) error {
	const q = `UPDATE flight_inventory
	           SET available_seats = available_seats - ?
	           WHERE flight_id = ? AND cabin_class = ? AND available_seats >= ?`
	res, err := tx.ExecContext(ctx, q, n, flightID, cabin, n)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	// Distinguish an unknown pair from a genuine shortage.
	const check = `SELECT 1 FROM flight_inventory WHERE flight_id = ? AND cabin_class = ?`
	var one int
	switch err := tx.QueryRowContext(ctx, check, flightID, cabin).Scan(&one); err {
	case nil:
		return ErrInsufficientSeats
	case sql.ErrNoRows:
		return ErrNotFound
	default:
		return err
	}
}

// IncrementTx returns n seats to availability.  The guard keeps the counter
// within the sellable ceiling (total_seats + overbooking_allowance); a
// credit that would exceed it indicates a double release upstream and is
// rejected with ErrConflict rather than applied.
func (r *InventoryRepo) IncrementTx(ctx context.Context, tx *sql.Tx, flightID uint64, cabin string, n int) error {
	const q = `UPDATE flight_inventory
	           SET available_seats = available_seats + ?
	           WHERE flight_id = ? AND cabin_class = ?
	             AND available_seats + ? <= total_seats + overbooking_allowance`
	res, err := tx.ExecContext(ctx, q, n, flightID, cabin, n)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}

// SetAllowance re-bases the overbooking allowance of a (flight, cabin)
// pair.  Raising the allowance makes the extra seats immediately sellable;
// lowering it withdraws unsold extras.  Both effects happen in one UPDATE:
// MySQL applies SET clauses left to right, so available_seats is adjusted
// by the allowance delta before the stored allowance is replaced.  The
// guard refuses a reduction that would drive availability negative (the
// extras were already sold).
func (r *InventoryRepo) SetAllowance(ctx context.Context, flightID uint64, cabin string, extra int) error {
	const q = `UPDATE flight_inventory
	           SET available_seats = available_seats + (? - overbooking_allowance),
	               overbooking_allowance = ?
	           WHERE flight_id = ? AND cabin_class = ?
	             AND available_seats + (? - overbooking_allowance) >= 0`
	res, err := r.db.ExecContext(ctx, q, extra, extra, flightID, cabin, extra)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Unknown pair, uncoverable reduction, or a no-op re-apply of the
		// current allowance (MySQL reports zero affected rows when nothing
		// changed).  Only the first two are errors.
		const check = `SELECT overbooking_allowance FROM flight_inventory WHERE flight_id = ? AND cabin_class = ?`
		var current int
		switch err := r.db.QueryRowContext(ctx, check, flightID, cabin).Scan(&current); err {
		case nil:
			if current == extra {
				return nil
			}
			return ErrConflict
		case sql.ErrNoRows:
			return ErrNotFound
		default:
			return err
		}
	}
	return nil
}

// scanInventory maps a single-row query onto a FlightInventory, converting
// sql.ErrNoRows into the repository's ErrNotFound sentinel.
func scanInventory(row *sql.Row) (*model.FlightInventory, error) {
	var inv model.FlightInventory
	err := row.Scan(&inv.ID, &inv.FlightID, &inv.CabinClass, &inv.TotalSeats, &inv.AvailableSeats, &inv.OverbookingAllowance)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}
