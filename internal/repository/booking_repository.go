package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/kafaat/airline-seat-inventory/internal/model"
)

// BookingRepo provides data access to the bookings table.  The allocation
// engine writes bookings when holds convert and reads them for two
// purposes: selecting bump candidates during denied boarding and measuring
// booking velocity for the demand forecast.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts a confirmed booking within the provided transaction and
// populates the generated ID.  Called when a hold converts; the seats were
// already decremented when the hold was created, so no ledger change
// accompanies this insert.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (flight_id, cabin_class, user_id, seat_count, fare_cents, status, volunteer_bump)
	           VALUES (?, ?, ?, ?, ?, 'confirmed', ?)`
	res, err := tx.ExecContext(ctx, q,
		b.FlightID, b.CabinClass, b.UserID, b.SeatCount, b.FareCents, b.VolunteerBump)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Status = model.BookingConfirmed
	return nil
}

// BumpCandidatesTx returns confirmed bookings of a (flight, cabin) in bump
// order: volunteers first, then lowest fare, ties broken by most recent
// booking.  The resolver walks this list accumulating seat counts until the
// shortfall is covered.
func (r *BookingRepo) BumpCandidatesTx(ctx context.Context, tx *sql.Tx, flightID uint64, cabin string) ([]model.Booking, error) {
	const q = `SELECT id, flight_id, cabin_class, user_id, seat_count, fare_cents, status, volunteer_bump, booked_at
	           FROM bookings
	           WHERE flight_id = ? AND cabin_class = ? AND status = 'confirmed'
	           ORDER BY volunteer_bump DESC, fare_cents ASC, booked_at DESC`
	rows, err := tx.QueryContext(ctx, q, flightID, cabin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(
			&b.ID, &b.FlightID, &b.CabinClass, &b.UserID, &b.SeatCount,
			&b.FareCents, &b.Status, &b.VolunteerBump, &b.BookedAt,
		); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// MarkBumpedTx flips a confirmed booking to bumped.  The status guard keeps
// a booking from being bumped twice when two resolver runs overlap.
func (r *BookingRepo) MarkBumpedTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (bool, error) {
	const q = `UPDATE bookings SET status = 'bumped' WHERE id = ? AND status = 'confirmed'`
	res, err := tx.ExecContext(ctx, q, bookingID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// BookedSeats returns the total confirmed seat count for a (flight, cabin).
func (r *BookingRepo) BookedSeats(ctx context.Context, flightID uint64, cabin string) (int, error) {
	const q = `SELECT COALESCE(SUM(seat_count), 0) FROM bookings
	           WHERE flight_id = ? AND cabin_class = ? AND status = 'confirmed'`
	var n int
	if err := r.db.QueryRowContext(ctx, q, flightID, cabin).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SeatsBookedSince returns the confirmed seat count of a flight booked at
// or after the given instant, across all cabins.  The forecast divides this
// by the window length to obtain a booking velocity.
func (r *BookingRepo) SeatsBookedSince(ctx context.Context, flightID uint64, since time.Time) (int, error) {
	const q = `SELECT COALESCE(SUM(seat_count), 0) FROM bookings
	           WHERE flight_id = ? AND status = 'confirmed' AND booked_at >= ?`
	var n int
	err := r.db.QueryRowContext(ctx, q, flightID, since.UTC().Format("2006-01-02 15:04:05")).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}
