package repository

import (
	"context"
	"database/sql"

	"github.com/kafaat/airline-seat-inventory/internal/model"
)

// DeniedBoardingRepo provides data access to denied_boarding_records.
// Records are written by the resolver when check-in demand exceeds true
// capacity and then worked through their status lifecycle by admins.
type DeniedBoardingRepo struct {
	db *sql.DB
}

// NewDeniedBoardingRepo returns a new DeniedBoardingRepo bound to the provided database.
func NewDeniedBoardingRepo(db *sql.DB) *DeniedBoardingRepo { return &DeniedBoardingRepo{db: db} }

const deniedCols = `id, flight_id, booking_id, type, compensation_cents, compensation_type,
	alternative_flight_id, status, created_at, updated_at`

// CreateTx inserts a pending record within the provided transaction and
// populates the generated ID.
func (r *DeniedBoardingRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec *model.DeniedBoardingRecord) error {
	const q = `INSERT INTO denied_boarding_records
	           (flight_id, booking_id, type, compensation_cents, compensation_type, alternative_flight_id, status)
	           VALUES (?, ?, ?, ?, ?, ?, 'pending')`
	var alt interface{}
	if rec.AlternativeFlightID != nil {
		alt = *rec.AlternativeFlightID
	}
	res, err := tx.ExecContext(ctx, q,
		rec.FlightID, rec.BookingID, rec.Type, rec.CompensationCents, rec.CompensationType, alt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	rec.Status = model.DeniedPending
	return nil
}

// allowedFrom maps each target status to the status a record must be in for
// the transition to apply.  pending can be accepted or rejected; accepted
// records can be completed once compensation is paid out.
var allowedFrom = map[string]string{
	model.DeniedAccepted:  model.DeniedPending,
	model.DeniedRejected:  model.DeniedPending,
	model.DeniedCompleted: model.DeniedAccepted,
}

// UpdateStatus applies a guarded lifecycle transition.  ErrInvalidTransition
// is returned when the target status is unknown or the record is not in the
// required source state; ErrNotFound when the record does not exist.
func (r *DeniedBoardingRepo) UpdateStatus(ctx context.Context, id uint64, status string) error {
	from, ok := allowedFrom[status]
	if !ok {
		return ErrInvalidTransition
	}
	const q = `UPDATE denied_boarding_records
	           SET status = ?, updated_at = UTC_TIMESTAMP()
	           WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, status, id, from)
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
	const check = `SELECT 1 FROM denied_boarding_records WHERE id = ?`
	var one int
	switch err := r.db.QueryRowContext(ctx, check, id).Scan(&one); err {
	case nil:
		return ErrInvalidTransition
	case sql.ErrNoRows:
		return ErrNotFound
	default:
		return err
	}
}

// ListByFlight returns all records of a flight, oldest first.
func (r *DeniedBoardingRepo) ListByFlight(ctx context.Context, flightID uint64) ([]model.DeniedBoardingRecord, error) {
	const q = `SELECT ` + deniedCols + ` FROM denied_boarding_records
	           WHERE flight_id = ? ORDER BY created_at ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []model.DeniedBoardingRecord
	for rows.Next() {
		var rec model.DeniedBoardingRecord
		var alt sql.NullInt64
		if err := rows.Scan(
			&rec.ID, &rec.FlightID, &rec.BookingID, &rec.Type,
			&rec.CompensationCents, &rec.CompensationType, &alt,
			&rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if alt.Valid {
			v := uint64(alt.Int64)
			rec.AlternativeFlightID = &v
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
