package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/kafaat/airline-seat-inventory/internal/model"
)

// SeatHoldRepo provides data access to the seat_holds table.  Lifecycle
// transitions are guarded UPDATEs keyed on the current status, which makes
// release and expiry naturally idempotent: the second caller matches no row
// and learns that from the affected-row count instead of an error.  All
// timestamps are UTC.
type SeatHoldRepo struct {
	db *sql.DB
}

// NewSeatHoldRepo returns a new SeatHoldRepo bound to the provided database.
func NewSeatHoldRepo(db *sql.DB) *SeatHoldRepo { return &SeatHoldRepo{db: db} }

const seatHoldCols = `id, hold_token, flight_id, cabin_class, seat_count, user_id, session_id, status, expires_at, created_at`

// NewHoldToken generates the opaque token returned to clients for
// correlating a hold across requests.
func NewHoldToken() string { return uuid.NewString() }

// CreateTx inserts a new active hold within the provided transaction and
// populates the generated ID.  The caller must have decremented the ledger
// in the same transaction; a commit therefore lands the counter change and
// the hold row together or not at all.
func (r *SeatHoldRepo) CreateTx(ctx context.Context, tx *sql.Tx, h *model.SeatHold) error {
	const q = `INSERT INTO seat_holds (hold_token, flight_id, cabin_class, seat_count, user_id, session_id, status, expires_at)
	           VALUES (?, ?, ?, ?, ?, ?, 'active', ?)`
	res, err := tx.ExecContext(ctx, q,
		h.HoldToken, h.FlightID, h.CabinClass, h.SeatCount, h.UserID, h.SessionID,
		h.ExpiresAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	h.Status = model.HoldActive
	return nil
}

// GetByToken returns the hold identified by its client-facing token.
// ErrNotFound is returned for unknown tokens.
func (r *SeatHoldRepo) GetByToken(ctx context.Context, token string) (*model.SeatHold, error) {
	const q = `SELECT ` + seatHoldCols + ` FROM seat_holds WHERE hold_token = ?`
	var h model.SeatHold
	err := r.db.QueryRowContext(ctx, q, token).Scan(
		&h.ID, &h.HoldToken, &h.FlightID, &h.CabinClass, &h.SeatCount,
		&h.UserID, &h.SessionID, &h.Status, &h.ExpiresAt, &h.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// ReleaseTx flips an active hold to released.  It returns true when this
// call performed the transition and false when the hold was already
// released, expired or converted, so callers can skip the seat credit on a
// retry without treating it as a failure.
func (r *SeatHoldRepo) ReleaseTx(ctx context.Context, tx *sql.Tx, holdID uint64) (bool, error) {
	const q = `UPDATE seat_holds SET status = 'released' WHERE id = ? AND status = 'active'`
	res, err := tx.ExecContext(ctx, q, holdID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ConvertTx finalizes an active, unexpired hold into the converted state.
// The status and deadline guards reject holds that were released, already
// converted, or whose TTL has passed even if the expiry sweep has not yet
// run; a logically expired hold is never convertible.
func (r *SeatHoldRepo) ConvertTx(ctx context.Context, tx *sql.Tx, holdID uint64) (bool, error) {
	const q = `UPDATE seat_holds SET status = 'converted'
	           WHERE id = ? AND status = 'active' AND expires_at > UTC_TIMESTAMP()`
	res, err := tx.ExecContext(ctx, q, holdID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ExpireTx flips one active hold past its deadline to expired.  The sweep
// calls this once per hold in its own transaction so that a crash mid-sweep
// leaves every already-committed transition final and never double-credits
// seats.  Returns true when this call performed the transition.
func (r *SeatHoldRepo) ExpireTx(ctx context.Context, tx *sql.Tx, holdID uint64) (bool, error) {
	const q = `UPDATE seat_holds SET status = 'expired'
	           WHERE id = ? AND status = 'active' AND expires_at <= UTC_TIMESTAMP()`
	res, err := tx.ExecContext(ctx, q, holdID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListExpired returns active holds whose deadline has passed, oldest first.
// The sweep re-queries this on every tick instead of working from a cached
// list, which keeps re-runs after a partial sweep safe.
func (r *SeatHoldRepo) ListExpired(ctx context.Context, limit int) ([]model.SeatHold, error) {
	const q = `SELECT ` + seatHoldCols + ` FROM seat_holds
	           WHERE status = 'active' AND expires_at <= UTC_TIMESTAMP()
	           ORDER BY expires_at ASC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var holds []model.SeatHold
	for rows.Next() {
		var h model.SeatHold
		if err := rows.Scan(
			&h.ID, &h.HoldToken, &h.FlightID, &h.CabinClass, &h.SeatCount,
			&h.UserID, &h.SessionID, &h.Status, &h.ExpiresAt, &h.CreatedAt,
		); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

// ActiveByUser returns a user's active holds, soonest-expiring first.  The
// expires_at filter treats logically expired holds as gone even before the
// sweep reclaims them.
func (r *SeatHoldRepo) ActiveByUser(ctx context.Context, userID uint64) ([]model.SeatHold, error) {
	const q = `SELECT ` + seatHoldCols + ` FROM seat_holds
	           WHERE user_id = ? AND status = 'active' AND expires_at > UTC_TIMESTAMP()
	           ORDER BY expires_at ASC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var holds []model.SeatHold
	for rows.Next() {
		var h model.SeatHold
		if err := rows.Scan(
			&h.ID, &h.HoldToken, &h.FlightID, &h.CabinClass, &h.SeatCount,
			&h.UserID, &h.SessionID, &h.Status, &h.ExpiresAt, &h.CreatedAt,
		); err != nil {
			return nil, err
		}
		holds = append(holds, h)
	}
	return holds, rows.Err()
}

// Expired reports whether the hold's deadline has passed at the given
// instant, independent of whether the sweep has reclaimed it yet.
func Expired(h *model.SeatHold, now time.Time) bool {
	return !h.ExpiresAt.After(now)
}
