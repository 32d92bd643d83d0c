package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/kafaat/airline-seat-inventory/internal/model"
)

// WaitlistRepo provides data access to the waitlist_entries table.  The
// queue is strictly FIFO per (flight, cabin): priority is a monotonically
// increasing sequence assigned at insertion and never reassigned or reused,
// so a cancelled entry leaves a gap rather than renumbering everyone behind
// it.  Displayed positions are derived with a COUNT over smaller
// priorities, never stored.
type WaitlistRepo struct {
	db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the provided database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

const waitlistCols = `id, flight_id, cabin_class, user_id, seats, priority, status,
	offered_at, offer_expires_at, confirmed_at, notify_email, notify_sms, created_at`

// CreateTx inserts a new waiting entry, computing its priority as
// MAX(priority)+1 over the same (flight, cabin) inside the INSERT itself.
// Running assignment and insertion as one statement keeps priorities unique
// under concurrent joins without an application-level lock.  The generated
// ID and assigned priority are populated on the passed entry.
func (r *WaitlistRepo) CreateTx(ctx context.Context, tx *sql.Tx, e *model.WaitlistEntry) error {
	const q = `INSERT INTO waitlist_entries (flight_id, cabin_class, user_id, seats, priority, status, notify_email, notify_sms)
	           SELECT ?, ?, ?, ?, COALESCE(MAX(w.priority), 0) + 1, 'waiting', ?, ?
	           FROM waitlist_entries w
	           WHERE w.flight_id = ? AND w.cabin_class = ?`
	res, err := tx.ExecContext(ctx, q,
		e.FlightID, e.CabinClass, e.UserID, e.Seats, e.NotifyEmail, e.NotifySMS,
		e.FlightID, e.CabinClass)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.Status = model.WaitlistWaiting
	// Read back the assigned priority for the caller's response.
	const sel = `SELECT priority FROM waitlist_entries WHERE id = ?`
	return tx.QueryRowContext(ctx, sel, e.ID).Scan(&e.Priority)
}

// HasActiveEntryTx reports whether the user already has a waiting or
// offered entry for the (flight, cabin) pair.  Used to reject duplicate
// joins.
func (r *WaitlistRepo) HasActiveEntryTx(ctx context.Context, tx *sql.Tx, flightID uint64, cabin string, userID uint64) (bool, error) {
	const q = `SELECT COUNT(*) FROM waitlist_entries
	           WHERE flight_id = ? AND cabin_class = ? AND user_id = ? AND status IN ('waiting','offered')`
	var n int
	if err := tx.QueryRowContext(ctx, q, flightID, cabin, userID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByID returns a single entry.  ErrNotFound is returned for unknown IDs.
func (r *WaitlistRepo) GetByID(ctx context.Context, id uint64) (*model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistCols + ` FROM waitlist_entries WHERE id = ?`
	return scanWaitlistRow(r.db.QueryRowContext(ctx, q, id))
}

// Position computes the entry's 1-based place in the queue as the number of
// waiting entries ahead of it plus one.  Deriving the position instead of
// storing it means cancellations elsewhere in the queue correct everyone's
// displayed position without a rewrite pass.
func (r *WaitlistRepo) Position(ctx context.Context, e *model.WaitlistEntry) (int, error) {
	const q = `SELECT COUNT(*) FROM waitlist_entries
	           WHERE flight_id = ? AND cabin_class = ? AND status = 'waiting' AND priority < ?`
	var ahead int
	if err := r.db.QueryRowContext(ctx, q, e.FlightID, e.CabinClass, e.Priority).Scan(&ahead); err != nil {
		return 0, err
	}
	return ahead + 1, nil
}

// WaitingByPriorityTx returns the waiting entries of a (flight, cabin) in
// ascending priority order, i.e. the order in which offers must be made.
func (r *WaitlistRepo) WaitingByPriorityTx(ctx context.Context, tx *sql.Tx, flightID uint64, cabin string) ([]model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistCols + ` FROM waitlist_entries
	           WHERE flight_id = ? AND cabin_class = ? AND status = 'waiting'
	           ORDER BY priority ASC`
	rows, err := tx.QueryContext(ctx, q, flightID, cabin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWaitlistRows(rows)
}

// CabinsWithWaiting returns the distinct cabins of a flight that currently
// have waiting entries, so a processing pass only touches queues that can
// make progress.
func (r *WaitlistRepo) CabinsWithWaiting(ctx context.Context, flightID uint64) ([]string, error) {
	const q = `SELECT DISTINCT cabin_class FROM waitlist_entries WHERE flight_id = ? AND status = 'waiting'`
	rows, err := r.db.QueryContext(ctx, q, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cabins []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cabins = append(cabins, c)
	}
	return cabins, rows.Err()
}

// OfferTx extends an offer to a waiting entry, stamping the offer window.
// The status guard means a concurrent cancellation wins cleanly: the update
// matches nothing and returns false.
func (r *WaitlistRepo) OfferTx(ctx context.Context, tx *sql.Tx, id uint64, expiresAt time.Time) (bool, error) {
	const q = `UPDATE waitlist_entries
	           SET status = 'offered', offered_at = UTC_TIMESTAMP(), offer_expires_at = ?
	           WHERE id = ? AND status = 'waiting'`
	res, err := tx.ExecContext(ctx, q, expiresAt.UTC().Format("2006-01-02 15:04:05"), id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ConfirmTx accepts an outstanding offer.  Both guards matter: the status
// guard rejects entries that are not offered at all, and the deadline guard
// rejects offers that are logically expired but not yet swept.
func (r *WaitlistRepo) ConfirmTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	const q = `UPDATE waitlist_entries
	           SET status = 'confirmed', confirmed_at = UTC_TIMESTAMP()
	           WHERE id = ? AND status = 'offered' AND offer_expires_at > UTC_TIMESTAMP()`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkOfferExpiredTx flips an offered entry to expired.  Used both by the
// periodic sweep and by the lazy flip when an expired offer is accessed.
func (r *WaitlistRepo) MarkOfferExpiredTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	const q = `UPDATE waitlist_entries SET status = 'expired' WHERE id = ? AND status = 'offered'`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CancelTx withdraws a waiting entry or declines an outstanding offer.
// Terminal entries (confirmed, expired, cancelled) match no row and the
// caller receives false, keeping duplicate decline retries a no-op.
func (r *WaitlistRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	const q = `UPDATE waitlist_entries SET status = 'cancelled' WHERE id = ? AND status IN ('waiting','offered')`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListExpiredOffers returns offered entries whose acceptance window has
// passed.  The sweep marks each expired and then reprocesses each affected
// flight once.
func (r *WaitlistRepo) ListExpiredOffers(ctx context.Context, limit int) ([]model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistCols + ` FROM waitlist_entries
	           WHERE status = 'offered' AND offer_expires_at <= UTC_TIMESTAMP()
	           ORDER BY offer_expires_at ASC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWaitlistRows(rows)
}

// ListByUser returns all of a user's entries, newest first.
func (r *WaitlistRepo) ListByUser(ctx context.Context, userID uint64) ([]model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistCols + ` FROM waitlist_entries
	           WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWaitlistRows(rows)
}

// ListByFlight returns every entry of a flight in queue order, for the
// admin view.
func (r *WaitlistRepo) ListByFlight(ctx context.Context, flightID uint64) ([]model.WaitlistEntry, error) {
	const q = `SELECT ` + waitlistCols + ` FROM waitlist_entries
	           WHERE flight_id = ? ORDER BY cabin_class, priority ASC`
	rows, err := r.db.QueryContext(ctx, q, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWaitlistRows(rows)
}

func scanWaitlistRow(row *sql.Row) (*model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	var offeredAt, offerExpiresAt, confirmedAt sql.NullTime
	err := row.Scan(
		&e.ID, &e.FlightID, &e.CabinClass, &e.UserID, &e.Seats, &e.Priority, &e.Status,
		&offeredAt, &offerExpiresAt, &confirmedAt, &e.NotifyEmail, &e.NotifySMS, &e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	assignNullTimes(&e, offeredAt, offerExpiresAt, confirmedAt)
	return &e, nil
}

func collectWaitlistRows(rows *sql.Rows) ([]model.WaitlistEntry, error) {
	var entries []model.WaitlistEntry
	for rows.Next() {
		var e model.WaitlistEntry
		var offeredAt, offerExpiresAt, confirmedAt sql.NullTime
		if err := rows.Scan(
			&e.ID, &e.FlightID, &e.CabinClass, &e.UserID, &e.Seats, &e.Priority, &e.Status,
			&offeredAt, &offerExpiresAt, &confirmedAt, &e.NotifyEmail, &e.NotifySMS, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		assignNullTimes(&e, offeredAt, offerExpiresAt, confirmedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func assignNullTimes(e *model.WaitlistEntry, offeredAt, offerExpiresAt, confirmedAt sql.NullTime) {
	if offeredAt.Valid {
		t := offeredAt.Time
		e.OfferedAt = &t
	}
	if offerExpiresAt.Valid {
		t := offerExpiresAt.Time
		e.OfferExpiresAt = &t
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		e.ConfirmedAt = &t
	}
}
