package service

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kafaat/airline-seat-inventory/internal/model"
	"github.com/kafaat/airline-seat-inventory/internal/queue"
	"github.com/kafaat/airline-seat-inventory/internal/repository"
)

// WaitlistService owns the per-(flight, cabin) queues of pending demand.
// Offers are extended strictly in priority order, subject to the
// skip-don't-block rule: an entry whose party does not fit the current
// availability is passed over without being consumed, so a smaller party
// behind it can still be offered the seats.  An offer never decrements the
// ledger – it is a time-boxed right of first refusal, and acceptance sends
// the user through the normal allocation path.
type WaitlistService struct {
	db        *sql.DB
	inventory *repository.InventoryRepo
	waitlist  *repository.WaitlistRepo
	events    EventPublisher

	// OfferWindow is how long an extended offer remains acceptable.
	OfferWindow time.Duration
	// SweepBatch bounds how many expired offers one sweep pass handles.
	SweepBatch int
}

// NewWaitlistService constructs a WaitlistService.  events may be nil to
// disable event publishing.
func NewWaitlistService(db *sql.DB, inventory *repository.InventoryRepo, waitlist *repository.WaitlistRepo, events EventPublisher, offerWindow time.Duration) *WaitlistService {
	if db == nil || inventory == nil || waitlist == nil {
		panic("nil dependency passed to NewWaitlistService")
	}
	if offerWindow <= 0 {
		offerWindow = 24 * time.Hour
	}
	return &WaitlistService{
		db:          db,
		inventory:   inventory,
		waitlist:    waitlist,
		events:      events,
		OfferWindow: offerWindow,
		SweepBatch:  500,
	}
}

// AddToWaitlist queues demand for a full cabin.  The ledger is consulted
// first: when the cabin can still seat the party the request is rejected
// with ErrSeatsAvailable so the user books normally.  Duplicate active
// entries for the same user, flight and cabin are rejected.  Priority is
// assigned atomically inside the insert.
func (s *WaitlistService) AddToWaitlist(ctx context.Context, flightID uint64, cabin string, seats int, userID uint64, notifyEmail, notifySMS bool) (*model.WaitlistEntry, error) {
	if seats < 1 || seats > 9 {
		return nil, ErrSeatCount
	}
	if !model.ValidCabin(cabin) {
		return nil, repository.ErrNotFound
	}
	available, err := s.inventory.CurrentAvailable(ctx, flightID, cabin)
	if err != nil {
		return nil, err
	}
	if available >= seats {
		return nil, ErrSeatsAvailable
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	dup, err := s.waitlist.HasActiveEntryTx(ctx, tx, flightID, cabin, userID)
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, repository.ErrDuplicateWaitlist
	}
	entry := &model.WaitlistEntry{
		FlightID:    flightID,
		CabinClass:  cabin,
		UserID:      userID,
		Seats:       seats,
		NotifyEmail: notifyEmail,
		NotifySMS:   notifySMS,
	}
	if err := s.waitlist.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return entry, nil
}

// GetPosition returns the entry together with its 1-based queue position.
// Position is only meaningful for waiting entries; for any other status it
// is reported as zero.  Only the owning user may ask.
func (s *WaitlistService) GetPosition(ctx context.Context, entryID, userID uint64) (*model.WaitlistEntry, int, error) {
	entry, err := s.waitlist.GetByID(ctx, entryID)
	if err != nil {
		return nil, 0, err
	}
	if entry.UserID != userID {
		return nil, 0, repository.ErrForbidden
	}
	if entry.Status != model.WaitlistWaiting {
		return entry, 0, nil
	}
	pos, err := s.waitlist.Position(ctx, entry)
	if err != nil {
		return nil, 0, err
	}
	return entry, pos, nil
}

// ProcessWaitlist walks every cabin of the flight that has waiting entries
// and extends offers in ascending priority order.  An entry is offered only
// when its whole party fits within the remaining availability; an entry too
// large for the moment is skipped in place, not consumed and not advanced,
// and stays first in line for the next pass.  Each cabin is processed in
// its own transaction so one cabin's failure does not roll back another's
// offers.  Returns the entries that received offers.
func (s *WaitlistService) ProcessWaitlist(ctx context.Context, flightID uint64) ([]model.WaitlistEntry, error) {
	cabins, err := s.waitlist.CabinsWithWaiting(ctx, flightID)
	if err != nil {
		return nil, err
	}
	var offered []model.WaitlistEntry
	for _, cabin := range cabins {
		entries, err := s.processCabin(ctx, flightID, cabin)
		if err != nil {
			return offered, err
		}
		offered = append(offered, entries...)
	}
	for i := range offered {
		s.publishOffer(ctx, &offered[i])
	}
	return offered, nil
}

// processCabin runs one offer pass for a single (flight, cabin) queue.
func (s *WaitlistService) processCabin(ctx context.Context, flightID uint64, cabin string) ([]model.WaitlistEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	inv, err := s.inventory.GetTx(ctx, tx, flightID, cabin)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, nil // waitlist references a retired inventory; nothing to offer
		}
		return nil, err
	}
	remaining := inv.AvailableSeats
	if remaining <= 0 {
		return nil, nil
	}
	waiting, err := s.waitlist.WaitingByPriorityTx(ctx, tx, flightID, cabin)
	if err != nil {
		return nil, err
	}
	var offered []model.WaitlistEntry
	deadline := time.Now().UTC().Add(s.OfferWindow)
	for i := range waiting {
		if remaining <= 0 {
			break
		}
		e := waiting[i]
		if e.Seats > remaining {
			continue // skip, don't block: the entry keeps its priority
		}
		did, err := s.waitlist.OfferTx(ctx, tx, e.ID, deadline)
		if err != nil {
			return nil, err
		}
		if !did {
			continue // cancelled concurrently; the guard saw it first
		}
		remaining -= e.Seats
		e.Status = model.WaitlistOffered
		d := deadline
		e.OfferExpiresAt = &d
		offered = append(offered, e)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return offered, nil
}

// AcceptOffer confirms an outstanding offer before its deadline.  An offer
// found past its deadline is lazily flipped to expired and rejected with
// ErrOfferExpired; reprocessing is deliberately left to the periodic sweep
// to avoid redundant cascades inside a single request.  Acceptance does not
// allocate seats – the caller proceeds through the normal allocation path.
func (s *WaitlistService) AcceptOffer(ctx context.Context, entryID, userID uint64) (*model.WaitlistEntry, error) {
	entry, err := s.waitlist.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, repository.ErrForbidden
	}
	if entry.Status != model.WaitlistOffered {
		return nil, repository.ErrInvalidTransition
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	did, err := s.waitlist.ConfirmTx(ctx, tx, entryID)
	if err != nil {
		return nil, err
	}
	if !did {
		// Either the window passed or a sweep/cancel got there first.
		if entry.OfferExpiresAt != nil && !entry.OfferExpiresAt.After(time.Now().UTC()) {
			if _, err := s.waitlist.MarkOfferExpiredTx(ctx, tx, entryID); err != nil {
				return nil, err
			}
			if err := tx.Commit(); err != nil {
				return nil, err
			}
			committed = true
			return nil, repository.ErrOfferExpired
		}
		return nil, repository.ErrInvalidTransition
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	entry.Status = model.WaitlistConfirmed
	return entry, nil
}

// DeclineOffer turns down an outstanding offer and immediately reprocesses
// the flight so the freed opportunity cascades to the next eligible entry
// without waiting for the sweep.  Declining an entry that is already
// terminal is a no-op, tolerating duplicate client retries.
func (s *WaitlistService) DeclineOffer(ctx context.Context, entryID, userID uint64) error {
	entry, err := s.waitlist.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.UserID != userID {
		return repository.ErrForbidden
	}
	if entry.Status != model.WaitlistOffered {
		if terminalWaitlist(entry.Status) {
			return nil
		}
		return repository.ErrInvalidTransition
	}
	if err := s.cancelEntry(ctx, entryID); err != nil {
		return err
	}
	if _, err := s.ProcessWaitlist(ctx, entry.FlightID); err != nil {
		log.Printf("waitlist: reprocess after decline failed for flight %d: %v", entry.FlightID, err)
	}
	return nil
}

// CancelEntry withdraws a waiting entry or an outstanding offer.  Only the
// owning user may cancel.  Cancelling an offered entry frees an opportunity
// and triggers the same immediate cascade as a decline; cancelling a
// terminal entry is a no-op.
func (s *WaitlistService) CancelEntry(ctx context.Context, entryID, userID uint64) error {
	entry, err := s.waitlist.GetByID(ctx, entryID)
	if err != nil {
		return err
	}
	if entry.UserID != userID {
		return repository.ErrForbidden
	}
	if terminalWaitlist(entry.Status) {
		return nil
	}
	wasOffered := entry.Status == model.WaitlistOffered
	if err := s.cancelEntry(ctx, entryID); err != nil {
		return err
	}
	if wasOffered {
		if _, err := s.ProcessWaitlist(ctx, entry.FlightID); err != nil {
			log.Printf("waitlist: reprocess after cancel failed for flight %d: %v", entry.FlightID, err)
		}
	}
	return nil
}

// cancelEntry applies the guarded cancel transition in its own transaction.
func (s *WaitlistService) cancelEntry(ctx context.Context, entryID uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := s.waitlist.CancelTx(ctx, tx, entryID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ProcessExpiredOffers is the periodic sweep over offers whose acceptance
// window has passed.  Each entry is flipped in its own transaction so a
// crash mid-sweep leaves committed transitions final, and affected flights
// are collected into a set so each is reprocessed exactly once however many
// of its offers expired this tick.  Returns the number of offers expired.
func (s *WaitlistService) ProcessExpiredOffers(ctx context.Context) (int, error) {
	expired, err := s.waitlist.ListExpiredOffers(ctx, s.SweepBatch)
	if err != nil {
		return 0, err
	}
	count := 0
	flights := make(map[uint64]struct{})
	for i := range expired {
		e := &expired[i]
		did, err := s.expireOffer(ctx, e.ID)
		if err != nil {
			log.Printf("waitlist: expire offer %d failed: %v", e.ID, err)
			continue
		}
		if did {
			count++
			flights[e.FlightID] = struct{}{}
		}
	}
	for flightID := range flights {
		if _, err := s.ProcessWaitlist(ctx, flightID); err != nil {
			log.Printf("waitlist: reprocess after offer expiry failed for flight %d: %v", flightID, err)
		}
	}
	return count, nil
}

// expireOffer flips one offer in its own transaction.
func (s *WaitlistService) expireOffer(ctx context.Context, entryID uint64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	did, err := s.waitlist.MarkOfferExpiredTx(ctx, tx, entryID)
	if err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return did, nil
}

// GetUserWaitlist returns all of a user's entries, newest first.
func (s *WaitlistService) GetUserWaitlist(ctx context.Context, userID uint64) ([]model.WaitlistEntry, error) {
	return s.waitlist.ListByUser(ctx, userID)
}

// GetFlightWaitlist returns every entry of a flight in queue order.  Admin
// surface; ownership is not checked here.
func (s *WaitlistService) GetFlightWaitlist(ctx context.Context, flightID uint64) ([]model.WaitlistEntry, error) {
	return s.waitlist.ListByFlight(ctx, flightID)
}

// publishOffer emits a waitlist.offered event; failures are logged and
// otherwise ignored so an unreachable broker never blocks offers.
func (s *WaitlistService) publishOffer(ctx context.Context, e *model.WaitlistEntry) {
	if s.events == nil {
		return
	}
	ev := queue.Event{
		ID:          uuid.NewString(),
		Type:        queue.TypeWaitlistOffered,
		OccurredAt:  time.Now().UTC().Format(time.RFC3339),
		FlightID:    e.FlightID,
		CabinClass:  e.CabinClass,
		UserID:      e.UserID,
		Seats:       e.Seats,
		WaitlistID:  e.ID,
		NotifyEmail: e.NotifyEmail,
		NotifySMS:   e.NotifySMS,
	}
	if e.OfferExpiresAt != nil {
		ev.OfferExpiresAt = e.OfferExpiresAt.UTC().Format(time.RFC3339)
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("waitlist: publish offer event for entry %d failed: %v", e.ID, err)
	}
}

// terminalWaitlist reports whether the status is one no transition leaves.
func terminalWaitlist(status string) bool {
	switch status {
	case model.WaitlistConfirmed, model.WaitlistExpired, model.WaitlistCancelled:
		return true
	}
	return false
}
