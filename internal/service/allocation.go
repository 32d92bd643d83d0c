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

// AllocationService is the single entry point for seat-count changes: it
// composes the seat ledger and the hold manager, and hands freed capacity
// to the waitlist.  Every mutation runs the ledger's conditional update and
// the hold transition inside one transaction, so the counter and the hold
// row can never disagree.
type AllocationService struct {
	db        *sql.DB
	flights   *repository.FlightRepo
	inventory *repository.InventoryRepo
	holds     *repository.SeatHoldRepo
	bookings  *repository.BookingRepo
	waitlist  *WaitlistService
	events    EventPublisher

	// HoldTTL is the lifetime of a new hold.
	HoldTTL time.Duration
	// LimitedPercent is the availability percentage at or below which the
	// inventory status reads "limited".
	LimitedPercent int
	// SweepBatch bounds how many expired holds one sweep pass handles.
	SweepBatch int
}

// NewAllocationService constructs an AllocationService.  events may be nil
// to disable event publishing.
func NewAllocationService(db *sql.DB, flights *repository.FlightRepo, inventory *repository.InventoryRepo, holds *repository.SeatHoldRepo, bookings *repository.BookingRepo, waitlist *WaitlistService, events EventPublisher, holdTTL time.Duration, limitedPercent int) *AllocationService {
	if db == nil || flights == nil || inventory == nil || holds == nil || bookings == nil || waitlist == nil {
		panic("nil dependency passed to NewAllocationService")
	}
	if holdTTL <= 0 {
		holdTTL = 10 * time.Minute
	}
	if limitedPercent <= 0 {
		limitedPercent = 10
	}
	return &AllocationService{
		db:             db,
		flights:        flights,
		inventory:      inventory,
		holds:          holds,
		bookings:       bookings,
		waitlist:       waitlist,
		events:         events,
		HoldTTL:        holdTTL,
		LimitedPercent: limitedPercent,
		SweepBatch:     500,
	}
}

// ScheduleFlight creates a flight and its per-cabin inventory rows in one
// transaction.  Each inventory starts with availability equal to physical
// capacity and a zero overbooking allowance.
func (s *AllocationService) ScheduleFlight(ctx context.Context, f *model.Flight, cabins []model.FlightInventory) error {
	for _, c := range cabins {
		if !model.ValidCabin(c.CabinClass) || c.TotalSeats <= 0 {
			return repository.ErrConflict
		}
	}
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
	if err := s.flights.CreateTx(ctx, tx, f); err != nil {
		return err
	}
	for i := range cabins {
		cabins[i].FlightID = f.ID
	}
	if err := s.inventory.CreateBulkTx(ctx, tx, cabins); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// AllocateSeats attempts to hold seats for a shopping session.  The ledger
// decrement and the hold insert commit together; a losing racer gets
// ErrInsufficientSeats and may explicitly join the waitlist – the engine
// never enrolls anyone automatically.
func (s *AllocationService) AllocateSeats(ctx context.Context, flightID uint64, cabin string, seats int, userID uint64, sessionID string) (*model.SeatHold, error) {
	if seats < 1 || seats > 9 {
		return nil, ErrSeatCount
	}
	if !model.ValidCabin(cabin) {
		return nil, repository.ErrNotFound
	}
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if flight.Status != model.FlightScheduled {
		return nil, ErrFlightClosed
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
	if err := s.inventory.TryDecrementTx(ctx, tx, flightID, cabin, seats); err != nil {
		return nil, err
	}
	hold := &model.SeatHold{
		HoldToken:  repository.NewHoldToken(),
		FlightID:   flightID,
		CabinClass: cabin,
		SeatCount:  seats,
		UserID:     userID,
		SessionID:  sessionID,
		ExpiresAt:  time.Now().UTC().Add(s.HoldTTL),
	}
	if err := s.holds.CreateTx(ctx, tx, hold); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return hold, nil
}

// ReleaseSeatHold cancels a hold and credits its seats back to the ledger,
// then reprocesses the flight's waitlist with the freed capacity.
// Releasing a hold that is already released, expired or converted is a
// no-op, not an error, so duplicate client retries are harmless.  Only the
// owning user may release.
func (s *AllocationService) ReleaseSeatHold(ctx context.Context, holdToken string, userID uint64) error {
	hold, err := s.holds.GetByToken(ctx, holdToken)
	if err != nil {
		return err
	}
	if hold.UserID != userID {
		return repository.ErrForbidden
	}
	if hold.Status != model.HoldActive {
		return nil
	}
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
	did, err := s.holds.ReleaseTx(ctx, tx, hold.ID)
	if err != nil {
		return err
	}
	if !did {
		// Lost a race with the sweep or another retry; the seats were
		// already credited by whoever won.
		return nil
	}
	if err := s.inventory.IncrementTx(ctx, tx, hold.FlightID, hold.CabinClass, hold.SeatCount); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	if _, err := s.waitlist.ProcessWaitlist(ctx, hold.FlightID); err != nil {
		log.Printf("allocation: reprocess after release failed for flight %d: %v", hold.FlightID, err)
	}
	return nil
}

// ConvertSeatHold finalizes a hold into a confirmed booking.  The seats
// were decremented when the hold was created, so conversion touches only
// the hold row and the bookings table.  A hold past its deadline is never
// convertible, even before the sweep reclaims it.
func (s *AllocationService) ConvertSeatHold(ctx context.Context, holdToken string, userID uint64, fareCents int64, volunteerBump bool) (*model.Booking, error) {
	hold, err := s.holds.GetByToken(ctx, holdToken)
	if err != nil {
		return nil, err
	}
	if hold.UserID != userID {
		return nil, repository.ErrForbidden
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
	did, err := s.holds.ConvertTx(ctx, tx, hold.ID)
	if err != nil {
		return nil, err
	}
	if !did {
		if hold.Status == model.HoldActive && repository.Expired(hold, time.Now().UTC()) {
			return nil, ErrHoldExpired
		}
		return nil, repository.ErrInvalidTransition
	}
	booking := &model.Booking{
		FlightID:      hold.FlightID,
		CabinClass:    hold.CabinClass,
		UserID:        hold.UserID,
		SeatCount:     hold.SeatCount,
		FareCents:     fareCents,
		VolunteerBump: volunteerBump,
	}
	if err := s.bookings.CreateTx(ctx, tx, booking); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return booking, nil
}

// ExpireOldHolds is the periodic sweep reclaiming holds whose deadline has
// passed.  Each hold is expired and credited in its own transaction: a
// crash mid-sweep leaves every committed row final, and the guarded
// transition means a re-run can never double-credit seats.  Affected
// flights are collected into a set and reprocessed once each.  Returns the
// number of holds expired.
func (s *AllocationService) ExpireOldHolds(ctx context.Context) (int, error) {
	expired, err := s.holds.ListExpired(ctx, s.SweepBatch)
	if err != nil {
		return 0, err
	}
	count := 0
	flights := make(map[uint64]struct{})
	for i := range expired {
		h := &expired[i]
		did, err := s.expireHold(ctx, h)
		if err != nil {
			log.Printf("allocation: expire hold %d failed: %v", h.ID, err)
			continue
		}
		if did {
			count++
			flights[h.FlightID] = struct{}{}
			s.publishHoldExpired(ctx, h)
		}
	}
	for flightID := range flights {
		if _, err := s.waitlist.ProcessWaitlist(ctx, flightID); err != nil {
			log.Printf("allocation: reprocess after expiry failed for flight %d: %v", flightID, err)
		}
	}
	return count, nil
}

// expireHold transitions one hold and credits its seats in one transaction.
func (s *AllocationService) expireHold(ctx context.Context, h *model.SeatHold) (bool, error) {
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
	did, err := s.holds.ExpireTx(ctx, tx, h.ID)
	if err != nil {
		return false, err
	}
	if !did {
		// Released or converted since the list query; nothing to credit.
		return false, nil
	}
	if err := s.inventory.IncrementTx(ctx, tx, h.FlightID, h.CabinClass, h.SeatCount); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	return true, nil
}

// InventoryStatus is the availability summary returned to shoppers.
type InventoryStatus struct {
	FlightID       uint64 `json:"flight_id"`
	CabinClass     string `json:"cabin_class"`
	AvailableSeats int    `json:"available_seats"`
	Status         string `json:"status"`
}

// GetInventoryStatus reports sellable availability and a coarse status for
// one (flight, cabin) pair.  Ledger-based availability is correct in real
// time – expired-but-unswept holds were already deducted when created, so
// their seats read as unavailable until the sweep credits them back.
func (s *AllocationService) GetInventoryStatus(ctx context.Context, flightID uint64, cabin string) (*InventoryStatus, error) {
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	inv, err := s.inventory.Get(ctx, flightID, cabin)
	if err != nil {
		return nil, err
	}
	st := &InventoryStatus{
		FlightID:       flightID,
		CabinClass:     cabin,
		AvailableSeats: inv.AvailableSeats,
	}
	switch {
	case flight.Status != model.FlightScheduled:
		st.Status = model.InventoryClosed
	case inv.AvailableSeats <= 0:
		st.Status = model.InventoryWaitlistOnly
	case inv.AvailableSeats*100 <= inv.TotalSeats*s.LimitedPercent:
		st.Status = model.InventoryLimited
	default:
		st.Status = model.InventoryAvailable
	}
	return st, nil
}

// ApplyOverbookingAllowance sets the oversell allowance of a (flight,
// cabin) pair, typically to the advisor's recommendation.  Newly granted
// extra seats become sellable immediately, so the waitlist is reprocessed.
func (s *AllocationService) ApplyOverbookingAllowance(ctx context.Context, flightID uint64, cabin string, extra int) error {
	if extra < 0 {
		return repository.ErrConflict
	}
	if err := s.inventory.SetAllowance(ctx, flightID, cabin, extra); err != nil {
		return err
	}
	if _, err := s.waitlist.ProcessWaitlist(ctx, flightID); err != nil {
		log.Printf("allocation: reprocess after allowance change failed for flight %d: %v", flightID, err)
	}
	return nil
}

// GetUserHolds returns the user's active, unexpired holds, soonest-expiring
// first.
func (s *AllocationService) GetUserHolds(ctx context.Context, userID uint64) ([]model.SeatHold, error) {
	return s.holds.ActiveByUser(ctx, userID)
}

// publishHoldExpired emits a hold.expired event; failures are logged and
// otherwise ignored.
func (s *AllocationService) publishHoldExpired(ctx context.Context, h *model.SeatHold) {
	if s.events == nil {
		return
	}
	ev := queue.Event{
		ID:         uuid.NewString(),
		Type:       queue.TypeHoldExpired,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
		FlightID:   h.FlightID,
		CabinClass: h.CabinClass,
		UserID:     h.UserID,
		Seats:      h.SeatCount,
		HoldToken:  h.HoldToken,
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("allocation: publish hold.expired for hold %d failed: %v", h.ID, err)
	}
}
