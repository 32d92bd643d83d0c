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

// DeniedBoardingService resolves the case where the overbooking gamble did
// not pay off: confirmed check-ins exceed physical seats and passengers
// must be bumped.  Volunteers are taken before anyone is bumped
// involuntarily; within each group the cheapest, most recently booked
// fares go first.  The resolver records compensation obligations but does
// not pay them, and it never mutates the seat ledger.
type DeniedBoardingService struct {
	db       *sql.DB
	flights  *repository.FlightRepo
	bookings *repository.BookingRepo
	records  *repository.DeniedBoardingRepo
	events   EventPublisher

	// VoluntaryPct and InvoluntaryPct express compensation as a percent of
	// the bumped fare; CompCapCents bounds any single obligation.
	VoluntaryPct   int
	InvoluntaryPct int
	CompCapCents   int64
}

// NewDeniedBoardingService constructs a DeniedBoardingService.  events may
// be nil to disable event publishing.
func NewDeniedBoardingService(db *sql.DB, flights *repository.FlightRepo, bookings *repository.BookingRepo, records *repository.DeniedBoardingRepo, events EventPublisher, voluntaryPct, involuntaryPct int, compCapCents int64) *DeniedBoardingService {
	if db == nil || flights == nil || bookings == nil || records == nil {
		panic("nil dependency passed to NewDeniedBoardingService")
	}
	if voluntaryPct <= 0 {
		voluntaryPct = 125
	}
	if involuntaryPct <= 0 {
		involuntaryPct = 200
	}
	if compCapCents <= 0 {
		compCapCents = 135000
	}
	return &DeniedBoardingService{
		db:             db,
		flights:        flights,
		bookings:       bookings,
		records:        records,
		events:         events,
		VoluntaryPct:   voluntaryPct,
		InvoluntaryPct: involuntaryPct,
		CompCapCents:   compCapCents,
	}
}

// HandleDeniedBoarding selects bump candidates covering seatsNeeded seats
// and creates one pending DeniedBoardingRecord per bumped booking.
// Volunteers come first and receive a voucher at the voluntary rate;
// remaining seats are covered involuntarily at the cash rate.  Each record
// carries the next same-route flight with room as a rebooking suggestion
// when one exists.  Candidate selection, bump transitions and record
// inserts commit atomically.  The returned records may cover fewer seats
// than requested when the cabin simply has too few bookings to bump.
func (s *DeniedBoardingService) HandleDeniedBoarding(ctx context.Context, flightID uint64, cabin string, seatsNeeded int) ([]model.DeniedBoardingRecord, error) {
	if seatsNeeded < 1 {
		return nil, repository.ErrConflict
	}
	if !model.ValidCabin(cabin) {
		return nil, repository.ErrNotFound
	}
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
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
	candidates, err := s.bookings.BumpCandidatesTx(ctx, tx, flightID, cabin)
	if err != nil {
		return nil, err
	}
	var recs []model.DeniedBoardingRecord
	var bumped []model.Booking
	covered := 0
	for _, b := range candidates {
		if covered >= seatsNeeded {
			break
		}
		did, err := s.bookings.MarkBumpedTx(ctx, tx, b.ID)
		if err != nil {
			return nil, err
		}
		if !did {
			continue // already bumped by an overlapping run
		}
		bumpType := model.BumpInvoluntary
		compType := model.CompCash
		pct := s.InvoluntaryPct
		if b.VolunteerBump {
			bumpType = model.BumpVoluntary
			compType = model.CompVoucher
			pct = s.VoluntaryPct
		}
		comp := b.FareCents * int64(pct) / 100
		if comp > s.CompCapCents {
			comp = s.CompCapCents
		}
		rec := model.DeniedBoardingRecord{
			FlightID:          flightID,
			BookingID:         b.ID,
			Type:              bumpType,
			CompensationCents: comp,
			CompensationType:  compType,
		}
		// Rebooking suggestion is advisory; a miss leaves the field empty.
		if alt, err := s.flights.NextAlternative(ctx, flight, cabin, b.SeatCount); err == nil {
			id := alt.ID
			rec.AlternativeFlightID = &id
		} else if err != repository.ErrNotFound {
			return nil, err
		}
		if err := s.records.CreateTx(ctx, tx, &rec); err != nil {
			return nil, err
		}
		covered += b.SeatCount
		recs = append(recs, rec)
		bumped = append(bumped, b)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	for i := range recs {
		s.publishDenied(ctx, &recs[i], &bumped[i])
	}
	return recs, nil
}

// UpdateRecordStatus applies an admin lifecycle transition to a record:
// pending to accepted or rejected, accepted to completed.
func (s *DeniedBoardingService) UpdateRecordStatus(ctx context.Context, recordID uint64, status string) error {
	return s.records.UpdateStatus(ctx, recordID, status)
}

// ListRecords returns all denied-boarding records of a flight.
func (s *DeniedBoardingService) ListRecords(ctx context.Context, flightID uint64) ([]model.DeniedBoardingRecord, error) {
	return s.records.ListByFlight(ctx, flightID)
}

// publishDenied emits a boarding.denied event; failures are logged and
// otherwise ignored.
func (s *DeniedBoardingService) publishDenied(ctx context.Context, rec *model.DeniedBoardingRecord, b *model.Booking) {
	if s.events == nil {
		return
	}
	ev := queue.Event{
		ID:                uuid.NewString(),
		Type:              queue.TypeBoardingDenied,
		OccurredAt:        time.Now().UTC().Format(time.RFC3339),
		FlightID:          rec.FlightID,
		CabinClass:        b.CabinClass,
		UserID:            b.UserID,
		Seats:             b.SeatCount,
		BookingID:         rec.BookingID,
		CompensationCents: rec.CompensationCents,
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.Printf("denied-boarding: publish event for record %d failed: %v", rec.ID, err)
	}
}
