package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kafaat/airline-seat-inventory/internal/model"
	"github.com/kafaat/airline-seat-inventory/internal/repository"
)

func newDeniedService(db *sql.DB) *DeniedBoardingService {
	return NewDeniedBoardingService(db,
		repository.NewFlightRepo(db),
		repository.NewBookingRepo(db),
		repository.NewDeniedBoardingRepo(db),
		nil, 125, 200, 135000)
}

var bookingCols = []string{"id", "flight_id", "cabin_class", "user_id", "seat_count", "fare_cents", "status", "volunteer_bump", "booked_at"}

func bookingRow(rows *sqlmock.Rows, id uint64, seats int, fareCents int64, volunteer bool) *sqlmock.Rows {
	return rows.AddRow(id, 10, "economy", id+100, seats, fareCents, model.BookingConfirmed, volunteer, time.Now().UTC())
}

func TestDeniedBoardingBumpsVolunteersFirstWithCorrectCompensation(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newDeniedService(db)

	mock.ExpectQuery("SELECT id, flight_number").WithArgs(10).
		WillReturnRows(flightRows(10, model.FlightScheduled))
	mock.ExpectBegin()
	// Candidates arrive pre-sorted: volunteer first, then cheapest fare.
	rows := sqlmock.NewRows(bookingCols)
	rows = bookingRow(rows, 1, 1, 10000, true)
	rows = bookingRow(rows, 2, 1, 5000, false)
	mock.ExpectQuery("ORDER BY volunteer_bump DESC").WithArgs(10, "economy").
		WillReturnRows(rows)

	mock.ExpectExec("UPDATE bookings SET status = 'bumped'").WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("JOIN flight_inventory").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO denied_boarding_records").
		WillReturnResult(sqlmock.NewResult(501, 1))

	mock.ExpectExec("UPDATE bookings SET status = 'bumped'").WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("JOIN flight_inventory").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO denied_boarding_records").
		WillReturnResult(sqlmock.NewResult(502, 1))
	mock.ExpectCommit()

	recs, err := svc.HandleDeniedBoarding(context.Background(), 10, "economy", 2)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	vol := recs[0]
	if vol.Type != model.BumpVoluntary || vol.CompensationType != model.CompVoucher {
		t.Fatalf("first bump should be the volunteer with a voucher, got %+v", vol)
	}
	if vol.CompensationCents != 12500 {
		// 10000 * 125%
		t.Fatalf("expected 12500 voucher cents, got %d", vol.CompensationCents)
	}
	invol := recs[1]
	if invol.Type != model.BumpInvoluntary || invol.CompensationType != model.CompCash {
		t.Fatalf("second bump should be involuntary cash, got %+v", invol)
	}
	if invol.CompensationCents != 10000 {
		// 5000 * 200%
		t.Fatalf("expected 10000 cash cents, got %d", invol.CompensationCents)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeniedBoardingCompensationIsCapped(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newDeniedService(db)

	mock.ExpectQuery("SELECT id, flight_number").WithArgs(10).
		WillReturnRows(flightRows(10, model.FlightScheduled))
	mock.ExpectBegin()
	rows := sqlmock.NewRows(bookingCols)
	rows = bookingRow(rows, 1, 2, 200000, false)
	mock.ExpectQuery("ORDER BY volunteer_bump DESC").WithArgs(10, "economy").
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE bookings SET status = 'bumped'").WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("JOIN flight_inventory").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO denied_boarding_records").
		WillReturnResult(sqlmock.NewResult(501, 1))
	mock.ExpectCommit()

	recs, err := svc.HandleDeniedBoarding(context.Background(), 10, "economy", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if recs[0].CompensationCents != 135000 {
		// 200000 * 200% = 400000, clamped to the cap
		t.Fatalf("expected capped compensation 135000, got %d", recs[0].CompensationCents)
	}
}

func TestDeniedBoardingSkipsAlreadyBumpedCandidates(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newDeniedService(db)

	mock.ExpectQuery("SELECT id, flight_number").WithArgs(10).
		WillReturnRows(flightRows(10, model.FlightScheduled))
	mock.ExpectBegin()
	rows := sqlmock.NewRows(bookingCols)
	rows = bookingRow(rows, 1, 1, 8000, false)
	rows = bookingRow(rows, 2, 1, 9000, false)
	mock.ExpectQuery("ORDER BY volunteer_bump DESC").WithArgs(10, "economy").
		WillReturnRows(rows)

	// Candidate 1 was bumped by an overlapping run; the guard matches no
	// row and the walk moves on without recording anything for it.
	mock.ExpectExec("UPDATE bookings SET status = 'bumped'").WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE bookings SET status = 'bumped'").WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("JOIN flight_inventory").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO denied_boarding_records").
		WillReturnResult(sqlmock.NewResult(501, 1))
	mock.ExpectCommit()

	recs, err := svc.HandleDeniedBoarding(context.Background(), 10, "economy", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(recs) != 1 || recs[0].BookingID != 2 {
		t.Fatalf("expected only booking 2 recorded, got %+v", recs)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeniedBoardingAttachesAlternativeFlight(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newDeniedService(db)

	mock.ExpectQuery("SELECT id, flight_number").WithArgs(10).
		WillReturnRows(flightRows(10, model.FlightScheduled))
	mock.ExpectBegin()
	rows := sqlmock.NewRows(bookingCols)
	rows = bookingRow(rows, 1, 1, 8000, false)
	mock.ExpectQuery("ORDER BY volunteer_bump DESC").WithArgs(10, "economy").
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE bookings SET status = 'bumped'").WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("JOIN flight_inventory").
		WillReturnRows(flightRows(11, model.FlightScheduled))
	mock.ExpectExec("INSERT INTO denied_boarding_records").
		WillReturnResult(sqlmock.NewResult(501, 1))
	mock.ExpectCommit()

	recs, err := svc.HandleDeniedBoarding(context.Background(), 10, "economy", 1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if recs[0].AlternativeFlightID == nil || *recs[0].AlternativeFlightID != 11 {
		t.Fatalf("expected alternative flight 11, got %+v", recs[0].AlternativeFlightID)
	}
}

func TestDeniedBoardingRejectsZeroSeats(t *testing.T) {
	db, _ := newMockDB(t)
	svc := newDeniedService(db)

	if _, err := svc.HandleDeniedBoarding(context.Background(), 10, "economy", 0); err == nil {
		t.Fatalf("expected an error for zero seats needed")
	}
}
