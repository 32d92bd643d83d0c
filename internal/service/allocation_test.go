package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kafaat/airline-seat-inventory/internal/model"
	"github.com/kafaat/airline-seat-inventory/internal/repository"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newAllocService(db *sql.DB) *AllocationService {
	waitlist := NewWaitlistService(db, repository.NewInventoryRepo(db), repository.NewWaitlistRepo(db), nil, time.Hour)
	return NewAllocationService(db,
		repository.NewFlightRepo(db),
		repository.NewInventoryRepo(db),
		repository.NewSeatHoldRepo(db),
		repository.NewBookingRepo(db),
		waitlist, nil, 10*time.Minute, 10)
}

var flightCols = []string{"id", "flight_number", "airline_code", "origin", "destination", "departs_at", "status", "created_at"}

func flightRows(id uint64, status string) *sqlmock.Rows {
	departs := time.Now().UTC().Add(48 * time.Hour)
	return sqlmock.NewRows(flightCols).
		AddRow(id, "KF204", "KF", "DXB", "LHR", departs, status, time.Now().UTC())
}

var holdCols = []string{"id", "hold_token", "flight_id", "cabin_class", "seat_count", "user_id", "session_id", "status", "expires_at", "created_at"}

func holdRows(id uint64, token string, flightID uint64, seats int, userID uint64, status string, expiresAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(holdCols).
		AddRow(id, token, flightID, "economy", seats, userID, "sess-1", status, expiresAt, time.Now().UTC())
}

var inventoryCols = []string{"id", "flight_id", "cabin_class", "total_seats", "available_seats", "overbooking_allowance"}

func inventoryRows(flightID uint64, cabin string, total, available, allowance int) *sqlmock.Rows {
	return sqlmock.NewRows(inventoryCols).
		AddRow(1, flightID, cabin, total, available, allowance)
}

func TestAllocateSeatsCreatesHoldWithLedgerDecrement(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAllocService(db)

	mock.ExpectQuery("SELECT id, flight_number").WithArgs(10).
		WillReturnRows(flightRows(10, model.FlightScheduled))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE flight_inventory SET available_seats = available_seats - ").
		WithArgs(2, 10, "economy", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO seat_holds").
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectCommit()

	hold, err := svc.AllocateSeats(context.Background(), 10, "economy", 2, 5, "sess-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if hold.ID != 77 {
		t.Fatalf("hold id not populated, got %d", hold.ID)
	}
	if hold.HoldToken == "" {
		t.Fatalf("hold token should be generated")
	}
	if hold.Status != model.HoldActive {
		t.Fatalf("expected active hold, got %s", hold.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAllocateSeatsInsufficientRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAllocService(db)

	mock.ExpectQuery("SELECT id, flight_number").WithArgs(10).
		WillReturnRows(flightRows(10, model.FlightScheduled))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE flight_inventory SET available_seats = available_seats - ").
		WithArgs(4, 10, "economy", 4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM flight_inventory").WithArgs(10, "economy").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.AllocateSeats(context.Background(), 10, "economy", 4, 5, "sess-1")
	if !errors.Is(err, repository.ErrInsufficientSeats) {
		t.Fatalf("expected ErrInsufficientSeats, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAllocateSeatsRejectsClosedFlight(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAllocService(db)

	mock.ExpectQuery("SELECT id, flight_number").WithArgs(10).
		WillReturnRows(flightRows(10, model.FlightDeparted))

	_, err := svc.AllocateSeats(context.Background(), 10, "economy", 1, 5, "sess-1")
	if !errors.Is(err, ErrFlightClosed) {
		t.Fatalf("expected ErrFlightClosed, got %v", err)
	}
}

func TestAllocateSeatsRejectsBadSeatCount(t *testing.T) {
	db, _ := newMockDB(t)
	svc := newAllocService(db)

	if _, err := svc.AllocateSeats(context.Background(), 10, "economy", 0, 5, "s"); !errors.Is(err, ErrSeatCount) {
		t.Fatalf("expected ErrSeatCount for 0, got %v", err)
	}
	if _, err := svc.AllocateSeats(context.Background(), 10, "economy", 10, 5, "s"); !errors.Is(err, ErrSeatCount) {
		t.Fatalf("expected ErrSeatCount for 10, got %v", err)
	}
}

func TestReleaseSeatHoldCreditsOnceAndCascades(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAllocService(db)
	expires := time.Now().UTC().Add(5 * time.Minute)

	mock.ExpectQuery("SELECT id, hold_token").WithArgs("tok-1").
		WillReturnRows(holdRows(3, "tok-1", 10, 2, 5, model.HoldActive, expires))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE seat_holds SET status = 'released'").WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE flight_inventory SET available_seats = available_seats").
		WithArgs(2, 10, "economy", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// Freed capacity triggers one waitlist pass; no cabin is waiting here.
	mock.ExpectQuery("SELECT DISTINCT cabin_class").WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"cabin_class"}))

	if err := svc.ReleaseSeatHold(context.Background(), "tok-1", 5); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReleaseSeatHoldAlreadySettledIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAllocService(db)
	expires := time.Now().UTC().Add(-time.Minute)

	// No transaction and no credit for a hold that is not active.
	mock.ExpectQuery("SELECT id, hold_token").WithArgs("tok-1").
		WillReturnRows(holdRows(3, "tok-1", 10, 2, 5, model.HoldReleased, expires))

	if err := svc.ReleaseSeatHold(context.Background(), "tok-1", 5); err != nil {
		t.Fatalf("duplicate release should be a no-op, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReleaseSeatHoldForbiddenForOtherUser(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAllocService(db)
	expires := time.Now().UTC().Add(5 * time.Minute)

	mock.ExpectQuery("SELECT id, hold_token").WithArgs("tok-1").
		WillReturnRows(holdRows(3, "tok-1", 10, 2, 5, model.HoldActive, expires))

	if err := svc.ReleaseSeatHold(context.Background(), "tok-1", 99); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestConvertSeatHoldPastDeadlineRejected(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAllocService(db)
	expires := time.Now().UTC().Add(-time.Minute)

	mock.ExpectQuery("SELECT id, hold_token").WithArgs("tok-1").
		WillReturnRows(holdRows(3, "tok-1", 10, 2, 5, model.HoldActive, expires))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE seat_holds SET status = 'converted'").WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.ConvertSeatHold(context.Background(), "tok-1", 5, 45000, false)
	if !errors.Is(err, ErrHoldExpired) {
		t.Fatalf("expected ErrHoldExpired, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestConvertSeatHoldCreatesBooking(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAllocService(db)
	expires := time.Now().UTC().Add(5 * time.Minute)

	mock.ExpectQuery("SELECT id, hold_token").WithArgs("tok-1").
		WillReturnRows(holdRows(3, "tok-1", 10, 2, 5, model.HoldActive, expires))
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE seat_holds SET status = 'converted'").WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs(10, "economy", 5, 2, int64(45000), false).
		WillReturnResult(sqlmock.NewResult(200, 1))
	mock.ExpectCommit()

	booking, err := svc.ConvertSeatHold(context.Background(), "tok-1", 5, 45000, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if booking.ID != 200 || booking.Status != model.BookingConfirmed {
		t.Fatalf("unexpected booking %+v", booking)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetInventoryStatusThresholds(t *testing.T) {
	cases := []struct {
		name      string
		available int
		want      string
	}{
		{"sold out reads waitlist_only", 0, model.InventoryWaitlistOnly},
		{"at ten percent reads limited", 18, model.InventoryLimited},
		{"above threshold reads available", 19, model.InventoryAvailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			svc := newAllocService(db)

			mock.ExpectQuery("SELECT id, flight_number").WithArgs(10).
				WillReturnRows(flightRows(10, model.FlightScheduled))
			mock.ExpectQuery("SELECT id, flight_id, cabin_class").WithArgs(10, "economy").
				WillReturnRows(inventoryRows(10, "economy", 180, tc.available, 0))

			st, err := svc.GetInventoryStatus(context.Background(), 10, "economy")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if st.Status != tc.want {
				t.Fatalf("got status %q want %q", st.Status, tc.want)
			}
		})
	}
}

func TestGetInventoryStatusClosedFlight(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAllocService(db)

	mock.ExpectQuery("SELECT id, flight_number").WithArgs(10).
		WillReturnRows(flightRows(10, model.FlightCancelled))
	mock.ExpectQuery("SELECT id, flight_id, cabin_class").WithArgs(10, "economy").
		WillReturnRows(inventoryRows(10, "economy", 180, 180, 0))

	st, err := svc.GetInventoryStatus(context.Background(), 10, "economy")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if st.Status != model.InventoryClosed {
		t.Fatalf("got status %q want closed", st.Status)
	}
}

func TestApplyOverbookingAllowanceReapplyIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAllocService(db)

	// MySQL reports zero affected rows when an update changes nothing, so a
	// re-apply of the current allowance must not be mistaken for a conflict.
	mock.ExpectExec("overbooking_allowance = ").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT overbooking_allowance").WithArgs(10, "economy").
		WillReturnRows(sqlmock.NewRows([]string{"overbooking_allowance"}).AddRow(8))
	mock.ExpectQuery("SELECT DISTINCT cabin_class").WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"cabin_class"}))

	if err := svc.ApplyOverbookingAllowance(context.Background(), 10, "economy", 8); err != nil {
		t.Fatalf("re-applying the current allowance should succeed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestExpireOldHoldsCreditsAndDeduplicatesFlights(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newAllocService(db)
	past := time.Now().UTC().Add(-time.Minute)

	// Two expired holds on the same flight: two credits, one reprocess.
	mock.ExpectQuery("FROM seat_holds").WithArgs(500).
		WillReturnRows(sqlmock.NewRows(holdCols).
			AddRow(1, "tok-1", 10, "economy", 2, 5, "s1", model.HoldActive, past, past).
			AddRow(2, "tok-2", 10, "economy", 1, 6, "s2", model.HoldActive, past, past))

	for _, id := range []int{1, 2} {
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE seat_holds SET status = 'expired'").WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE flight_inventory SET available_seats = available_seats").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}
	mock.ExpectQuery("SELECT DISTINCT cabin_class").WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"cabin_class"}))

	n, err := svc.ExpireOldHolds(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 expired holds, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
