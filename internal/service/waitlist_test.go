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

func newWaitlistService(db *sql.DB) *WaitlistService {
	return NewWaitlistService(db, repository.NewInventoryRepo(db), repository.NewWaitlistRepo(db), nil, 24*time.Hour)
}

var waitlistCols = []string{
	"id", "flight_id", "cabin_class", "user_id", "seats", "priority", "status",
	"offered_at", "offer_expires_at", "confirmed_at", "notify_email", "notify_sms", "created_at",
}

func waitingRow(rows *sqlmock.Rows, id uint64, userID uint64, seats int, priority int64) *sqlmock.Rows {
	return rows.AddRow(id, 10, "economy", userID, seats, priority, model.WaitlistWaiting,
		nil, nil, nil, true, false, time.Now().UTC())
}

func offeredRows(id uint64, userID uint64, seats int, offerExpiresAt time.Time) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(waitlistCols).
		AddRow(id, 10, "economy", userID, seats, 1, model.WaitlistOffered,
			now.Add(-time.Hour), offerExpiresAt, nil, true, false, now)
}

func TestAddToWaitlistRejectedWhileSeatsAvailable(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newWaitlistService(db)

	mock.ExpectQuery("SELECT available_seats").WithArgs(10, "economy").
		WillReturnRows(sqlmock.NewRows([]string{"available_seats"}).AddRow(5))

	_, err := svc.AddToWaitlist(context.Background(), 10, "economy", 2, 5, true, false)
	if !errors.Is(err, ErrSeatsAvailable) {
		t.Fatalf("expected ErrSeatsAvailable, got %v", err)
	}
}

func TestAddToWaitlistRejectsDuplicateActiveEntry(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newWaitlistService(db)

	mock.ExpectQuery("SELECT available_seats").WithArgs(10, "economy").
		WillReturnRows(sqlmock.NewRows([]string{"available_seats"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT").WithArgs(10, "economy", 5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.AddToWaitlist(context.Background(), 10, "economy", 2, 5, true, false)
	if !errors.Is(err, repository.ErrDuplicateWaitlist) {
		t.Fatalf("expected ErrDuplicateWaitlist, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddToWaitlistAssignsNextPriority(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newWaitlistService(db)

	mock.ExpectQuery("SELECT available_seats").WithArgs(10, "economy").
		WillReturnRows(sqlmock.NewRows([]string{"available_seats"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT").WithArgs(10, "economy", 5).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO waitlist_entries").
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectQuery("SELECT priority FROM waitlist_entries").WithArgs(41).
		WillReturnRows(sqlmock.NewRows([]string{"priority"}).AddRow(4))
	mock.ExpectCommit()

	entry, err := svc.AddToWaitlist(context.Background(), 10, "economy", 2, 5, true, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if entry.ID != 41 || entry.Priority != 4 {
		t.Fatalf("unexpected entry id/priority: %d/%d", entry.ID, entry.Priority)
	}
	if entry.Status != model.WaitlistWaiting {
		t.Fatalf("expected waiting status, got %s", entry.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessWaitlistSkipsOversizedPartyWithoutBlocking(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newWaitlistService(db)

	// Three seats free; first in line wants five, second wants two.  The
	// size-5 party is skipped in place and the size-2 party gets the offer.
	mock.ExpectQuery("SELECT DISTINCT cabin_class").WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"cabin_class"}).AddRow("economy"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, flight_id, cabin_class").WithArgs(10, "economy").
		WillReturnRows(inventoryRows(10, "economy", 180, 3, 0))
	rows := sqlmock.NewRows(waitlistCols)
	rows = waitingRow(rows, 1, 100, 5, 1)
	rows = waitingRow(rows, 2, 101, 2, 2)
	mock.ExpectQuery("ORDER BY priority ASC").WithArgs(10, "economy").
		WillReturnRows(rows)
	mock.ExpectExec("SET status = 'offered'").WithArgs(sqlmock.AnyArg(), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	offered, err := svc.ProcessWaitlist(context.Background(), 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(offered) != 1 || offered[0].ID != 2 {
		t.Fatalf("expected only entry 2 to be offered, got %+v", offered)
	}
	if offered[0].OfferExpiresAt == nil {
		t.Fatalf("offer deadline should be stamped")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestProcessWaitlistOffersInPriorityOrderUntilCapacityRuns(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newWaitlistService(db)

	// Four seats free and three size-2 parties: the first two are offered,
	// the third stays waiting.
	mock.ExpectQuery("SELECT DISTINCT cabin_class").WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"cabin_class"}).AddRow("economy"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, flight_id, cabin_class").WithArgs(10, "economy").
		WillReturnRows(inventoryRows(10, "economy", 180, 4, 0))
	rows := sqlmock.NewRows(waitlistCols)
	rows = waitingRow(rows, 1, 100, 2, 1)
	rows = waitingRow(rows, 2, 101, 2, 2)
	rows = waitingRow(rows, 3, 102, 2, 3)
	mock.ExpectQuery("ORDER BY priority ASC").WithArgs(10, "economy").
		WillReturnRows(rows)
	mock.ExpectExec("SET status = 'offered'").WithArgs(sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("SET status = 'offered'").WithArgs(sqlmock.AnyArg(), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	offered, err := svc.ProcessWaitlist(context.Background(), 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(offered) != 2 || offered[0].ID != 1 || offered[1].ID != 2 {
		t.Fatalf("expected entries 1 and 2 in order, got %+v", offered)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAcceptOfferPastDeadlineLazilyExpires(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newWaitlistService(db)
	past := time.Now().UTC().Add(-time.Minute)

	mock.ExpectQuery("SELECT id, flight_id, cabin_class, user_id").WithArgs(7).
		WillReturnRows(offeredRows(7, 5, 2, past))
	mock.ExpectBegin()
	mock.ExpectExec("SET status = 'confirmed'").WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET status = 'expired'").WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := svc.AcceptOffer(context.Background(), 7, 5)
	if !errors.Is(err, repository.ErrOfferExpired) {
		t.Fatalf("expected ErrOfferExpired, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAcceptOfferWithinWindowConfirms(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newWaitlistService(db)
	future := time.Now().UTC().Add(time.Hour)

	mock.ExpectQuery("SELECT id, flight_id, cabin_class, user_id").WithArgs(7).
		WillReturnRows(offeredRows(7, 5, 2, future))
	mock.ExpectBegin()
	mock.ExpectExec("SET status = 'confirmed'").WithArgs(7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entry, err := svc.AcceptOffer(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if entry.Status != model.WaitlistConfirmed {
		t.Fatalf("expected confirmed, got %s", entry.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAcceptOfferForbiddenForOtherUser(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newWaitlistService(db)
	future := time.Now().UTC().Add(time.Hour)

	mock.ExpectQuery("SELECT id, flight_id, cabin_class, user_id").WithArgs(7).
		WillReturnRows(offeredRows(7, 5, 2, future))

	if _, err := svc.AcceptOffer(context.Background(), 7, 99); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDeclineOfferOnTerminalEntryIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newWaitlistService(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, flight_id, cabin_class, user_id").WithArgs(7).
		WillReturnRows(sqlmock.NewRows(waitlistCols).
			AddRow(7, 10, "economy", 5, 2, 1, model.WaitlistCancelled,
				nil, nil, nil, true, false, now))

	if err := svc.DeclineOffer(context.Background(), 7, 5); err != nil {
		t.Fatalf("duplicate decline should be a no-op, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetPositionCountsWaitingAhead(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newWaitlistService(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT id, flight_id, cabin_class, user_id").WithArgs(7).
		WillReturnRows(sqlmock.NewRows(waitlistCols).
			AddRow(7, 10, "economy", 5, 2, 9, model.WaitlistWaiting,
				nil, nil, nil, true, false, now))
	mock.ExpectQuery("SELECT COUNT").WithArgs(10, "economy", 9).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	_, pos, err := svc.GetPosition(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pos != 3 {
		t.Fatalf("expected position 3, got %d", pos)
	}
}

func TestGetPositionZeroForOfferedEntry(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newWaitlistService(db)
	future := time.Now().UTC().Add(time.Hour)

	mock.ExpectQuery("SELECT id, flight_id, cabin_class, user_id").WithArgs(7).
		WillReturnRows(offeredRows(7, 5, 2, future))

	entry, pos, err := svc.GetPosition(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if pos != 0 {
		t.Fatalf("offered entries have no queue position, got %d", pos)
	}
	if entry.Status != model.WaitlistOffered {
		t.Fatalf("expected offered entry, got %s", entry.Status)
	}
}

func TestProcessExpiredOffersDeduplicatesFlights(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newWaitlistService(db)
	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	// Two lapsed offers on the same flight: two flips, one reprocess.
	mock.ExpectQuery("FROM waitlist_entries WHERE status = 'offered'").WithArgs(500).
		WillReturnRows(sqlmock.NewRows(waitlistCols).
			AddRow(1, 10, "economy", 100, 2, 1, model.WaitlistOffered, past, past, nil, true, false, now).
			AddRow(2, 10, "economy", 101, 1, 2, model.WaitlistOffered, past, past, nil, true, false, now))
	for _, id := range []int{1, 2} {
		mock.ExpectBegin()
		mock.ExpectExec("SET status = 'expired'").WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}
	mock.ExpectQuery("SELECT DISTINCT cabin_class").WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"cabin_class"}))

	n, err := svc.ProcessExpiredOffers(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 expired offers, got %d", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
