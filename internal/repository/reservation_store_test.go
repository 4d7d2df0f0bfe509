package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/seatly/internal/model"
)

var now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewStore(db), mock
}

func reservationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "route_id", "seat_number", "holder_id", "status", "created_at", "updated_at"})
}

func pendingRecord() model.Reservation {
	return model.Reservation{
		ID: "r1", RouteID: "route-1", SeatNumber: "A1", HolderID: "alice",
		Status: model.StatusPending, CreatedAt: now, UpdatedAt: now,
	}
}

var (
	lockSeatSQL   = regexp.QuoteMeta(`INSERT INTO seat_locks (route_id, seat_number) VALUES (?, ?)`)
	checkSeatSQL  = regexp.QuoteMeta(`SELECT id FROM reservations`) + `.*FOR UPDATE`
	insertSQL     = regexp.QuoteMeta(`INSERT INTO reservations (id, route_id, seat_number, holder_id, status, created_at, updated_at)`)
	updateSQL     = regexp.QuoteMeta(`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`)
	selectByIDSQL = regexp.QuoteMeta(`FROM reservations WHERE id = ?`)
)

func TestInsertIfFree(t *testing.T) {
	t.Parallel()

	t.Run("inserts when the seat is free", func(t *testing.T) {
		s, mock := newMock(t)
		rec := pendingRecord()
		mock.ExpectBegin()
		mock.ExpectExec(lockSeatSQL).WithArgs("route-1", "A1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(checkSeatSQL).WithArgs("route-1", "A1").WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(insertSQL).
			WithArgs("r1", "route-1", "A1", "alice", "pending", now, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		if err := s.InsertIfFree(context.Background(), rec); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("rejects a taken seat without inserting", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(lockSeatSQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(checkSeatSQL).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r0"))
		mock.ExpectRollback()

		if err := s.InsertIfFree(context.Background(), pendingRecord()); !errors.Is(err, model.ErrSeatConflict) {
			t.Fatalf("expected ErrSeatConflict, got %v", err)
		}
	})

	t.Run("retries after a deadlock", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(lockSeatSQL).WillReturnError(&mysql.MySQLError{Number: errLockDeadlock, Message: "Deadlock found"})
		mock.ExpectRollback()
		mock.ExpectBegin()
		mock.ExpectExec(lockSeatSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(checkSeatSQL).WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(insertSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		if err := s.InsertIfFree(context.Background(), pendingRecord()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("surfaces other driver errors", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(lockSeatSQL).WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := s.InsertIfFree(context.Background(), pendingRecord())
		if err == nil || errors.Is(err, model.ErrSeatConflict) {
			t.Fatalf("expected a driver error, got %v", err)
		}
	})
}

func TestTransition(t *testing.T) {
	t.Parallel()

	at := now.Add(time.Minute)

	t.Run("updates a record in the expected state", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(updateSQL).WithArgs("confirmed", at, "r1", "pending").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(selectByIDSQL).WithArgs("r1").
			WillReturnRows(reservationRows().AddRow("r1", "route-1", "A1", "alice", "confirmed", now, at))
		mock.ExpectCommit()

		rec, err := s.Transition(context.Background(), "r1", model.StatusPending, model.StatusConfirmed, at)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.Status != model.StatusConfirmed || !rec.UpdatedAt.Equal(at) {
			t.Fatalf("unexpected record %+v", rec)
		}
	})

	t.Run("wrong current state is invalid", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(selectByIDSQL).
			WillReturnRows(reservationRows().AddRow("r1", "route-1", "A1", "alice", "cancelled", now, now))
		mock.ExpectRollback()

		if _, err := s.Transition(context.Background(), "r1", model.StatusPending, model.StatusCancelled, at); !errors.Is(err, model.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("missing record is not found", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(updateSQL).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(selectByIDSQL).WillReturnRows(reservationRows())
		mock.ExpectRollback()

		if _, err := s.Transition(context.Background(), "nope", model.StatusPending, model.StatusCancelled, at); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestReads(t *testing.T) {
	t.Parallel()

	t.Run("get missing", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(selectByIDSQL).WithArgs("nope").WillReturnRows(reservationRows())
		if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("find filters by state", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`AND status IN (?,?) ORDER BY created_at, id`)).
			WithArgs("route-1", "A1", "pending", "confirmed").
			WillReturnRows(reservationRows().AddRow("r1", "route-1", "A1", "alice", "pending", now, now))
		recs, err := s.Find(context.Background(), "route-1", "A1", model.StatusPending, model.StatusConfirmed)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(recs) != 1 || recs[0].Status != model.StatusPending {
			t.Fatalf("unexpected records %+v", recs)
		}
	})

	t.Run("find active on a free seat", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`status IN ('pending','confirmed') LIMIT 1`)).WillReturnRows(reservationRows())
		rec, err := s.FindActive(context.Background(), "route-1", "A1")
		if err != nil || rec != nil {
			t.Fatalf("expected nil, nil; got %+v, %v", rec, err)
		}
	})

	t.Run("list expirable passes the cutoff", func(t *testing.T) {
		s, mock := newMock(t)
		cutoff := now.Add(-5 * time.Minute)
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE status = 'pending' AND created_at < ?`)).WithArgs(cutoff).
			WillReturnRows(reservationRows().
				AddRow("r1", "route-1", "A1", "alice", "pending", cutoff.Add(-2*time.Minute), now).
				AddRow("r2", "route-1", "A2", "bob", "pending", cutoff.Add(-time.Minute), now))
		recs, err := s.ListExpirable(context.Background(), cutoff)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(recs) != 2 || recs[0].ID != "r1" {
			t.Fatalf("unexpected records %+v", recs)
		}
	})

	t.Run("list by holder is newest first", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE holder_id = ? ORDER BY created_at DESC, id DESC`)).WithArgs("alice").
			WillReturnRows(reservationRows().
				AddRow("r2", "route-1", "A2", "alice", "cancelled", now, now).
				AddRow("r1", "route-1", "A1", "alice", "confirmed", now.Add(-time.Hour), now))
		recs, err := s.ListByHolder(context.Background(), "alice")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(recs) != 2 || recs[0].ID != "r2" || recs[1].Status != model.StatusConfirmed {
			t.Fatalf("unexpected records %+v", recs)
		}
	})

	t.Run("list active wraps driver errors", func(t *testing.T) {
		s, mock := newMock(t)
		boom := errors.New("server has gone away")
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE route_id = ? AND status IN ('pending','confirmed') ORDER BY`)).WillReturnError(boom)
		if _, err := s.ListActive(context.Background(), "route-1"); !errors.Is(err, boom) {
			t.Fatalf("expected wrapped driver error, got %v", err)
		}
	})
}
