// Package repository is the MySQL backend for the reservation ledger and
// the vehicle/route catalog.  The one-active-reservation-per-seat rule is
// enforced inside InsertIfFree by locking a per-seat row in seat_locks
// before reading the seat's active reservations, so concurrent selects of
// the same seat from any number of service instances are serialised by
// InnoDB.
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"errors"       // errors.Is for sql.ErrNoRows
	"fmt"          // error wrapping
	"log"          // retry diagnostics
	"strings"      // building IN lists
	"time"         // timestamps

	"github.com/iliyamo/seatly/internal/model"
)

const reservationColumns = `id, route_id, seat_number, holder_id, status, created_at, updated_at`

// maxLockRetries bounds how often InsertIfFree is retried after InnoDB
// picks it as a deadlock victim or times out waiting for a seat lock.
const maxLockRetries = 3

// Store implements the ledger and the catalog on a *sql.DB.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to db.  The schema must already exist;
// see database.Migrate.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (model.Reservation, error) {
	var r model.Reservation
	var status string
	if err := row.Scan(&r.ID, &r.RouteID, &r.SeatNumber, &r.HolderID, &status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return model.Reservation{}, err
	}
	r.Status = model.ReservationStatus(status)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	return r, nil
}

func (s *Store) queryReservations(ctx context.Context, q string, args ...any) ([]model.Reservation, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the reservation with the given id or model.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	r, err := scanReservation(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, model.ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, fmt.Errorf("get reservation %s: %w", id, err)
	}
	return r, nil
}

// Find returns the reservations for a seat in any of states, oldest first.
// With no states every reservation of the seat is returned.
func (s *Store) Find(ctx context.Context, routeID, seat string, states ...model.ReservationStatus) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE route_id = ? AND seat_number = ?`
	args := []any{routeID, seat}
	if len(states) > 0 {
		q += ` AND status IN (` + placeholders(len(states)) + `)`
		for _, st := range states {
			args = append(args, string(st))
		}
	}
	q += ` ORDER BY created_at, id`
	out, err := s.queryReservations(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("find reservations %s/%s: %w", routeID, seat, err)
	}
	return out, nil
}

// FindActive returns the pending or confirmed reservation of a seat, or nil.
func (s *Store) FindActive(ctx context.Context, routeID, seat string) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
	      WHERE route_id = ? AND seat_number = ? AND status IN ('pending','confirmed') LIMIT 1`
	r, err := scanReservation(s.db.QueryRowContext(ctx, q, routeID, seat))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find active %s/%s: %w", routeID, seat, err)
	}
	return &r, nil
}

// InsertIfFree inserts rec unless its seat already has an active
// reservation.  Within one transaction it upserts and thereby X-locks the
// seat's row in seat_locks, reads the seat's active reservations with a
// locking read and only then inserts.  A second transaction for the same
// seat blocks on the lock row until the first commits and then observes
// its reservation.
func (s *Store) InsertIfFree(ctx context.Context, rec model.Reservation) error {
	var err error
	for attempt := 1; attempt <= maxLockRetries; attempt++ {
		err = s.insertIfFree(ctx, rec)
		if !isLockFailure(err) {
			return err
		}
		log.Printf("repository: seat %s/%s lock attempt %d failed: %v", rec.RouteID, rec.SeatNumber, attempt, err)
	}
	return fmt.Errorf("insert reservation %s: %w", rec.ID, err)
}

func (s *Store) insertIfFree(ctx context.Context, rec model.Reservation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO seat_locks (route_id, seat_number) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE seat_number = seat_number`,
		rec.RouteID, rec.SeatNumber,
	); err != nil {
		return fmt.Errorf("lock seat: %w", err)
	}

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM reservations
		 WHERE route_id = ? AND seat_number = ? AND status IN ('pending','confirmed')
		 LIMIT 1 FOR UPDATE`,
		rec.RouteID, rec.SeatNumber,
	).Scan(&existing)
	switch {
	case err == nil:
		return model.ErrSeatConflict
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check seat: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (`+reservationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RouteID, rec.SeatNumber, rec.HolderID, string(rec.Status), rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	); err != nil {
		if isDuplicateEntry(err) {
			return model.ErrSeatConflict
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

// Transition is a compare-and-set on the status column.  When no row is
// updated the reservation is re-read to tell a missing id from a wrong
// current status.
func (s *Store) Transition(ctx context.Context, id string, from, to model.ReservationStatus, at time.Time) (model.Reservation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), at.UTC(), id, string(from),
	)
	if err != nil {
		return model.Reservation{}, fmt.Errorf("update reservation %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Reservation{}, fmt.Errorf("update reservation %s: %w", id, err)
	}

	r, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, model.ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, fmt.Errorf("reload reservation %s: %w", id, err)
	}
	if n == 0 {
		return model.Reservation{}, model.ErrInvalidState
	}
	if err := tx.Commit(); err != nil {
		return model.Reservation{}, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return r, nil
}

// ListActive returns the pending and confirmed reservations of a route.
func (s *Store) ListActive(ctx context.Context, routeID string) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
	      WHERE route_id = ? AND status IN ('pending','confirmed') ORDER BY created_at, id`
	out, err := s.queryReservations(ctx, q, routeID)
	if err != nil {
		return nil, fmt.Errorf("list active %s: %w", routeID, err)
	}
	return out, nil
}

// ListByHolder returns every reservation of a holder, newest first.
func (s *Store) ListByHolder(ctx context.Context, holderID string) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
	      WHERE holder_id = ? ORDER BY created_at DESC, id DESC`
	out, err := s.queryReservations(ctx, q, holderID)
	if err != nil {
		return nil, fmt.Errorf("list by holder %s: %w", holderID, err)
	}
	return out, nil
}

// ListExpirable returns pending reservations created before cutoff.
func (s *Store) ListExpirable(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
	      WHERE status = 'pending' AND created_at < ? ORDER BY created_at, id`
	out, err := s.queryReservations(ctx, q, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("list expirable: %w", err)
	}
	return out, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
