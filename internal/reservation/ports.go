// Package reservation holds the seat reservation core: the coordinator that
// drives the pending/confirmed/cancelled state machine, the sweeper that
// expires stale holds, and the interfaces the core needs from storage and
// from the notification transport.
package reservation

import (
	"context"
	"time"

	"github.com/iliyamo/seatly/internal/model"
)

// Ledger is the authoritative record of reservations.  Implementations must
// guarantee that for a given route and seat at most one record is pending
// or confirmed at any instant, even when several processes share the store.
type Ledger interface {
	// Get returns the record with the given id or model.ErrNotFound.
	Get(ctx context.Context, id string) (model.Reservation, error)
	// Find returns the records for a seat whose status is one of states,
	// oldest first.  No states means every status.
	Find(ctx context.Context, routeID, seat string, states ...model.ReservationStatus) ([]model.Reservation, error)
	// FindActive returns the pending or confirmed record for a seat, or nil
	// when the seat is free.
	FindActive(ctx context.Context, routeID, seat string) (*model.Reservation, error)
	// InsertIfFree stores rec only if no active record exists for its seat.
	// The check and the insert are one atomic step; a taken seat yields
	// model.ErrSeatConflict and leaves the ledger untouched.
	InsertIfFree(ctx context.Context, rec model.Reservation) error
	// Transition moves record id from status from to status to and returns
	// the updated record.  A missing record yields model.ErrNotFound, a
	// record not in from yields model.ErrInvalidState.
	Transition(ctx context.Context, id string, from, to model.ReservationStatus, at time.Time) (model.Reservation, error)
	// ListActive returns the pending and confirmed records of a route.
	ListActive(ctx context.Context, routeID string) ([]model.Reservation, error)
	// ListByHolder returns every record of a holder in any status, newest
	// first.
	ListByHolder(ctx context.Context, holderID string) ([]model.Reservation, error)
	// ListExpirable returns pending records created before cutoff, oldest
	// first.
	ListExpirable(ctx context.Context, cutoff time.Time) ([]model.Reservation, error)
}

// Catalog resolves the route and vehicle a seat belongs to.
type Catalog interface {
	Route(ctx context.Context, id string) (model.Route, error)
	Vehicle(ctx context.Context, id string) (model.Vehicle, error)
}

// Notifier fans seat events out to the subscribers of a route.  Delivery is
// best effort, so there is no error to report.
type Notifier interface {
	Publish(ctx context.Context, routeID string, ev model.SeatEvent)
}

// Recorder receives reservation lifecycle events after they are committed.
type Recorder interface {
	Record(ctx context.Context, ev model.ReservationEvent) error
}

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, string, model.SeatEvent) {}
