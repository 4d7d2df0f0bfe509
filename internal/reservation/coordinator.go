package reservation

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/iliyamo/seatly/internal/clock"
	"github.com/iliyamo/seatly/internal/layout"
	"github.com/iliyamo/seatly/internal/model"
)

// Coordinator processes select, release, confirm and expire requests.  Each
// (route, seat) key is serialised by a keyed mutex held across the ledger
// call and the seat broadcast, so operations on one key behave as if
// totally ordered while different keys proceed in parallel.
type Coordinator struct {
	ledger   Ledger
	catalog  Catalog
	notifier Notifier
	recorder Recorder
	clock    clock.Clock
	locks    *KeyedMutex
	newID    func() string
}

type Option func(*Coordinator)

// WithRecorder attaches a recorder that receives every committed
// transition.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) {
		c.recorder = r
	}
}

// WithIDGenerator overrides how reservation ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewCoordinator wires a coordinator.  notifier may be nil when nobody
// listens for seat events.
func NewCoordinator(ledger Ledger, catalog Catalog, notifier Notifier, clk clock.Clock, opts ...Option) *Coordinator {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	c := &Coordinator{
		ledger:   ledger,
		catalog:  catalog,
		notifier: notifier,
		clock:    clk,
		locks:    NewKeyedMutex(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Select places a pending hold on seat for holderID.  The seat must belong
// to the route's vehicle layout.  When the seat already has an active
// reservation the call fails with model.ErrSeatConflict and nothing is
// written or broadcast.
func (c *Coordinator) Select(ctx context.Context, routeID, seat, holderID string) (model.Reservation, error) {
	if holderID == "" {
		return model.Reservation{}, fmt.Errorf("%w: holder is required", model.ErrInvalidState)
	}
	number, err := c.seatOf(ctx, routeID, seat)
	if err != nil {
		return model.Reservation{}, err
	}

	unlock, err := c.locks.Lock(ctx, seatKey(routeID, number))
	if err != nil {
		return model.Reservation{}, persistence(err)
	}
	now := c.clock.Now()
	rec := model.Reservation{
		ID:         c.newID(),
		RouteID:    routeID,
		SeatNumber: number,
		HolderID:   holderID,
		Status:     model.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := c.ledger.InsertIfFree(ctx, rec); err != nil {
		unlock()
		return model.Reservation{}, persistence(err)
	}
	c.notify(ctx, rec, model.SeatReserved)
	unlock()

	c.record(ctx, model.EventHeld, rec)
	return rec, nil
}

// Release cancels the pending hold on a seat.  A non-empty holderID must
// match the holder of the reservation; an empty one is the administrative
// path.  When no matching pending reservation exists the call fails with
// model.ErrNotFound.
func (c *Coordinator) Release(ctx context.Context, routeID, seat, holderID string) (model.Reservation, error) {
	number := layout.Canonical(seat)
	if number == "" {
		return model.Reservation{}, model.ErrNotFound
	}
	unlock, err := c.locks.Lock(ctx, seatKey(routeID, number))
	if err != nil {
		return model.Reservation{}, persistence(err)
	}
	active, err := c.ledger.FindActive(ctx, routeID, number)
	if err != nil {
		unlock()
		return model.Reservation{}, persistence(err)
	}
	if active == nil || active.Status != model.StatusPending || (holderID != "" && active.HolderID != holderID) {
		unlock()
		return model.Reservation{}, model.ErrNotFound
	}
	rec, err := c.cancel(ctx, active.ID)
	unlock()
	if err != nil {
		return model.Reservation{}, err
	}
	c.record(ctx, model.EventReleased, rec)
	return rec, nil
}

// ReleaseReservation cancels a pending reservation by id.  holderID follows
// the same rules as in Release.
func (c *Coordinator) ReleaseReservation(ctx context.Context, id, holderID string) (model.Reservation, error) {
	cur, err := c.ledger.Get(ctx, id)
	if err != nil {
		return model.Reservation{}, persistence(err)
	}
	if holderID != "" && cur.HolderID != holderID {
		return model.Reservation{}, model.ErrNotFound
	}
	unlock, err := c.locks.Lock(ctx, seatKey(cur.RouteID, cur.SeatNumber))
	if err != nil {
		return model.Reservation{}, persistence(err)
	}
	rec, err := c.cancel(ctx, id)
	unlock()
	if err != nil {
		return model.Reservation{}, err
	}
	c.record(ctx, model.EventReleased, rec)
	return rec, nil
}

// cancel moves a pending record to cancelled and announces the seat as
// available.  The caller holds the seat lock.
func (c *Coordinator) cancel(ctx context.Context, id string) (model.Reservation, error) {
	rec, err := c.ledger.Transition(ctx, id, model.StatusPending, model.StatusCancelled, c.clock.Now())
	if errors.Is(err, model.ErrInvalidState) {
		return model.Reservation{}, model.ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, persistence(err)
	}
	c.notify(ctx, rec, model.SeatAvailable)
	return rec, nil
}

// Confirm marks a pending reservation as paid.  The seat stays unavailable,
// so nothing is broadcast.
func (c *Coordinator) Confirm(ctx context.Context, id string) (model.Reservation, error) {
	cur, err := c.ledger.Get(ctx, id)
	if err != nil {
		return model.Reservation{}, persistence(err)
	}
	unlock, err := c.locks.Lock(ctx, seatKey(cur.RouteID, cur.SeatNumber))
	if err != nil {
		return model.Reservation{}, persistence(err)
	}
	rec, err := c.ledger.Transition(ctx, id, model.StatusPending, model.StatusConfirmed, c.clock.Now())
	unlock()
	if err != nil {
		return model.Reservation{}, persistence(err)
	}
	c.record(ctx, model.EventConfirmed, rec)
	return rec, nil
}

// ConfirmSeat confirms the pending hold on a seat.  A seat that never had a
// reservation yields model.ErrNotFound; one whose reservations are all
// confirmed or cancelled yields model.ErrInvalidState.
func (c *Coordinator) ConfirmSeat(ctx context.Context, routeID, seat string) (model.Reservation, error) {
	number := layout.Canonical(seat)
	if number == "" {
		return model.Reservation{}, model.ErrNotFound
	}
	unlock, err := c.locks.Lock(ctx, seatKey(routeID, number))
	if err != nil {
		return model.Reservation{}, persistence(err)
	}
	active, err := c.ledger.FindActive(ctx, routeID, number)
	if err != nil {
		unlock()
		return model.Reservation{}, persistence(err)
	}
	if active == nil {
		history, err := c.ledger.Find(ctx, routeID, number)
		unlock()
		if err != nil {
			return model.Reservation{}, persistence(err)
		}
		if len(history) == 0 {
			return model.Reservation{}, model.ErrNotFound
		}
		return model.Reservation{}, model.ErrInvalidState
	}
	rec, err := c.ledger.Transition(ctx, active.ID, model.StatusPending, model.StatusConfirmed, c.clock.Now())
	unlock()
	if err != nil {
		return model.Reservation{}, persistence(err)
	}
	c.record(ctx, model.EventConfirmed, rec)
	return rec, nil
}

// Expire cancels rec if it is still pending and announces the seat as
// available.  A record that has meanwhile been confirmed or cancelled is
// left alone and expired is false.
func (c *Coordinator) Expire(ctx context.Context, rec model.Reservation) (expired bool, err error) {
	unlock, err := c.locks.Lock(ctx, seatKey(rec.RouteID, rec.SeatNumber))
	if err != nil {
		return false, persistence(err)
	}
	updated, err := c.ledger.Transition(ctx, rec.ID, model.StatusPending, model.StatusCancelled, c.clock.Now())
	if errors.Is(err, model.ErrInvalidState) {
		unlock()
		return false, nil
	}
	if err != nil {
		unlock()
		return false, persistence(err)
	}
	c.notify(ctx, updated, model.SeatAvailable)
	unlock()

	c.record(ctx, model.EventExpired, updated)
	return true, nil
}

// SeatMap returns every seat of the route's layout with its availability.
// A seat is unavailable while it has a pending or confirmed reservation.
func (c *Coordinator) SeatMap(ctx context.Context, routeID string) (model.SeatMap, error) {
	l, err := c.layoutOf(ctx, routeID)
	if err != nil {
		return model.SeatMap{}, err
	}
	active, err := c.ledger.ListActive(ctx, routeID)
	if err != nil {
		return model.SeatMap{}, persistence(err)
	}
	taken := make(map[string]struct{}, len(active))
	for _, r := range active {
		taken[r.SeatNumber] = struct{}{}
	}
	seats := layout.Resolve(l)
	out := model.SeatMap{RouteID: routeID, Seats: make([]model.SeatView, 0, len(seats))}
	for _, s := range seats {
		_, held := taken[s.Number]
		out.Seats = append(out.Seats, model.SeatView{Number: s.Number, Available: !held, Type: s.Class})
	}
	return out, nil
}

func (c *Coordinator) Reservation(ctx context.Context, id string) (model.Reservation, error) {
	rec, err := c.ledger.Get(ctx, id)
	if err != nil {
		return model.Reservation{}, persistence(err)
	}
	return rec, nil
}

func (c *Coordinator) ActiveReservations(ctx context.Context, routeID string) ([]model.Reservation, error) {
	if _, err := c.catalog.Route(ctx, routeID); err != nil {
		return nil, persistence(err)
	}
	recs, err := c.ledger.ListActive(ctx, routeID)
	if err != nil {
		return nil, persistence(err)
	}
	return recs, nil
}

// HolderReservations returns every reservation of holderID, newest first.
func (c *Coordinator) HolderReservations(ctx context.Context, holderID string) ([]model.Reservation, error) {
	recs, err := c.ledger.ListByHolder(ctx, holderID)
	if err != nil {
		return nil, persistence(err)
	}
	return recs, nil
}

// RouteStats counts the pending and confirmed seats of a route against its
// layout.
func (c *Coordinator) RouteStats(ctx context.Context, routeID string) (model.RouteStats, error) {
	route, err := c.catalog.Route(ctx, routeID)
	if err != nil {
		return model.RouteStats{}, persistence(err)
	}
	v, err := c.catalog.Vehicle(ctx, route.VehicleID)
	if err != nil {
		return model.RouteStats{}, persistence(err)
	}
	recs, err := c.ledger.ListActive(ctx, routeID)
	if err != nil {
		return model.RouteStats{}, persistence(err)
	}
	st := model.RouteStats{RouteID: routeID, TotalSeats: len(layout.Resolve(v.Layout))}
	for _, r := range recs {
		switch r.Status {
		case model.StatusPending:
			st.Pending++
		case model.StatusConfirmed:
			st.Confirmed++
		}
	}
	st.Available = st.TotalSeats - st.Pending - st.Confirmed
	if st.Available < 0 {
		st.Available = 0
	}
	st.RevenueCents = int64(st.Confirmed) * route.PriceCents
	return st, nil
}

func (c *Coordinator) layoutOf(ctx context.Context, routeID string) (model.Layout, error) {
	route, err := c.catalog.Route(ctx, routeID)
	if err != nil {
		return model.Layout{}, persistence(err)
	}
	vehicle, err := c.catalog.Vehicle(ctx, route.VehicleID)
	if err != nil {
		return model.Layout{}, persistence(err)
	}
	return vehicle.Layout, nil
}

// seatOf validates seat against the route's layout and returns its
// canonical form.
func (c *Coordinator) seatOf(ctx context.Context, routeID, seat string) (string, error) {
	l, err := c.layoutOf(ctx, routeID)
	if err != nil {
		return "", err
	}
	number := layout.Canonical(seat)
	if number == "" || !layout.Contains(l, number) {
		return "", model.ErrUnknownSeat
	}
	return number, nil
}

func (c *Coordinator) notify(ctx context.Context, rec model.Reservation, status model.SeatStatus) {
	c.notifier.Publish(ctx, rec.RouteID, model.SeatEvent{
		RouteID:    rec.RouteID,
		SeatNumber: rec.SeatNumber,
		Status:     status,
	})
}

func (c *Coordinator) record(ctx context.Context, kind string, rec model.Reservation) {
	if c.recorder == nil {
		return
	}
	ev := model.ReservationEvent{Kind: kind, Reservation: rec, OccurredAt: c.clock.Now()}
	if err := c.recorder.Record(ctx, ev); err != nil {
		log.Printf("coordinator: record %s for %s: %v", kind, rec.ID, err)
	}
}

var domainErrors = []error{
	model.ErrSeatConflict,
	model.ErrNotFound,
	model.ErrInvalidState,
	model.ErrPersistence,
	model.ErrUnknownSeat,
	model.ErrRouteNotFound,
	model.ErrVehicleNotFound,
	model.ErrInvalidLayout,
	model.ErrAlreadyExists,
	context.Canceled,
	context.DeadlineExceeded,
}

// persistence passes domain and context errors through and marks everything else as a
// store failure.
func persistence(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", model.ErrPersistence, err)
}
