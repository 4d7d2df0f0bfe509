package reservation_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/seatly/internal/clock"
	"github.com/iliyamo/seatly/internal/memstore"
	"github.com/iliyamo/seatly/internal/model"
	"github.com/iliyamo/seatly/internal/reservation"
)

var now = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.SeatEvent
}

func (n *recordingNotifier) Publish(_ context.Context, _ string, ev model.SeatEvent) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}

func (n *recordingNotifier) all() []model.SeatEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.SeatEvent(nil), n.events...)
}

type recordingRecorder struct {
	mu     sync.Mutex
	events []model.ReservationEvent
	err    error
}

func (r *recordingRecorder) Record(_ context.Context, ev model.ReservationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingRecorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

// failingLedger wraps a ledger and fails selected calls.
type failingLedger struct {
	reservation.Ledger
	insertErr     error
	transitionErr error
	listErr       error
	failIDs       map[string]bool
}

func (f *failingLedger) InsertIfFree(ctx context.Context, rec model.Reservation) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.Ledger.InsertIfFree(ctx, rec)
}

func (f *failingLedger) Transition(ctx context.Context, id string, from, to model.ReservationStatus, at time.Time) (model.Reservation, error) {
	if f.transitionErr != nil || f.failIDs[id] {
		if f.transitionErr != nil {
			return model.Reservation{}, f.transitionErr
		}
		return model.Reservation{}, errors.New("disk on fire")
	}
	return f.Ledger.Transition(ctx, id, from, to, at)
}

func (f *failingLedger) ListExpirable(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Ledger.ListExpirable(ctx, cutoff)
}

type fixture struct {
	store    *memstore.Store
	clock    *clock.Manual
	notifier *recordingNotifier
	recorder *recordingRecorder
	coord    *reservation.Coordinator
}

// newFixture returns a coordinator over a memory store holding route
// "route-1" on a 2x3 vehicle and route "route-2" on the same vehicle.
func newFixture(t *testing.T, ledger func(reservation.Ledger) reservation.Ledger) *fixture {
	t.Helper()

	ctx := context.Background()
	s := memstore.New()
	if err := s.CreateVehicle(ctx, model.Vehicle{ID: "v1", Name: "Shuttle", Type: model.VehicleMatatu,
		Layout: model.Layout{Rows: 2, SeatsPerRow: 3, Tag: "1-2", TotalSeats: 6}}); err != nil {
		t.Fatalf("create vehicle: %v", err)
	}
	for _, id := range []string{"route-1", "route-2"} {
		if err := s.CreateRoute(ctx, model.Route{ID: id, Origin: "Nairobi", Destination: "Nakuru", VehicleID: "v1"}); err != nil {
			t.Fatalf("create route: %v", err)
		}
	}

	var l reservation.Ledger = s
	if ledger != nil {
		l = ledger(s)
	}
	f := &fixture{
		store:    s,
		clock:    clock.NewManual(now),
		notifier: &recordingNotifier{},
		recorder: &recordingRecorder{},
	}
	f.coord = reservation.NewCoordinator(l, s, f.notifier, f.clock, reservation.WithRecorder(f.recorder))
	return f
}
