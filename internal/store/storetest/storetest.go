// Package storetest is a conformance suite run against every store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/seatly/internal/model"
	"github.com/iliyamo/seatly/internal/store"
)

// Base is the reference instant used by the suite.
var Base = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func pending(id, route, seat string, created time.Time) model.Reservation {
	return model.Reservation{
		ID:         id,
		RouteID:    route,
		SeatNumber: seat,
		HolderID:   "holder-" + id,
		Status:     model.StatusPending,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

// Run exercises the ledger and catalog contract.  newStore must return an
// empty store; Run closes it.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	open := func(t *testing.T) store.Store {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	}

	t.Run("get missing returns not found", func(t *testing.T) {
		s := open(t)
		if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("insert if free claims the seat once", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.InsertIfFree(ctx, pending("r1", "route-1", "A1", Base)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := s.InsertIfFree(ctx, pending("r2", "route-1", "A1", Base)); !errors.Is(err, model.ErrSeatConflict) {
			t.Fatalf("expected ErrSeatConflict, got %v", err)
		}
		if err := s.InsertIfFree(ctx, pending("r3", "route-1", "A2", Base)); err != nil {
			t.Fatalf("expected other seat to be free, got %v", err)
		}
		if err := s.InsertIfFree(ctx, pending("r4", "route-2", "A1", Base)); err != nil {
			t.Fatalf("expected same seat on other route to be free, got %v", err)
		}
		if _, err := s.Get(ctx, "r2"); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected rejected insert to leave no record, got %v", err)
		}

		active, err := s.FindActive(ctx, "route-1", "A1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if active == nil || active.ID != "r1" {
			t.Fatalf("expected r1 active, got %+v", active)
		}
		got, err := s.Get(ctx, "r1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got.HolderID != "holder-r1" || got.Status != model.StatusPending || !got.CreatedAt.Equal(Base) {
			t.Fatalf("unexpected record %+v", got)
		}
	})

	t.Run("find active on a free seat returns nil", func(t *testing.T) {
		s := open(t)
		active, err := s.FindActive(context.Background(), "route-1", "B2")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if active != nil {
			t.Fatalf("expected nil, got %+v", active)
		}
	})

	t.Run("transition is compare and set", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.InsertIfFree(ctx, pending("r1", "route-1", "A1", Base)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		at := Base.Add(time.Minute)
		rec, err := s.Transition(ctx, "r1", model.StatusPending, model.StatusConfirmed, at)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rec.Status != model.StatusConfirmed || !rec.UpdatedAt.Equal(at) {
			t.Fatalf("unexpected record %+v", rec)
		}
		if _, err := s.Transition(ctx, "r1", model.StatusPending, model.StatusCancelled, at); !errors.Is(err, model.ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
		if _, err := s.Transition(ctx, "missing", model.StatusPending, model.StatusCancelled, at); !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if err := s.InsertIfFree(ctx, pending("r2", "route-1", "A1", at)); !errors.Is(err, model.ErrSeatConflict) {
			t.Fatalf("expected confirmed seat to stay taken, got %v", err)
		}
	})

	t.Run("cancel frees the seat", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if err := s.InsertIfFree(ctx, pending("r1", "route-1", "A1", Base)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := s.Transition(ctx, "r1", model.StatusPending, model.StatusCancelled, Base.Add(time.Second)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if active, _ := s.FindActive(ctx, "route-1", "A1"); active != nil {
			t.Fatalf("expected seat free, got %+v", active)
		}
		if err := s.InsertIfFree(ctx, pending("r2", "route-1", "A1", Base.Add(2*time.Second))); err != nil {
			t.Fatalf("expected re-select to succeed, got %v", err)
		}

		all, err := s.Find(ctx, "route-1", "A1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(all) != 2 || all[0].ID != "r1" || all[1].ID != "r2" {
			t.Fatalf("expected [r1 r2], got %+v", all)
		}
		cancelled, err := s.Find(ctx, "route-1", "A1", model.StatusCancelled)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(cancelled) != 1 || cancelled[0].ID != "r1" {
			t.Fatalf("expected [r1], got %+v", cancelled)
		}
	})

	t.Run("list active and expirable", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		recs := []model.Reservation{
			pending("old", "route-1", "A1", Base),
			pending("older", "route-1", "A2", Base.Add(-time.Minute)),
			pending("fresh", "route-1", "A3", Base.Add(10*time.Minute)),
			pending("paid", "route-1", "B1", Base.Add(-time.Hour)),
			pending("gone", "route-1", "B2", Base.Add(-time.Hour)),
			pending("other", "route-2", "A1", Base),
		}
		for _, r := range recs {
			if err := s.InsertIfFree(ctx, r); err != nil {
				t.Fatalf("insert %s: %v", r.ID, err)
			}
		}
		if _, err := s.Transition(ctx, "paid", model.StatusPending, model.StatusConfirmed, Base); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := s.Transition(ctx, "gone", model.StatusPending, model.StatusCancelled, Base); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		active, err := s.ListActive(ctx, "route-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ids := idsOf(active); !sameSet(ids, []string{"old", "older", "fresh", "paid"}) {
			t.Fatalf("unexpected active set %v", ids)
		}

		expirable, err := s.ListExpirable(ctx, Base.Add(time.Second))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		ids := idsOf(expirable)
		if len(ids) != 3 || ids[0] != "older" || !sameSet(ids, []string{"older", "old", "other"}) {
			t.Fatalf("expected [older old other] oldest first, got %v", ids)
		}
	})

	t.Run("list by holder spans routes and statuses", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		recs := []model.Reservation{
			pending("h1", "route-1", "A1", Base.Add(-time.Hour)),
			pending("h2", "route-2", "C3", Base),
			pending("h3", "route-1", "B2", Base.Add(-time.Minute)),
			pending("x1", "route-1", "A2", Base),
		}
		for i := range recs[:3] {
			recs[i].HolderID = "alice"
		}
		for _, r := range recs {
			if err := s.InsertIfFree(ctx, r); err != nil {
				t.Fatalf("insert %s: %v", r.ID, err)
			}
		}
		if _, err := s.Transition(ctx, "h1", model.StatusPending, model.StatusConfirmed, Base); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := s.Transition(ctx, "h3", model.StatusPending, model.StatusCancelled, Base); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		got, err := s.ListByHolder(ctx, "alice")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ids := idsOf(got); fmt.Sprint(ids) != "[h2 h3 h1]" {
			t.Fatalf("expected [h2 h3 h1] newest first, got %v", ids)
		}
		if got[2].Status != model.StatusConfirmed || got[1].Status != model.StatusCancelled {
			t.Fatalf("expected statuses to be kept, got %+v", got)
		}

		none, err := s.ListByHolder(ctx, "nobody")
		if err != nil || len(none) != 0 {
			t.Fatalf("expected empty list, got %v, %v", none, err)
		}
	})

	t.Run("concurrent inserts have exactly one winner", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		const n = 16
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			wins      int
			conflicts int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := s.InsertIfFree(ctx, pending(fmt.Sprintf("r%02d", i), "route-1", "C3", Base))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, model.ErrSeatConflict):
					conflicts++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()
		if wins != 1 || conflicts != n-1 {
			t.Fatalf("expected 1 winner and %d conflicts, got %d and %d", n-1, wins, conflicts)
		}
		active, err := s.ListActive(ctx, "route-1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(active) != 1 {
			t.Fatalf("expected one active record, got %d", len(active))
		}
	})

	t.Run("catalog", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		if _, err := s.Vehicle(ctx, "bus"); !errors.Is(err, model.ErrVehicleNotFound) {
			t.Fatalf("expected ErrVehicleNotFound, got %v", err)
		}
		if _, err := s.Route(ctx, "route"); !errors.Is(err, model.ErrRouteNotFound) {
			t.Fatalf("expected ErrRouteNotFound, got %v", err)
		}
		if err := s.CreateRoute(ctx, model.Route{ID: "orphan", VehicleID: "bus"}); !errors.Is(err, model.ErrVehicleNotFound) {
			t.Fatalf("expected ErrVehicleNotFound for orphan route, got %v", err)
		}

		v := model.Vehicle{ID: "bus", Name: "Bus", Type: model.VehicleBus,
			Layout: model.Layout{Rows: 12, SeatsPerRow: 4, Tag: "2-2", TotalSeats: 48}, CreatedAt: Base}
		if err := s.CreateVehicle(ctx, v); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := s.CreateVehicle(ctx, v); !errors.Is(err, model.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		later := model.Route{ID: "r-later", Origin: "Nairobi", Destination: "Mombasa",
			DepartsAt: Base.Add(2 * time.Hour), ArrivesAt: Base.Add(10 * time.Hour), PriceCents: 150000, VehicleID: "bus", CreatedAt: Base}
		sooner := later
		sooner.ID, sooner.DepartsAt = "r-sooner", Base.Add(time.Hour)
		for _, r := range []model.Route{later, sooner} {
			if err := s.CreateRoute(ctx, r); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}

		if err := s.CreateRoute(ctx, later); !errors.Is(err, model.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists for duplicate route, got %v", err)
		}

		gotV, err := s.Vehicle(ctx, "bus")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotV.Layout != v.Layout || gotV.Type != model.VehicleBus {
			t.Fatalf("unexpected vehicle %+v", gotV)
		}
		gotR, err := s.Route(ctx, "r-later")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotR.PriceCents != 150000 || !gotR.DepartsAt.Equal(later.DepartsAt) {
			t.Fatalf("unexpected route %+v", gotR)
		}
		routes, err := s.ListRoutes(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(routes) != 2 || routes[0].ID != "r-sooner" {
			t.Fatalf("expected routes by departure, got %v", routes)
		}
		vehicles, err := s.ListVehicles(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(vehicles) != 1 {
			t.Fatalf("expected 1 vehicle, got %d", len(vehicles))
		}
	})
}

func idsOf(recs []model.Reservation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int)
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
	}
	for _, n := range seen {
		if n != 0 {
			return false
		}
	}
	return true
}
