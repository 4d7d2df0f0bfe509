// Package memstore is a process-local reservation ledger and catalog.  A
// single mutex guards every map, which makes InsertIfFree trivially atomic
// within one process.  It is the default backend for development.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/seatly/internal/model"
)

type Store struct {
	mu           sync.RWMutex
	reservations map[string]model.Reservation
	active       map[string]string // route|seat -> reservation id
	vehicles     map[string]model.Vehicle
	routes       map[string]model.Route
}

func New() *Store {
	return &Store{
		reservations: make(map[string]model.Reservation),
		active:       make(map[string]string),
		vehicles:     make(map[string]model.Vehicle),
		routes:       make(map[string]model.Route),
	}
}

func key(routeID, seat string) string { return routeID + "|" + seat }

func (s *Store) Get(ctx context.Context, id string) (model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, model.ErrNotFound
	}
	return rec, nil
}

func (s *Store) Find(ctx context.Context, routeID, seat string, states ...model.ReservationStatus) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Reservation
	for _, rec := range s.reservations {
		if rec.RouteID != routeID || rec.SeatNumber != seat {
			continue
		}
		if len(states) > 0 && !hasStatus(states, rec.Status) {
			continue
		}
		out = append(out, rec)
	}
	sortOldestFirst(out)
	return out, nil
}

func (s *Store) FindActive(ctx context.Context, routeID, seat string) (*model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.active[key(routeID, seat)]
	if !ok {
		return nil, nil
	}
	rec := s.reservations[id]
	return &rec, nil
}

func (s *Store) InsertIfFree(ctx context.Context, rec model.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(rec.RouteID, rec.SeatNumber)
	if _, taken := s.active[k]; taken && rec.Status.Active() {
		return model.ErrSeatConflict
	}
	if _, dup := s.reservations[rec.ID]; dup {
		return model.ErrSeatConflict
	}
	s.reservations[rec.ID] = rec
	if rec.Status.Active() {
		s.active[k] = rec.ID
	}
	return nil
}

func (s *Store) Transition(ctx context.Context, id string, from, to model.ReservationStatus, at time.Time) (model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return model.Reservation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, model.ErrNotFound
	}
	if rec.Status != from {
		return model.Reservation{}, model.ErrInvalidState
	}
	rec.Status = to
	rec.UpdatedAt = at
	s.reservations[id] = rec
	k := key(rec.RouteID, rec.SeatNumber)
	if to.Active() {
		s.active[k] = id
	} else if s.active[k] == id {
		delete(s.active, k)
	}
	return rec, nil
}

func (s *Store) ListActive(ctx context.Context, routeID string) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Reservation{}
	for _, id := range s.active {
		rec := s.reservations[id]
		if rec.RouteID == routeID {
			out = append(out, rec)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (s *Store) ListByHolder(ctx context.Context, holderID string) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Reservation{}
	for _, rec := range s.reservations {
		if rec.HolderID == holderID {
			out = append(out, rec)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListExpirable(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Reservation{}
	for _, id := range s.active {
		rec := s.reservations[id]
		if rec.Status == model.StatusPending && rec.CreatedAt.Before(cutoff) {
			out = append(out, rec)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

// Close is a no-op; it lets the store stand in wherever a closable backend
// is expected.
func (s *Store) Close() error { return nil }

func hasStatus(states []model.ReservationStatus, st model.ReservationStatus) bool {
	for _, s := range states {
		if s == st {
			return true
		}
	}
	return false
}

func sortNewestFirst(recs []model.Reservation) {
	sortOldestFirst(recs)
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
}

func sortOldestFirst(recs []model.Reservation) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
}
