package memstore

import (
	"context"
	"sort"

	"github.com/iliyamo/seatly/internal/model"
)

func (s *Store) CreateVehicle(ctx context.Context, v model.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.vehicles[v.ID]; dup {
		return model.ErrAlreadyExists
	}
	s.vehicles[v.ID] = v
	return nil
}

func (s *Store) Vehicle(ctx context.Context, id string) (model.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vehicles[id]
	if !ok {
		return model.Vehicle{}, model.ErrVehicleNotFound
	}
	return v, nil
}

func (s *Store) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateRoute stores r.  The vehicle must already exist.
func (s *Store) CreateRoute(ctx context.Context, r model.Route) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[r.VehicleID]; !ok {
		return model.ErrVehicleNotFound
	}
	if _, dup := s.routes[r.ID]; dup {
		return model.ErrAlreadyExists
	}
	s.routes[r.ID] = r
	return nil
}

func (s *Store) Route(ctx context.Context, id string) (model.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.routes[id]
	if !ok {
		return model.Route{}, model.ErrRouteNotFound
	}
	return r, nil
}

// ListRoutes returns routes ordered by departure time.
func (s *Store) ListRoutes(ctx context.Context) ([]model.Route, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Route, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DepartsAt.Equal(out[j].DepartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DepartsAt.Before(out[j].DepartsAt)
	})
	return out, nil
}
