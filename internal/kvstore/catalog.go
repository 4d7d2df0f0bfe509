package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/iliyamo/seatly/internal/model"
)

func (s *Store) CreateVehicle(ctx context.Context, v model.Vehicle) error {
	key := append(append([]byte{}, prefixVehicle...), v.ID...)
	return s.update(ctx, func(txn *badger.Txn) error {
		if err := ensureAbsent(txn, key); err != nil {
			return err
		}
		return setJSON(txn, key, v)
	})
}

func (s *Store) Vehicle(ctx context.Context, id string) (model.Vehicle, error) {
	var v model.Vehicle
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, append(append([]byte{}, prefixVehicle...), id...), &v)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Vehicle{}, model.ErrVehicleNotFound
	}
	if err != nil {
		return model.Vehicle{}, fmt.Errorf("kvstore: vehicle %s: %w", id, err)
	}
	return v, nil
}

func (s *Store) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	out := []model.Vehicle{}
	err := scanJSON(s.db, prefixVehicle, func() any {
		out = append(out, model.Vehicle{})
		return &out[len(out)-1]
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: list vehicles: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// CreateRoute stores r.  The vehicle must already exist.
func (s *Store) CreateRoute(ctx context.Context, r model.Route) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(append(append([]byte{}, prefixVehicle...), r.VehicleID...)); errors.Is(err, badger.ErrKeyNotFound) {
			return model.ErrVehicleNotFound
		} else if err != nil {
			return err
		}
		key := append(append([]byte{}, prefixRoute...), r.ID...)
		if err := ensureAbsent(txn, key); err != nil {
			return err
		}
		return setJSON(txn, key, r)
	})
}

func (s *Store) Route(ctx context.Context, id string) (model.Route, error) {
	var r model.Route
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, append(append([]byte{}, prefixRoute...), id...), &r)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Route{}, model.ErrRouteNotFound
	}
	if err != nil {
		return model.Route{}, fmt.Errorf("kvstore: route %s: %w", id, err)
	}
	return r, nil
}

// ListRoutes returns routes ordered by departure time.
func (s *Store) ListRoutes(ctx context.Context) ([]model.Route, error) {
	out := []model.Route{}
	err := scanJSON(s.db, prefixRoute, func() any {
		out = append(out, model.Route{})
		return &out[len(out)-1]
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: list routes: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DepartsAt.Equal(out[j].DepartsAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].DepartsAt.Before(out[j].DepartsAt)
	})
	return out, nil
}

func ensureAbsent(txn *badger.Txn, key []byte) error {
	_, err := txn.Get(key)
	if err == nil {
		return model.ErrAlreadyExists
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// scanJSON decodes every value under prefix into the slot returned by next.
func scanJSON(db *badger.DB, prefix []byte, next func() any) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 64, Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, next())
			}); err != nil {
				return err
			}
		}
		return nil
	})
}
