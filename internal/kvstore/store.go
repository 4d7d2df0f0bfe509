// Package kvstore is an embedded reservation ledger and catalog on top of
// Badger.  Every mutation runs in a serializable Badger transaction; the
// active-seat index key is read inside the insert transaction, so two
// concurrent inserts for one seat conflict at commit and the loser re-reads
// the now taken seat.
//
// Key layout:
//
//	rsv/<id>                           reservation JSON
//	act/<route>\x00<seat>              id of the active reservation
//	pend/<created unix nanos>/<id>     pending index, oldest first
//	seat/<route>\x00<seat>\x00<id>     per-seat history
//	veh/<id>, route/<id>               catalog JSON
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/iliyamo/seatly/internal/model"
)

const maxConflictRetries = 5

var (
	prefixReservation = []byte("rsv/")
	prefixActive      = []byte("act/")
	prefixPending     = []byte("pend/")
	prefixSeat        = []byte("seat/")
	prefixVehicle     = []byte("veh/")
	prefixRoute       = []byte("route/")
)

type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store in dir.  An empty dir keeps everything
// in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func reservationKey(id string) []byte { return append(append([]byte{}, prefixReservation...), id...) }

func activeKey(routeID, seat string) []byte {
	return []byte(string(prefixActive) + routeID + "\x00" + seat)
}

func pendingKey(created time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d/%s", prefixPending, created.UnixNano(), id))
}

func seatPrefix(routeID, seat string) []byte {
	return []byte(string(prefixSeat) + routeID + "\x00" + seat + "\x00")
}

// update runs fn in a read-write transaction, retrying when Badger reports
// a conflict with a concurrent transaction.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	log.Printf("kvstore: giving up after %d conflicting attempts", maxConflictRetries)
	return fmt.Errorf("kvstore: %w", err)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func loadReservation(txn *badger.Txn, id string) (model.Reservation, error) {
	var rec model.Reservation
	err := getJSON(txn, reservationKey(id), &rec)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Reservation{}, model.ErrNotFound
	}
	if err != nil {
		return model.Reservation{}, fmt.Errorf("kvstore: load reservation %s: %w", id, err)
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id string) (model.Reservation, error) {
	var rec model.Reservation
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = loadReservation(txn, id)
		return err
	})
	return rec, err
}

func (s *Store) Find(ctx context.Context, routeID, seat string, states ...model.ReservationStatus) ([]model.Reservation, error) {
	var out []model.Reservation
	prefix := seatPrefix(routeID, seat)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			rec, err := loadReservation(txn, id)
			if err != nil {
				return err
			}
			if len(states) == 0 || hasStatus(states, rec.Status) {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortOldestFirst(out)
	return out, nil
}

func (s *Store) FindActive(ctx context.Context, routeID, seat string) (*model.Reservation, error) {
	var rec *model.Reservation
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(activeKey(routeID, seat))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		r, err := loadReservation(txn, string(id))
		if err != nil {
			return err
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: find active %s/%s: %w", routeID, seat, err)
	}
	return rec, nil
}

func (s *Store) InsertIfFree(ctx context.Context, rec model.Reservation) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		act := activeKey(rec.RouteID, rec.SeatNumber)
		if rec.Status.Active() {
			_, err := txn.Get(act)
			if err == nil {
				return model.ErrSeatConflict
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}
		if _, err := txn.Get(reservationKey(rec.ID)); err == nil {
			return model.ErrSeatConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := setJSON(txn, reservationKey(rec.ID), rec); err != nil {
			return err
		}
		if err := txn.Set(append(seatPrefix(rec.RouteID, rec.SeatNumber), rec.ID...), nil); err != nil {
			return err
		}
		if rec.Status.Active() {
			if err := txn.Set(act, []byte(rec.ID)); err != nil {
				return err
			}
		}
		if rec.Status == model.StatusPending {
			return txn.Set(pendingKey(rec.CreatedAt, rec.ID), nil)
		}
		return nil
	})
}

func (s *Store) Transition(ctx context.Context, id string, from, to model.ReservationStatus, at time.Time) (model.Reservation, error) {
	var out model.Reservation
	err := s.update(ctx, func(txn *badger.Txn) error {
		rec, err := loadReservation(txn, id)
		if err != nil {
			return err
		}
		if rec.Status != from {
			return model.ErrInvalidState
		}
		prev := rec.Status
		rec.Status = to
		rec.UpdatedAt = at
		if err := setJSON(txn, reservationKey(id), rec); err != nil {
			return err
		}
		if prev == model.StatusPending && to != model.StatusPending {
			if err := txn.Delete(pendingKey(rec.CreatedAt, id)); err != nil {
				return err
			}
		}
		act := activeKey(rec.RouteID, rec.SeatNumber)
		if to.Active() {
			if err := txn.Set(act, []byte(id)); err != nil {
				return err
			}
		} else if prev.Active() {
			if err := txn.Delete(act); err != nil {
				return err
			}
		}
		out = rec
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	return out, nil
}

func (s *Store) ListActive(ctx context.Context, routeID string) ([]model.Reservation, error) {
	out := []model.Reservation{}
	prefix := []byte(string(prefixActive) + routeID + "\x00")
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 64, Prefix: prefix})
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			rec, err := loadReservation(txn, string(id))
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: list active %s: %w", routeID, err)
	}
	sortOldestFirst(out)
	return out, nil
}

// ListByHolder scans every reservation; there is no holder index.
func (s *Store) ListByHolder(ctx context.Context, holderID string) ([]model.Reservation, error) {
	out := []model.Reservation{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 64, Prefix: prefixReservation})
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefixReservation); it.Next() {
			var rec model.Reservation
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			if rec.HolderID == holderID {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: list by holder %s: %w", holderID, err)
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListExpirable(ctx context.Context, cutoff time.Time) ([]model.Reservation, error) {
	out := []model.Reservation{}
	limit := cutoff.UnixNano()
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefixPending})
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefixPending); it.Next() {
			rest := string(it.Item().Key()[len(prefixPending):])
			stamp, id, ok := strings.Cut(rest, "/")
			if !ok {
				continue
			}
			nanos, err := strconv.ParseInt(stamp, 10, 64)
			if err != nil {
				continue
			}
			if nanos >= limit {
				break
			}
			rec, err := loadReservation(txn, id)
			if err != nil {
				return err
			}
			if rec.Status == model.StatusPending {
				out = append(out, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("kvstore: list expirable: %w", err)
	}
	return out, nil
}

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
