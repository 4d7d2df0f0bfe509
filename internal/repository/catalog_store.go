package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/seatly/internal/model"
)

const (
	vehicleColumns = `id, name, type, seat_rows, seats_per_row, layout_tag, total_seats, created_at`
	routeColumns   = `id, origin, destination, departs_at, arrives_at, price_cents, vehicle_id, created_at`
)

func scanVehicle(row rowScanner) (model.Vehicle, error) {
	var v model.Vehicle
	var typ string
	if err := row.Scan(&v.ID, &v.Name, &typ, &v.Layout.Rows, &v.Layout.SeatsPerRow, &v.Layout.Tag, &v.Layout.TotalSeats, &v.CreatedAt); err != nil {
		return model.Vehicle{}, err
	}
	v.Type = model.VehicleType(typ)
	v.CreatedAt = v.CreatedAt.UTC()
	return v, nil
}

func scanRoute(row rowScanner) (model.Route, error) {
	var r model.Route
	if err := row.Scan(&r.ID, &r.Origin, &r.Destination, &r.DepartsAt, &r.ArrivesAt, &r.PriceCents, &r.VehicleID, &r.CreatedAt); err != nil {
		return model.Route{}, err
	}
	r.DepartsAt = r.DepartsAt.UTC()
	r.ArrivesAt = r.ArrivesAt.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

// CreateVehicle inserts v.  A taken id yields model.ErrAlreadyExists.
func (s *Store) CreateVehicle(ctx context.Context, v model.Vehicle) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vehicles (`+vehicleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, string(v.Type), v.Layout.Rows, v.Layout.SeatsPerRow, v.Layout.Tag, v.Layout.TotalSeats, v.CreatedAt.UTC(),
	)
	if isDuplicateEntry(err) {
		return model.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert vehicle %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) Vehicle(ctx context.Context, id string) (model.Vehicle, error) {
	v, err := scanVehicle(s.db.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Vehicle{}, model.ErrVehicleNotFound
	}
	if err != nil {
		return model.Vehicle{}, fmt.Errorf("get vehicle %s: %w", id, err)
	}
	return v, nil
}

func (s *Store) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()
	out := []model.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("list vehicles: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return out, nil
}

// CreateRoute inserts r.  The referenced vehicle must exist.
func (s *Store) CreateRoute(ctx context.Context, r model.Route) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO routes (`+routeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Origin, r.Destination, r.DepartsAt.UTC(), r.ArrivesAt.UTC(), r.PriceCents, r.VehicleID, r.CreatedAt.UTC(),
	)
	switch {
	case err == nil:
		return nil
	case isDuplicateEntry(err):
		return model.ErrAlreadyExists
	case isMissingReference(err):
		return model.ErrVehicleNotFound
	}
	return fmt.Errorf("insert route %s: %w", r.ID, err)
}

func (s *Store) Route(ctx context.Context, id string) (model.Route, error) {
	r, err := scanRoute(s.db.QueryRowContext(ctx, `SELECT `+routeColumns+` FROM routes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Route{}, model.ErrRouteNotFound
	}
	if err != nil {
		return model.Route{}, fmt.Errorf("get route %s: %w", id, err)
	}
	return r, nil
}

// ListRoutes returns routes ordered by departure time.
func (s *Store) ListRoutes(ctx context.Context) ([]model.Route, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+routeColumns+` FROM routes ORDER BY departs_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	defer rows.Close()
	out := []model.Route{}
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("list routes: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list routes: %w", err)
	}
	return out, nil
}
