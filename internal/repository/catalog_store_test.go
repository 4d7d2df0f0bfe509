package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/seatly/internal/model"
)

func TestCatalog(t *testing.T) {
	t.Parallel()

	bus := model.Vehicle{ID: "bus", Name: "Bus", Type: model.VehicleBus,
		Layout: model.Layout{Rows: 12, SeatsPerRow: 4, Tag: "2-2", TotalSeats: 48}, CreatedAt: now}
	route := model.Route{ID: "nbo-mba", Origin: "Nairobi", Destination: "Mombasa",
		DepartsAt: now, ArrivesAt: now.Add(8 * time.Hour), PriceCents: 150000, VehicleID: "bus", CreatedAt: now}

	t.Run("create vehicle", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO vehicles`)).
			WithArgs("bus", "Bus", "bus", 12, 4, "2-2", 48, now).
			WillReturnResult(sqlmock.NewResult(0, 1))
		if err := s.CreateVehicle(context.Background(), bus); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("duplicate vehicle", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO vehicles`)).
			WillReturnError(&mysql.MySQLError{Number: errDupEntry, Message: "Duplicate entry"})
		if err := s.CreateVehicle(context.Background(), bus); !errors.Is(err, model.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("route on a missing vehicle", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO routes`)).
			WillReturnError(&mysql.MySQLError{Number: errNoReferencedRow, Message: "foreign key constraint fails"})
		if err := s.CreateRoute(context.Background(), route); !errors.Is(err, model.ErrVehicleNotFound) {
			t.Fatalf("expected ErrVehicleNotFound, got %v", err)
		}
	})

	t.Run("get vehicle", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM vehicles WHERE id = ?`)).WithArgs("bus").
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "type", "seat_rows", "seats_per_row", "layout_tag", "total_seats", "created_at"}).
				AddRow("bus", "Bus", "bus", 12, 4, "2-2", 48, now))
		v, err := s.Vehicle(context.Background(), "bus")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if v.Layout != bus.Layout || v.Type != model.VehicleBus {
			t.Fatalf("unexpected vehicle %+v", v)
		}
	})

	t.Run("missing route", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM routes WHERE id = ?`)).WithArgs("nope").
			WillReturnRows(sqlmock.NewRows([]string{"id", "origin", "destination", "departs_at", "arrives_at", "price_cents", "vehicle_id", "created_at"}))
		if _, err := s.Route(context.Background(), "nope"); !errors.Is(err, model.ErrRouteNotFound) {
			t.Fatalf("expected ErrRouteNotFound, got %v", err)
		}
	})

	t.Run("list routes", func(t *testing.T) {
		s, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM routes ORDER BY departs_at, id`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "origin", "destination", "departs_at", "arrives_at", "price_cents", "vehicle_id", "created_at"}).
				AddRow(route.ID, route.Origin, route.Destination, route.DepartsAt, route.ArrivesAt, route.PriceCents, route.VehicleID, route.CreatedAt))
		routes, err := s.ListRoutes(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(routes) != 1 || routes[0] != route {
			t.Fatalf("unexpected routes %+v", routes)
		}
	})
}
