// Package store names the contract shared by the storage backends and
// seeds an empty store with the default fleet.
package store

import (
	"context"
	"time"

	"github.com/iliyamo/seatly/internal/model"
	"github.com/iliyamo/seatly/internal/reservation"
)

// Store is a reservation ledger together with the vehicle and route
// catalog it validates seats against.
type Store interface {
	reservation.Ledger
	reservation.Catalog

	CreateVehicle(ctx context.Context, v model.Vehicle) error
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)
	CreateRoute(ctx context.Context, r model.Route) error
	ListRoutes(ctx context.Context) ([]model.Route, error)
	Close() error
}

// Backend names accepted by STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendMySQL  = "mysql"
)

// DefaultFleet is the set of vehicles a fresh deployment starts with.
func DefaultFleet(now time.Time) []model.Vehicle {
	return []model.Vehicle{
		{ID: "bus-standard", Name: "Standard Bus", Type: model.VehicleBus,
			Layout: model.Layout{Rows: 12, SeatsPerRow: 4, Tag: "2-2", TotalSeats: 48}, CreatedAt: now},
		{ID: "matatu-14", Name: "14-Seater Matatu", Type: model.VehicleMatatu,
			Layout: model.Layout{Rows: 7, SeatsPerRow: 2, Tag: "1-1", TotalSeats: 14}, CreatedAt: now},
		{ID: "airplane-a320", Name: "Airbus A320", Type: model.VehicleAirplane,
			Layout: model.Layout{Rows: 20, SeatsPerRow: 6, Tag: "3-3", TotalSeats: 120}, CreatedAt: now},
	}
}

// Seed inserts DefaultFleet and one route per vehicle when the store has no
// vehicles yet.  It reports whether anything was written.
func Seed(ctx context.Context, s Store, now time.Time) (bool, error) {
	existing, err := s.ListVehicles(ctx)
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}
	routes := []struct{ id, from, to string }{
		{"nairobi-mombasa", "Nairobi", "Mombasa"},
		{"nairobi-nakuru", "Nairobi", "Nakuru"},
		{"nairobi-kisumu", "Nairobi", "Kisumu"},
	}
	prices := []int64{150000, 50000, 850000}
	durations := []time.Duration{8 * time.Hour, 3 * time.Hour, time.Hour}
	departure := now.Truncate(time.Hour).Add(24 * time.Hour)
	for i, v := range DefaultFleet(now) {
		if err := s.CreateVehicle(ctx, v); err != nil {
			return false, err
		}
		r := model.Route{
			ID:          routes[i].id,
			Origin:      routes[i].from,
			Destination: routes[i].to,
			DepartsAt:   departure,
			ArrivesAt:   departure.Add(durations[i]),
			PriceCents:  prices[i],
			VehicleID:   v.ID,
			CreatedAt:   now,
		}
		if err := s.CreateRoute(ctx, r); err != nil {
			return false, err
		}
	}
	return true, nil
}
