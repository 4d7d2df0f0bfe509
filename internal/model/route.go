package model

import "time"

// Route is a scheduled trip on a vehicle.
//
// Fields:
//
//	ID          – route identifier.
//	Origin      – departure town.
//	Destination – arrival town.
//	DepartsAt   – scheduled departure (UTC).
//	ArrivesAt   – scheduled arrival (UTC).
//	PriceCents  – base fare in cents.
//	VehicleID   – vehicle whose layout defines the seats.
//	CreatedAt   – creation timestamp.
type Route struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartsAt   time.Time `json:"departure"`
	ArrivesAt   time.Time `json:"arrival"`
	PriceCents  int64     `json:"priceCents"`
	VehicleID   string    `json:"vehicleId"`
	CreatedAt   time.Time `json:"createdAt"`
}
