package model

import "time"

// VehicleType is a display tag only; it carries no behaviour.
type VehicleType string

const (
	VehicleBus      VehicleType = "bus"
	VehicleMatatu   VehicleType = "matatu"
	VehicleAirplane VehicleType = "airplane"
)

// Valid reports whether t is a known vehicle type.
func (t VehicleType) Valid() bool {
	switch t {
	case VehicleBus, VehicleMatatu, VehicleAirplane:
		return true
	}
	return false
}

// Layout describes the seat grid of a vehicle.  Seat identifiers are derived
// from it and never stored.
//
// Fields:
//
//	Rows        – number of seat rows.
//	SeatsPerRow – seats in each row.
//	Tag         – free-form aisle description such as "2-2".
//	TotalSeats  – Rows × SeatsPerRow.
type Layout struct {
	Rows        int    `json:"rows"`
	SeatsPerRow int    `json:"seatsPerRow"`
	Tag         string `json:"layout"`
	TotalSeats  int    `json:"totalSeats"`
}

// Vehicle is a seat layout with a name.  Vehicles are immutable once
// created; the reservation core only reads their layout.
type Vehicle struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Type      VehicleType `json:"type"`
	Layout    Layout      `json:"seatLayout"`
	CreatedAt time.Time   `json:"createdAt"`
}
