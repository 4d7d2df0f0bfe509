package model

import "time"

// ReservationStatus is the lifecycle state of a reservation record.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
)

// Active reports whether a record in this state occupies its seat.
func (s ReservationStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no further transitions are allowed.
func (s ReservationStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}

// Valid reports whether s is one of the known states.
func (s ReservationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Reservation records that a holder claims a seat on a route.  For a given
// route and seat at most one reservation may be pending or confirmed at any
// instant.  Records are created pending by a successful select and move to
// confirmed (payment completed) or cancelled (release, expiry); both of those
// states are terminal.
//
// Fields:
//
//	ID         – reservation identifier (uuid).
//	RouteID    – route the seat belongs to.
//	SeatNumber – seat identifier such as "A1".
//	HolderID   – party on whose behalf the seat is held.
//	Status     – pending, confirmed or cancelled.
//	CreatedAt  – when the hold was taken; drives expiry.
//	UpdatedAt  – time of the last transition.
type Reservation struct {
	ID         string            `json:"id"`
	RouteID    string            `json:"routeId"`
	SeatNumber string            `json:"seatNumber"`
	HolderID   string            `json:"holderId"`
	Status     ReservationStatus `json:"status"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// Reservation lifecycle event kinds published to the message broker.
const (
	EventHeld      = "reservation.held"
	EventReleased  = "reservation.released"
	EventConfirmed = "reservation.confirmed"
	EventExpired   = "reservation.expired"
)

// ReservationEvent describes a completed lifecycle transition.  It carries a
// snapshot of the record so consumers do not need to query the ledger.
type ReservationEvent struct {
	Kind        string      `json:"kind"`
	Reservation Reservation `json:"reservation"`
	OccurredAt  time.Time   `json:"occurred_at"`
}
