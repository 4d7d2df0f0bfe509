// Package model holds the domain types shared by the reservation core, the
// storage backends and the HTTP layer, together with the sentinel errors
// used to classify failures.  Handlers translate these values into HTTP
// status codes; stores and the coordinator never return transport codes.
package model

import "errors"

// ErrSeatConflict is returned when a select targets a seat that already
// has a pending or confirmed reservation.  Callers may retry with another
// seat.
var ErrSeatConflict = errors.New("seat already reserved")

// ErrNotFound is returned when a reservation does not exist or no pending
// reservation matches a release.
var ErrNotFound = errors.New("reservation not found")

// ErrInvalidState is returned for an illegal transition, for example
// confirming a reservation that is no longer pending.
var ErrInvalidState = errors.New("invalid reservation state")

// ErrPersistence marks failures of the backing store.  The operation had
// no visible effect and may be retried.
var ErrPersistence = errors.New("persistence failure")

// ErrUnknownSeat is returned when a seat identifier is not part of the
// route's vehicle layout.
var ErrUnknownSeat = errors.New("seat not in layout")

// ErrRouteNotFound is returned when a route id does not exist.
var ErrRouteNotFound = errors.New("route not found")

// ErrVehicleNotFound is returned when a vehicle id does not exist.
var ErrVehicleNotFound = errors.New("vehicle not found")

// ErrInvalidLayout is returned when a vehicle layout has negative
// dimensions.
var ErrInvalidLayout = errors.New("invalid seat layout")

// ErrAlreadyExists is returned when a vehicle or route id is already taken.
var ErrAlreadyExists = errors.New("already exists")
