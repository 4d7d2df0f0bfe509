package model

// FareClass classifies a seat for pricing and display.
type FareClass string

const (
	FareStandard FareClass = "standard"
	FarePremium  FareClass = "premium"
)

// SeatView is one entry of a route's seat map.
type SeatView struct {
	Number    string    `json:"number"`
	Available bool      `json:"available"`
	Type      FareClass `json:"type"`
}

// SeatMap is the availability of every seat on a route, in layout order.
type SeatMap struct {
	RouteID string     `json:"routeId"`
	Seats   []SeatView `json:"seats"`
}

// SeatStatus is the state pushed to subscribers when a seat changes hands.
type SeatStatus string

const (
	SeatReserved  SeatStatus = "reserved"
	SeatAvailable SeatStatus = "available"
)

// SeatEvent is broadcast to every subscriber of RouteID.
type SeatEvent struct {
	RouteID    string     `json:"routeId"`
	SeatNumber string     `json:"seatNumber"`
	Status     SeatStatus `json:"status"`
}
