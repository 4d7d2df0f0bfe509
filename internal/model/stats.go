package model

// RouteStats summarises the occupancy of one route.  Revenue counts
// confirmed seats at the route's base fare.
type RouteStats struct {
	RouteID      string `json:"routeId"`
	TotalSeats   int    `json:"totalSeats"`
	Pending      int    `json:"pending"`
	Confirmed    int    `json:"confirmed"`
	Available    int    `json:"available"`
	RevenueCents int64  `json:"revenueCents"`
}

// FleetStats aggregates RouteStats over every route.
type FleetStats struct {
	Vehicles     int          `json:"totalVehicles"`
	Routes       int          `json:"activeRoutes"`
	Pending      int          `json:"pending"`
	Confirmed    int          `json:"confirmed"`
	RevenueCents int64        `json:"totalRevenueCents"`
	PerRoute     []RouteStats `json:"routes"`
}
