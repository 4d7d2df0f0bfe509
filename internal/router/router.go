// Package router wires HTTP paths to handlers and their middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatly/internal/handler"
)

// Role claim values accepted by the API.
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// RegisterPublic registers endpoints that need no token: health, the route
// catalog, seat maps and the WebSocket stream.  cache wraps the route list
// and may be nil.
func RegisterPublic(e *echo.Echo, health echo.HandlerFunc, cat *handler.CatalogHandler,
	res *handler.ReservationHandler, sock *handler.SocketHandler, cache echo.MiddlewareFunc) {
	e.GET("/healthz", health)

	var mw []echo.MiddlewareFunc
	if cache != nil {
		mw = append(mw, cache)
	}
	e.GET("/v1/routes", cat.ListRoutes, mw...)
	e.GET("/v1/routes/:id", cat.GetRoute)
	// Seat maps change on every hold, so they are never cached.
	e.GET("/v1/routes/:id/seats", res.SeatMap)
	e.GET("/ws", sock.Serve)
}
