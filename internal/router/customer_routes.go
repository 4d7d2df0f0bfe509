package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatly/internal/handler"
	"github.com/iliyamo/seatly/internal/middleware"
)

// RegisterCustomer registers holder-scoped endpoints under /v1.  The token
// subject is the holder.  limit throttles seat selection and may be nil.
func RegisterCustomer(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(RoleCustomer, RoleAdmin),
	)
	if limit != nil {
		g.POST("/routes/:id/seats/select", h.Select, limit)
	} else {
		g.POST("/routes/:id/seats/select", h.Select)
	}
	g.POST("/routes/:id/seats/release", h.Release)
	g.GET("/reservations", h.ListOwn)
	g.GET("/reservations/:id", h.GetOwn)
	g.DELETE("/reservations/:id", h.ReleaseOwn)
}
