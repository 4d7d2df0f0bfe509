package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatly/internal/handler"
	"github.com/iliyamo/seatly/internal/middleware"
)

// RegisterAdmin registers operator endpoints under /v1/admin.  All routes
// require the ADMIN role.
func RegisterAdmin(e *echo.Echo, cat *handler.CatalogHandler, res *handler.ReservationHandler,
	stats *handler.StatsHandler, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(RoleAdmin),
	)

	// ---- Catalog ----
	g.GET("/vehicles", cat.ListVehicles)
	g.POST("/vehicles", cat.CreateVehicle)
	g.POST("/routes", cat.CreateRoute)

	// ---- Reservations ----
	g.GET("/routes/:id/reservations", res.ListActive)
	g.POST("/reservations/:id/confirm", res.Confirm)
	g.DELETE("/reservations/:id", res.AdminRelease)

	// ---- Reporting ----
	g.GET("/stats", stats.Fleet)
}
