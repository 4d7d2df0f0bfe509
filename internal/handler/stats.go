package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatly/internal/model"
	"github.com/iliyamo/seatly/internal/reservation"
)

// StatsHandler reports occupancy and revenue for operators.
type StatsHandler struct {
	Store Catalog
	Coord *reservation.Coordinator
}

// NewStatsHandler panics on a nil store or coordinator.
func NewStatsHandler(s Catalog, coord *reservation.Coordinator) *StatsHandler {
	if s == nil || coord == nil {
		panic("nil dependency passed to NewStatsHandler")
	}
	return &StatsHandler{Store: s, Coord: coord}
}

// Fleet handles GET /v1/admin/stats.
func (h *StatsHandler) Fleet(c echo.Context) error {
	ctx := c.Request().Context()
	vehicles, err := h.Store.ListVehicles(ctx)
	if err != nil {
		return writeError(c, err)
	}
	routes, err := h.Store.ListRoutes(ctx)
	if err != nil {
		return writeError(c, err)
	}
	out := model.FleetStats{
		Vehicles: len(vehicles),
		Routes:   len(routes),
		PerRoute: make([]model.RouteStats, 0, len(routes)),
	}
	for _, r := range routes {
		st, err := h.Coord.RouteStats(ctx, r.ID)
		if err != nil {
			return writeError(c, err)
		}
		out.Pending += st.Pending
		out.Confirmed += st.Confirmed
		out.RevenueCents += st.RevenueCents
		out.PerRoute = append(out.PerRoute, st)
	}
	return c.JSON(http.StatusOK, out)
}
