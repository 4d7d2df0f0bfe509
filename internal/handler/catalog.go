package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatly/internal/layout"
	"github.com/iliyamo/seatly/internal/model"
)

// Catalog is the vehicle and route storage the catalog endpoints need.
type Catalog interface {
	Route(ctx context.Context, id string) (model.Route, error)
	Vehicle(ctx context.Context, id string) (model.Vehicle, error)
	ListRoutes(ctx context.Context) ([]model.Route, error)
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)
	CreateRoute(ctx context.Context, r model.Route) error
	CreateVehicle(ctx context.Context, v model.Vehicle) error
}

// CatalogHandler serves routes and vehicles.
type CatalogHandler struct {
	Store Catalog
	Now   func() time.Time
}

// NewCatalogHandler panics on a nil store.
func NewCatalogHandler(s Catalog, now func() time.Time) *CatalogHandler {
	if s == nil {
		panic("nil catalog passed to NewCatalogHandler")
	}
	if now == nil {
		now = time.Now
	}
	return &CatalogHandler{Store: s, Now: now}
}

// RouteDetail is a route with its vehicle inlined.
type RouteDetail struct {
	model.Route
	Vehicle model.Vehicle `json:"vehicle"`
}

// ListRoutes handles GET /v1/routes.  Optional ?origin= and ?destination=
// filter case-insensitively.
func (h *CatalogHandler) ListRoutes(c echo.Context) error {
	routes, err := h.Store.ListRoutes(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	origin := strings.TrimSpace(c.QueryParam("origin"))
	dest := strings.TrimSpace(c.QueryParam("destination"))
	out := make([]model.Route, 0, len(routes))
	for _, r := range routes {
		if origin != "" && !strings.EqualFold(r.Origin, origin) {
			continue
		}
		if dest != "" && !strings.EqualFold(r.Destination, dest) {
			continue
		}
		out = append(out, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetRoute handles GET /v1/routes/:id.
func (h *CatalogHandler) GetRoute(c echo.Context) error {
	ctx := c.Request().Context()
	r, err := h.Store.Route(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	v, err := h.Store.Vehicle(ctx, r.VehicleID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, RouteDetail{Route: r, Vehicle: v})
}

// ListVehicles handles GET /v1/admin/vehicles.
func (h *CatalogHandler) ListVehicles(c echo.Context) error {
	vs, err := h.Store.ListVehicles(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": vs})
}

type createVehicleRequest struct {
	ID     string            `json:"id"`
	Name   string            `json:"name"`
	Type   model.VehicleType `json:"type"`
	Layout model.Layout      `json:"seatLayout"`
}

// CreateVehicle handles POST /v1/admin/vehicles.  The total seat count is
// derived from the grid; any value sent by the client is ignored.
func (h *CatalogHandler) CreateVehicle(c echo.Context) error {
	var body createVehicleRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return badRequest(c, "name is required")
	}
	if !body.Type.Valid() {
		return badRequest(c, "type must be bus, matatu or airplane")
	}
	l, err := layout.Normalize(body.Layout)
	if err != nil {
		return writeError(c, err)
	}
	if l.TotalSeats == 0 {
		return badRequest(c, "layout must have at least one seat")
	}
	v := model.Vehicle{
		ID:        strings.TrimSpace(body.ID),
		Name:      name,
		Type:      body.Type,
		Layout:    l,
		CreatedAt: h.Now().UTC(),
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if err := h.Store.CreateVehicle(c.Request().Context(), v); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

type createRouteRequest struct {
	ID          string    `json:"id"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	DepartsAt   time.Time `json:"departure"`
	ArrivesAt   time.Time `json:"arrival"`
	PriceCents  int64     `json:"priceCents"`
	VehicleID   string    `json:"vehicleId"`
}

// CreateRoute handles POST /v1/admin/routes.
func (h *CatalogHandler) CreateRoute(c echo.Context) error {
	var body createRouteRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	r := model.Route{
		ID:          strings.TrimSpace(body.ID),
		Origin:      strings.TrimSpace(body.Origin),
		Destination: strings.TrimSpace(body.Destination),
		DepartsAt:   body.DepartsAt.UTC(),
		ArrivesAt:   body.ArrivesAt.UTC(),
		PriceCents:  body.PriceCents,
		VehicleID:   strings.TrimSpace(body.VehicleID),
		CreatedAt:   h.Now().UTC(),
	}
	switch {
	case r.Origin == "" || r.Destination == "":
		return badRequest(c, "origin and destination are required")
	case r.VehicleID == "":
		return badRequest(c, "vehicleId is required")
	case r.DepartsAt.IsZero() || !r.ArrivesAt.After(r.DepartsAt):
		return badRequest(c, "arrival must be after departure")
	case r.PriceCents < 0:
		return badRequest(c, "priceCents must not be negative")
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := h.Store.CreateRoute(c.Request().Context(), r); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}
