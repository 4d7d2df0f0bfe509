package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatly/internal/middleware"
	"github.com/iliyamo/seatly/internal/model"
	"github.com/iliyamo/seatly/internal/reservation"
)

// ReservationHandler exposes the reservation coordinator to customers and
// administrators.  Customer methods assume JWTAuth has run; the holder is
// always the token subject, never a request field.
type ReservationHandler struct {
	Coord *reservation.Coordinator
}

// NewReservationHandler panics on a nil coordinator.
func NewReservationHandler(coord *reservation.Coordinator) *ReservationHandler {
	if coord == nil {
		panic("nil coordinator passed to NewReservationHandler")
	}
	return &ReservationHandler{Coord: coord}
}

type seatRequest struct {
	SeatNumber string `json:"seat_number"`
}

func bindSeat(c echo.Context) (string, bool) {
	var body seatRequest
	if err := c.Bind(&body); err != nil {
		return "", false
	}
	seat := strings.TrimSpace(body.SeatNumber)
	return seat, seat != ""
}

// SeatMap handles GET /v1/routes/:id/seats.
func (h *ReservationHandler) SeatMap(c echo.Context) error {
	m, err := h.Coord.SeatMap(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Select handles POST /v1/routes/:id/seats/select.
func (h *ReservationHandler) Select(c echo.Context) error {
	holder := middleware.Holder(c)
	if holder == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	seat, ok := bindSeat(c)
	if !ok {
		return badRequest(c, "seat_number is required")
	}
	rec, err := h.Coord.Select(c.Request().Context(), c.Param("id"), seat, holder)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// Release handles POST /v1/routes/:id/seats/release.  Only the holder's own
// pending reservation can be released.
func (h *ReservationHandler) Release(c echo.Context) error {
	holder := middleware.Holder(c)
	if holder == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	seat, ok := bindSeat(c)
	if !ok {
		return badRequest(c, "seat_number is required")
	}
	rec, err := h.Coord.Release(c.Request().Context(), c.Param("id"), seat, holder)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// ListOwn handles GET /v1/reservations: every reservation of the caller in
// any status, newest first.
func (h *ReservationHandler) ListOwn(c echo.Context) error {
	holder := middleware.Holder(c)
	if holder == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	recs, err := h.Coord.HolderReservations(c.Request().Context(), holder)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": recs, "count": len(recs)})
}

// GetOwn handles GET /v1/reservations/:id.  Reservations of other holders
// are reported as missing.
func (h *ReservationHandler) GetOwn(c echo.Context) error {
	rec, err := h.Coord.Reservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	if rec.HolderID != middleware.Holder(c) {
		return writeError(c, model.ErrNotFound)
	}
	return c.JSON(http.StatusOK, rec)
}

// ReleaseOwn handles DELETE /v1/reservations/:id.
func (h *ReservationHandler) ReleaseOwn(c echo.Context) error {
	holder := middleware.Holder(c)
	if holder == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	rec, err := h.Coord.ReleaseReservation(c.Request().Context(), c.Param("id"), holder)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// ListActive handles GET /v1/admin/routes/:id/reservations.
func (h *ReservationHandler) ListActive(c echo.Context) error {
	recs, err := h.Coord.ActiveReservations(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": recs})
}

// Confirm handles POST /v1/admin/reservations/:id/confirm, the HTTP form of
// the payment-completed signal.
func (h *ReservationHandler) Confirm(c echo.Context) error {
	rec, err := h.Coord.Confirm(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

// AdminRelease handles DELETE /v1/admin/reservations/:id.
func (h *ReservationHandler) AdminRelease(c echo.Context) error {
	rec, err := h.Coord.ReleaseReservation(c.Request().Context(), c.Param("id"), "")
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}
