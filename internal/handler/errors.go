// Package handler exposes the HTTP and WebSocket endpoints of the seat
// reservation service.  Handlers translate domain errors into status codes
// and never decide reservation outcomes themselves.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seatly/internal/model"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeSeatConflict  = "seat_conflict"
	CodeNotFound      = "not_found"
	CodeInvalidState  = "invalid_state"
	CodeUnknownSeat   = "unknown_seat"
	CodeInvalidInput  = "invalid_input"
	CodeAlreadyExists = "already_exists"
	CodeUnavailable   = "persistence_unavailable"
	CodeTimeout       = "request_timeout"
	CodeInternal      = "internal"
)

// writeError maps a domain error to a status code and a JSON body of the
// form {"error": message, "code": code}.
func writeError(c echo.Context, err error) error {
	status, code := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	return c.JSON(status, echo.Map{"error": msg, "code": code})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrSeatConflict):
		return http.StatusConflict, CodeSeatConflict
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrRouteNotFound),
		errors.Is(err, model.ErrVehicleNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, model.ErrInvalidState):
		return http.StatusConflict, CodeInvalidState
	case errors.Is(err, model.ErrUnknownSeat):
		return http.StatusBadRequest, CodeUnknownSeat
	case errors.Is(err, model.ErrInvalidLayout):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, model.ErrAlreadyExists):
		return http.StatusConflict, CodeAlreadyExists
	case errors.Is(err, model.ErrPersistence):
		return http.StatusServiceUnavailable, CodeUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, CodeTimeout
	}
	return http.StatusInternalServerError, CodeInternal
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": CodeInvalidInput})
}
