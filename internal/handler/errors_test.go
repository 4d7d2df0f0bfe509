package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/iliyamo/seatly/internal/model"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{model.ErrSeatConflict, http.StatusConflict, CodeSeatConflict},
		{fmt.Errorf("wrapped: %w", model.ErrNotFound), http.StatusNotFound, CodeNotFound},
		{model.ErrRouteNotFound, http.StatusNotFound, CodeNotFound},
		{model.ErrInvalidState, http.StatusConflict, CodeInvalidState},
		{model.ErrUnknownSeat, http.StatusBadRequest, CodeUnknownSeat},
		{model.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists},
		{fmt.Errorf("%w: %w", model.ErrPersistence, errors.New("i/o timeout")), http.StatusServiceUnavailable, CodeUnavailable},
		{context.Canceled, http.StatusRequestTimeout, CodeTimeout},
		{fmt.Errorf("lock seat: %w", context.DeadlineExceeded), http.StatusRequestTimeout, CodeTimeout},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		status, code := classify(tc.err)
		if status != tc.status || code != tc.code {
			t.Fatalf("%v: expected %d/%s, got %d/%s", tc.err, tc.status, tc.code, status, code)
		}
	}
}
