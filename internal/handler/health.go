package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthCheck probes one dependency.  A nil Ping is skipped.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Health returns a handler for load balancer probes.  It answers 200 with
// "ok" per dependency, or 503 naming the first failing one.
func Health(checks ...HealthCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		status := make(map[string]string, len(checks))
		for _, chk := range checks {
			if chk.Ping == nil {
				continue
			}
			if err := chk.Ping(ctx); err != nil {
				status[chk.Name] = err.Error()
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "degraded", "checks": status})
			}
			status[chk.Name] = "ok"
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "checks": status})
	}
}
