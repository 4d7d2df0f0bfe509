package middleware

import "github.com/labstack/echo/v4"

// Holder returns the authenticated subject or "" when the request is
// anonymous.
func Holder(c echo.Context) string {
	if s, ok := c.Get(ContextUserID).(string); ok {
		return s
	}
	return ""
}

// Role returns the authenticated role or "".
func Role(c echo.Context) string {
	if s, ok := c.Get(ContextRole).(string); ok {
		return s
	}
	return ""
}

// userID is Holder with "anon" for unauthenticated callers, used to build
// rate limit keys.
func userID(c echo.Context) string {
	if s := Holder(c); s != "" {
		return s
	}
	return "anon"
}
