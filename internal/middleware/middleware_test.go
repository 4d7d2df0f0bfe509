package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/seatly/internal/config"
	"github.com/iliyamo/seatly/internal/middleware"
	"github.com/iliyamo/seatly/internal/utils"
)

const secret = "test-secret"

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func token(t *testing.T, sub, role string, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, sub, role, ttl)
	if err != nil {
		t.Fatal(err)
	}
	return tok.Token
}

func do(e *echo.Echo, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	g := e.Group("", middleware.JWTAuth(secret))
	g.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, middleware.Holder(c)+"/"+middleware.Role(c))
	})
	g.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		middleware.RequireRole("ADMIN"))

	cases := []struct {
		name   string
		path   string
		bearer string
		status int
		body   string
	}{
		{"missing", "/me", "", http.StatusUnauthorized, ""},
		{"garbage", "/me", "not-a-jwt", http.StatusUnauthorized, ""},
		{"expired", "/me", token(t, "u-1", "CUSTOMER", -time.Minute), http.StatusUnauthorized, ""},
		{"ok", "/me", token(t, "u-1", "CUSTOMER", time.Minute), http.StatusOK, "u-1/CUSTOMER"},
		{"forbidden", "/admin", token(t, "u-1", "CUSTOMER", time.Minute), http.StatusForbidden, ""},
		{"admin", "/admin", token(t, "a-1", "ADMIN", time.Minute), http.StatusNoContent, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(e, http.MethodGet, tc.path, tc.bearer)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("expected body %q, got %q", tc.body, rec.Body.String())
			}
		})
	}
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other", "u-1", "CUSTOMER", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := middleware.ParseToken(secret, tok.Token); err == nil {
		t.Fatal("expected error for token signed with another secret")
	}
	claims, err := middleware.ParseToken("other", tok.Token)
	if err != nil {
		t.Fatal(err)
	}
	if claims["sub"] != "u-1" {
		t.Fatalf("expected sub u-1, got %v", claims["sub"])
	}
}

func TestParseTokenRejectsUnsignedToken(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u-1", "role": "ADMIN"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := middleware.ParseToken(secret, raw); err == nil {
		t.Fatal("expected error for unsigned token")
	}
}

func TestTokenBucket(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		KeyStrategy:    "ip_user_route",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/select", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		middleware.NewTokenBucket(cfg, rdb))

	for i := 0; i < 2; i++ {
		rec := do(e, http.MethodPost, "/select", "")
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d: expected 201, got %d", i, rec.Code)
		}
	}
	rec := do(e, http.MethodPost, "/select", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
	if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected remaining 0, got %q", got)
	}
}

func TestTokenBucketPassThrough(t *testing.T) {
	e := echo.New()
	e.POST("/select", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
		middleware.NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil))
	for i := 0; i < 3; i++ {
		if rec := do(e, http.MethodPost, "/select", ""); rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 without redis, got %d", rec.Code)
		}
	}
}

func TestRedisCache(t *testing.T) {
	rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{http.MethodGet: true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
	calls := 0
	e := echo.New()
	e.GET("/routes", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, middleware.NewRedisCache(cfg, rdb))

	first := do(e, http.MethodGet, "/routes?from=nairobi", "")
	if first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("expected MISS, got %q", first.Header().Get("X-Cache"))
	}
	second := do(e, http.MethodGet, "/routes?from=nairobi", "")
	if second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("expected HIT, got %q", second.Header().Get("X-Cache"))
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("expected identical body, got %q vs %q", second.Body.String(), first.Body.String())
	}
	if ct := second.Header().Get("Content-Type"); ct != echo.MIMEApplicationJSON {
		t.Fatalf("expected cached content type, got %q", ct)
	}
	if calls != 1 {
		t.Fatalf("expected handler called once, got %d", calls)
	}
	if rec := do(e, http.MethodGet, "/routes?from=kisumu", ""); rec.Header().Get("X-Cache") != "MISS" {
		t.Fatal("expected a different query to miss")
	}
}
