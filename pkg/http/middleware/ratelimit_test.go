package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRateLimiterPerKey(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("expected burst of 2 to pass")
	}
	if rl.Allow("a") {
		t.Fatalf("expected third request to be limited")
	}
	if !rl.Allow("b") {
		t.Fatalf("expected other key to have its own bucket")
	}

	fixed = fixed.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatalf("expected refill after one second")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(NewRateLimiter(0.001, 1), nil))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}

func TestRateLimitMiddlewareCustomDeny(t *testing.T) {
	e := echo.New()
	e.Use(RateLimit(NewRateLimiter(0.001, 1), func(c echo.Context) error {
		return c.String(http.StatusTooManyRequests, "slow down")
	}))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		last = httptest.NewRecorder()
		e.ServeHTTP(last, req)
	}
	if last.Code != http.StatusTooManyRequests || last.Body.String() != "slow down" {
		t.Fatalf("expected custom rejection, got %d %q", last.Code, last.Body.String())
	}
}
