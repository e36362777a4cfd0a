package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/agamordechai/eass-a-workouttracker/internal/token"
)

func TestMemoryLimiter(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	key := "user:1:user"
	limit := 3
	window := time.Minute

	for i := 0; i < limit; i++ {
		allowed, remaining, err := limiter.Allow(ctx, key, limit, window)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
		if remaining != limit-i-1 {
			t.Errorf("expected remaining %d, got %d", limit-i-1, remaining)
		}
	}

	allowed, _, err := limiter.Allow(ctx, key, limit, window)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("request over the limit should be denied")
	}

	// Other keys are unaffected.
	if allowed, _, _ := limiter.Allow(ctx, "ip:10.0.0.9", limit, window); !allowed {
		t.Error("different key should not share the budget")
	}

	if err := limiter.Reset(ctx, key); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if allowed, _, _ := limiter.Allow(ctx, key, limit, window); !allowed {
		t.Error("request after reset should be allowed")
	}
}

type erroringLimiter struct{}

func (erroringLimiter) Allow(context.Context, string, int, time.Duration) (bool, int, error) {
	return false, 0, errors.New("store unreachable")
}
func (erroringLimiter) Reset(context.Context, string) error { return nil }

func serve(t *testing.T, limiter Limiter, authLimit string, reqs int, bearer string) []*httptest.ResponseRecorder {
	t.Helper()

	cfg := testLimits()
	if authLimit != "" {
		cfg.ReadLimitUser = authLimit
	}
	tokens := token.NewService("test-secret", 0, 0)

	e := echo.New()
	e.Use(Middleware(cfg, limiter, tokens, zap.NewNop()))
	e.GET("/exercises", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	var recs []*httptest.ResponseRecorder
	for i := 0; i < reqs; i++ {
		req := httptest.NewRequest(http.MethodGet, "/exercises", nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		recs = append(recs, rec)
	}
	return recs
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	tokens := token.NewService("test-secret", 0, 0)
	claims := token.Claims{Role: "user"}
	claims.Subject = "8"
	bearer, err := tokens.CreateAccessToken(claims, time.Minute)
	if err != nil {
		t.Fatalf("CreateAccessToken: %v", err)
	}

	limit := 5
	recs := serve(t, NewMemoryLimiter(), "5/minute", limit+1, bearer)

	for i := 0; i < limit; i++ {
		if recs[i].Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, recs[i].Code)
		}
	}

	last := recs[limit]
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on request %d, got %d", limit+1, last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	var body struct {
		Detail     string `json:"detail"`
		RetryAfter int    `json:"retry_after"`
		Path       string `json:"path"`
	}
	if err := json.Unmarshal(last.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode 429 body: %v", err)
	}
	if body.RetryAfter <= 0 {
		t.Errorf("retry_after should be positive, got %d", body.RetryAfter)
	}
	if body.Path != "/exercises" {
		t.Errorf("path = %q, want /exercises", body.Path)
	}
	if body.Detail == "" {
		t.Error("detail should not be empty")
	}
}

func TestMiddlewareFailsOpenOnStoreError(t *testing.T) {
	recs := serve(t, erroringLimiter{}, "", 3, "")
	for i, rec := range recs {
		if rec.Code != http.StatusOK {
			t.Errorf("request %d: expected fail-open 200, got %d", i+1, rec.Code)
		}
	}
}

func TestMiddlewareDisabled(t *testing.T) {
	cfg := testLimits()
	cfg.Enabled = false
	tokens := token.NewService("test-secret", 0, 0)

	e := echo.New()
	// A limiter that would deny everything; with enforcement disabled it must
	// never be consulted.
	e.Use(Middleware(cfg, denyAllLimiter{}, tokens, zap.NewNop()))
	e.GET("/exercises", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/exercises", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with limiter disabled, got %d", rec.Code)
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(context.Context, string, int, time.Duration) (bool, int, error) {
	return false, 0, nil
}
func (denyAllLimiter) Reset(context.Context, string) error { return nil }
