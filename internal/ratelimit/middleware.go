package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/agamordechai/eass-a-workouttracker/internal/config"
	"github.com/agamordechai/eass-a-workouttracker/internal/token"
)

// Decision is the outcome of a limiter check. Indeterminate means the backing
// store could not answer; policy treats it as Allowed (fail open) so a Redis
// outage never blocks the service.
type Decision int

const (
	Allowed Decision = iota
	Denied
	Indeterminate
)

// check runs one limiter pass and maps store errors to Indeterminate.
func check(c echo.Context, limiter Limiter, key string, limit int, window time.Duration) Decision {
	allowed, _, err := limiter.Allow(c.Request().Context(), key, limit, window)
	switch {
	case err != nil:
		return Indeterminate
	case allowed:
		return Allowed
	default:
		return Denied
	}
}

// Middleware enforces the quota policy on every request. Rejections are 429
// with a structured body and a Retry-After header.
func Middleware(cfg config.RateLimit, limiter Limiter, tokens *token.Service, log *zap.Logger) echo.MiddlewareFunc {
	policy := NewPolicy(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Enabled {
				return next(c)
			}

			req := c.Request()
			key := Key(req, tokens)

			limitExpr := policy.LimitFor(key, req.URL.Path, req.Method)
			limit, window, err := ParseLimit(limitExpr)
			if err != nil {
				// Misconfigured limit expression; let the request through.
				log.Error("invalid rate limit expression",
					zap.String("limit", limitExpr), zap.Error(err))
				return next(c)
			}

			switch check(c, limiter, key, limit, window) {
			case Denied:
				retryAfter := int(window.Seconds())
				log.Warn("rate limit exceeded",
					zap.String("key", key),
					zap.String("method", req.Method),
					zap.String("path", req.URL.Path),
				)
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"detail":      fmt.Sprintf("Rate limit exceeded. Try again in %d seconds.", retryAfter),
					"retry_after": retryAfter,
					"path":        req.URL.Path,
				})
			case Indeterminate:
				log.Warn("rate limiter store unreachable, failing open",
					zap.String("key", key))
			}

			return next(c)
		}
	}
}
