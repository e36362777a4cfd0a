package httpapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/agamordechai/eass-a-workouttracker/internal/config"
	"github.com/agamordechai/eass-a-workouttracker/internal/ratelimit"
	"github.com/agamordechai/eass-a-workouttracker/internal/token"
)

// NewServer assembles the echo instance with the full middleware chain:
// request logging, panic recovery, CORS, and the rate limiter. Handlers are
// registered by the caller via Handler.RegisterRoutes.
func NewServer(cfg config.RateLimit, limiter ratelimit.Limiter, tokens *token.Service, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(ratelimit.Middleware(cfg, limiter, tokens, log))

	return e
}
