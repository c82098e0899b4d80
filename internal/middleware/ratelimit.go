package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/octobees/gluten-finder/api/internal/config"
)

// RouteRateLimiter applies one shared token bucket to the given route paths.
// Other paths, and a zero config, pass through untouched.
func RouteRateLimiter(cfg config.RateLimitConfig, paths ...string) echo.MiddlewareFunc {
	if cfg.Requests <= 0 || cfg.Interval <= 0 || len(paths) == 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return next(c)
			}
		}
	}

	perRequest := cfg.Interval / time.Duration(cfg.Requests)
	if perRequest <= 0 {
		perRequest = time.Second
	}

	limiter := rate.NewLimiter(rate.Every(perRequest), cfg.Requests)
	limited := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		limited[p] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := limited[c.Path()]; !ok {
				return next(c)
			}

			if !limiter.Allow() {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"status":  "error",
					"message": "discovery rate limit exceeded",
				})
			}

			return next(c)
		}
	}
}
