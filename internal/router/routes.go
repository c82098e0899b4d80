package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/octobees/gluten-finder/api/internal/config"
	"github.com/octobees/gluten-finder/api/internal/handler"
	middlewarepkg "github.com/octobees/gluten-finder/api/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Discover *handler.DiscoverHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	limiter := middlewarepkg.RouteRateLimiter(cfg.RateLimitDiscover, "/discover", "/get-restaurants")
	e.GET("/discover", handlers.Discover.Discover, limiter)
	e.GET("/get-restaurants", handlers.Discover.Discover, limiter)
}
