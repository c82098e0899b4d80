package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/octobees/gluten-finder/api/internal/logger"
)

// Logging writes a concise structured line for each HTTP request.
func Logging(log *zap.Logger) echo.MiddlewareFunc {
	log = logger.OrNop(log).Named("http")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("request_id", RequestIDFromContext(c)),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", latency),
			}
			if err != nil {
				log.Warn("request failed", append(fields, zap.Error(err))...)
			} else {
				log.Info("request", fields...)
			}

			return err
		}
	}
}
