package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	applogger "TradeDash/pkg/logger"
)

// RequestLogging logs each completed request with method, path, status and
// latency. Websocket requests are skipped: their handler blocks for the
// connection's whole lifetime and the hub logs connect/disconnect itself.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if strings.HasPrefix(c.Request().URL.Path, "/ws/") {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			l.Info("http request",
				applogger.String("method", c.Request().Method),
				applogger.String("path", c.Request().RequestURI),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("latency", time.Since(start)),
			)
			return err
		}
	}
}
