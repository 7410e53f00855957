package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}

// CORS returns CORS middleware. The dashboard frontend runs on a different
// origin in development, so websocket-upgrading GETs and preflights both
// need the headers.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get("Origin")

			allowed := len(cfg.AllowOrigins) == 0
			for _, o := range cfg.AllowOrigins {
				if o == "*" || o == origin {
					allowed = true
					break
				}
			}

			if allowed && origin != "" {
				res := c.Response().Header()
				res.Set(echo.HeaderAccessControlAllowOrigin, origin)
				res.Set(echo.HeaderAccessControlAllowMethods, strings.Join(cfg.AllowMethods, ","))
				res.Set(echo.HeaderAccessControlAllowHeaders, strings.Join(cfg.AllowHeaders, ","))
			}

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}
