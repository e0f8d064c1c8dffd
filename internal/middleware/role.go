package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireAuthority enforces that the authenticated identity carries one
// of the given authorities ("admin" or "user").  It assumes JWTAuth ran
// earlier in the chain; requests without a matching authority get 403.
func RequireAuthority(authorities ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(authorities))
	for _, a := range authorities {
		allowed[a] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[Authority(c)] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
