package middleware

// identity.go holds the context keys written by JWTAuth and the typed
// accessors handlers use to read them back.

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	ctxIdentityID = "identity_id"
	ctxAuthority  = "authority"
)

// IdentityID returns the authenticated identity id stored by JWTAuth.
func IdentityID(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(ctxIdentityID).(uuid.UUID)
	return id, ok
}

// Authority returns the authority claim of the authenticated identity,
// or "" when the request is unauthenticated.
func Authority(c echo.Context) string {
	a, _ := c.Get(ctxAuthority).(string)
	return a
}

// rateLimitUserID keys the rate limiter per authenticated identity,
// falling back to "anon" for public routes.
func rateLimitUserID(c echo.Context) string {
	if id, ok := IdentityID(c); ok {
		return id.String()
	}
	return "anon"
}
