package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/config"
)

func testContext(t *testing.T) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/reservations", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/reservations")
	return c
}

func TestBuildRateKeyStrategies(t *testing.T) {
	c := testContext(t)
	id := uuid.New()
	c.Set(ctxIdentityID, id)

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}
	assert.Equal(t, "rl:ip:10.0.0.7", buildRateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:"+id.String(), buildRateKey(cfg, c))

	cfg.KeyStrategy = "route"
	assert.Equal(t, "rl:route:POST /v1/reservations", buildRateKey(cfg, c))

	cfg.KeyStrategy = "ip_user_route"
	assert.Equal(t, "rl:ip:10.0.0.7:user:"+id.String()+":route:POST /v1/reservations", buildRateKey(cfg, c))
}

func TestBuildRateKeyAnonymous(t *testing.T) {
	c := testContext(t)
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}
	assert.Equal(t, "rl:user:anon", buildRateKey(cfg, c))
}

func TestTokenBucketPassThroughWithoutRedis(t *testing.T) {
	mw := NewTokenBucket(config.LoadRateLimitConfig(), nil)
	called := false
	h := mw(func(c echo.Context) error {
		called = true
		return nil
	})
	require.NoError(t, h(testContext(t)))
	assert.True(t, called)
}

func TestRequireAuthority(t *testing.T) {
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	c := testContext(t)
	c.Set(ctxAuthority, "user")
	require.NoError(t, RequireAuthority("admin")(next)(c))
	assert.Equal(t, http.StatusForbidden, c.Response().Status)

	c = testContext(t)
	c.Set(ctxAuthority, "admin")
	require.NoError(t, RequireAuthority("admin")(next)(c))
	assert.Equal(t, http.StatusOK, c.Response().Status)
}
