package utils_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/utils"
)

func TestAccessTokenCarriesIdentityAndAuthority(t *testing.T) {
	id := uuid.New()
	access, err := utils.NewAccessToken("test-secret", id, "ADMIN", 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), access.Exp, 5*time.Second)

	tok, err := jwt.Parse(access.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)

	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, id.String(), claims["sub"])
	assert.Equal(t, "ADMIN", claims["authority"])
}

func TestAccessTokenRejectsWrongSecret(t *testing.T) {
	access, err := utils.NewAccessToken("secret-a", uuid.New(), "USER", 15)
	require.NoError(t, err)

	_, err = jwt.Parse(access.Token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("secret-b"), nil
	})
	assert.Error(t, err)
}

func TestRefreshTokensAreUniqueAndHashed(t *testing.T) {
	a, err := utils.NewRefreshToken(30)
	require.NoError(t, err)
	b, err := utils.NewRefreshToken(30)
	require.NoError(t, err)

	assert.NotEqual(t, a.Raw, b.Raw)
	assert.NotEqual(t, a.Raw, utils.HashRefreshRaw(a.Raw))
	assert.Equal(t, utils.HashRefreshRaw(a.Raw), utils.HashRefreshRaw(a.Raw))
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := utils.HashPassword("s3cret", 4)
	require.NoError(t, err)
	assert.True(t, utils.VerifyPassword(hash, "s3cret"))
	assert.False(t, utils.VerifyPassword(hash, "wrong"))
}
