package middleware

import (
	"testing"
	"time"

	"energycalc/internal/app/config"
	"energycalc/internal/app/ds"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMiddleware(secret string) *AuthMiddleware {
	return NewAuthMiddleware(nil, nil, &config.Config{
		JWT: config.JWTConfig{
			Token:         secret,
			ExpiresIn:     time.Hour,
			SigningMethod: jwt.SigningMethodHS256,
		},
	})
}

func signToken(t *testing.T, secret string, expiresAt time.Time, userID uint, isModerator bool) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ds.JWTClaims{
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expiresAt.Unix(),
			IssuedAt:  time.Now().Unix(),
			Issuer:    "energy-calculator",
		},
		UserID:      userID,
		IsModerator: isModerator,
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseJWTToken(t *testing.T) {
	am := testMiddleware("test-secret")

	t.Run("валидный токен парсится с claims", func(t *testing.T) {
		signed := signToken(t, "test-secret", time.Now().Add(time.Hour), 42, true)

		token, err := am.parseJWTToken(signed)
		require.NoError(t, err)
		require.True(t, token.Valid)

		claims, ok := token.Claims.(*ds.JWTClaims)
		require.True(t, ok)
		assert.Equal(t, uint(42), claims.UserID)
		assert.True(t, claims.IsModerator)
	})

	t.Run("чужая подпись отклоняется", func(t *testing.T) {
		signed := signToken(t, "other-secret", time.Now().Add(time.Hour), 42, false)

		_, err := am.parseJWTToken(signed)
		assert.Error(t, err)
	})

	t.Run("истекший токен отклоняется", func(t *testing.T) {
		signed := signToken(t, "test-secret", time.Now().Add(-time.Hour), 42, false)

		_, err := am.parseJWTToken(signed)
		assert.Error(t, err)
	})
}
