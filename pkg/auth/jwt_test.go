package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestJWTAuth_VerifyToken(t *testing.T) {
	a := NewJWTAuth(testSecret)
	userID := uuid.New()

	t.Run("Valid token", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub":   userID.String(),
			"email": "bob@example.com",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})

		user, err := a.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, "bob@example.com", user.Email)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		token := signToken(t, "other-secret", jwt.MapClaims{
			"sub": userID.String(),
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		_, err := a.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Expired token", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub": userID.String(),
			"exp": time.Now().Add(-time.Hour).Unix(),
		})

		_, err := a.VerifyToken(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("Subject is not a uuid", func(t *testing.T) {
		token := signToken(t, testSecret, jwt.MapClaims{
			"sub": "user-42",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		_, err := a.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidUserID)
	})

	t.Run("Garbage token", func(t *testing.T) {
		_, err := a.VerifyToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
