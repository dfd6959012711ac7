package realtime

import (
	"testing"
	"time"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/pkg/wire"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "unit-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestVerifyAuthToken(t *testing.T) {
	t.Run("valid token accepted", func(t *testing.T) {
		token := signToken(t, testJWTSecret, jwt.MapClaims{
			"tenantId": "tenant-1",
			"userId":   "user-1",
			"exp":      time.Now().Add(time.Hour).Unix(),
		})
		err := verifyAuthToken(testJWTSecret, wire.AuthPayload{TenantID: "tenant-1", UserID: "user-1", Token: token})
		assert.NoError(t, err)
	})

	t.Run("missing token rejected", func(t *testing.T) {
		err := verifyAuthToken(testJWTSecret, wire.AuthPayload{TenantID: "tenant-1"})
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token := signToken(t, "another-secret", jwt.MapClaims{"tenantId": "tenant-1"})
		err := verifyAuthToken(testJWTSecret, wire.AuthPayload{TenantID: "tenant-1", Token: token})
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token := signToken(t, testJWTSecret, jwt.MapClaims{
			"tenantId": "tenant-1",
			"exp":      time.Now().Add(-time.Hour).Unix(),
		})
		err := verifyAuthToken(testJWTSecret, wire.AuthPayload{TenantID: "tenant-1", Token: token})
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("tenant mismatch rejected", func(t *testing.T) {
		token := signToken(t, testJWTSecret, jwt.MapClaims{"tenantId": "tenant-2"})
		err := verifyAuthToken(testJWTSecret, wire.AuthPayload{TenantID: "tenant-1", Token: token})
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("user mismatch rejected", func(t *testing.T) {
		token := signToken(t, testJWTSecret, jwt.MapClaims{"tenantId": "tenant-1", "userId": "user-2"})
		err := verifyAuthToken(testJWTSecret, wire.AuthPayload{TenantID: "tenant-1", UserID: "user-1", Token: token})
		assert.ErrorIs(t, err, ErrAuth)
	})

	t.Run("token without user claim accepted", func(t *testing.T) {
		token := signToken(t, testJWTSecret, jwt.MapClaims{"tenantId": "tenant-1"})
		err := verifyAuthToken(testJWTSecret, wire.AuthPayload{TenantID: "tenant-1", UserID: "user-1", Token: token})
		assert.NoError(t, err)
	})
}
