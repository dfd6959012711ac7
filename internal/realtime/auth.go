package realtime

import (
	"fmt"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/pkg/wire"

	"github.com/golang-jwt/jwt/v5"
)

// verifyAuthToken checks the signed handshake token against the configured
// secret and confirms the claims bind the tenant the client asked for.
// Used only when a JWT secret is configured; the transport otherwise trusts
// the hosting page's own scheme.
func verifyAuthToken(secret string, p wire.AuthPayload) error {
	if p.Token == "" {
		return fmt.Errorf("%w: auth token required", ErrAuth)
	}

	token, err := jwt.Parse(p.Token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("%w: unexpected claims format", ErrAuth)
	}

	tenant, _ := claims["tenantId"].(string)
	if tenant == "" || tenant != p.TenantID {
		return fmt.Errorf("%w: token tenant mismatch", ErrAuth)
	}

	if userID, present := claims["userId"].(string); present && p.UserID != "" && userID != p.UserID {
		return fmt.Errorf("%w: token user mismatch", ErrAuth)
	}

	return nil
}
