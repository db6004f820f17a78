package infra

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the fields the client reads from its table auth token.
// The client never verifies the signature; the server does that on join.
type TokenClaims struct {
	UserID  string `json:"user_id"`
	TableID string `json:"table_id"`
	jwt.RegisteredClaims
}

// InspectToken parses the auth token without verification to recover the
// user and table identity, and warns when the token is near expiry so a
// session does not start only to be kicked minutes later.
func InspectToken(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("unparseable auth token: %w", err)
	}

	if claims.ExpiresAt != nil {
		remaining := time.Until(claims.ExpiresAt.Time)
		if remaining <= 0 {
			return nil, fmt.Errorf("auth token expired at %s", claims.ExpiresAt.Time)
		}
		if remaining < 5*time.Minute {
			slog.Warn("Auth token expires soon", slog.Duration("remaining", remaining))
		}
	}

	return claims, nil
}
