// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the identity provider's JWT claims.
type Claims struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	EmailVerified  bool   `json:"email_verified"`
	SessionPurpose string `json:"session_purpose"` // access or refresh
	jwt.RegisteredClaims
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}
	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}
	return false
}
