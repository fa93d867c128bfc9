// internal/middleware/secret_middleware.go
package middleware

import (
	"crypto/subtle"

	"qg-chatting-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// SharedSecret guards machine-to-machine routes (cron triggers, internal
// provisioning) with a static header secret.
func SharedSecret(header, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			response.Unauthorized(c, "endpoint not configured")
			return
		}
		got := c.GetHeader(header)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			response.Unauthorized(c, "invalid or missing secret")
			return
		}
		c.Next()
	}
}
