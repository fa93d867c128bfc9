// internal/middleware/helpers.go
package middleware

import (
	"qg-chatting-service/internal/service/access"

	"github.com/gin-gonic/gin"
)

func GetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// MustGetUserID gets the authenticated user ID or panics. Routes using it
// MUST sit behind Auth; the recovery middleware turns a miswired route into
// a 500 rather than silent anonymous access.
func MustGetUserID(c *gin.Context) string {
	id, ok := GetUserID(c)
	if !ok {
		panic("user_id not found in context")
	}
	return id
}

func GetEmail(c *gin.Context) (string, bool) {
	v, exists := c.Get("email")
	if !exists {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}

func GetTenantID(c *gin.Context) (string, bool) {
	v, exists := c.Get("tenant_id")
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// GetAccessDecision returns the gate's decision for handlers that surface
// subscription state alongside their payload.
func GetAccessDecision(c *gin.Context) (*access.Decision, bool) {
	v, exists := c.Get("access_decision")
	if !exists {
		return nil, false
	}
	d, ok := v.(*access.Decision)
	return d, ok
}
