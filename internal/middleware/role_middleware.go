// internal/middleware/role_middleware.go
package middleware

import (
	"context"
	"net/http"

	"qg-chatting-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type RoleLister interface {
	ListUserRoles(ctx context.Context, userID, tenantID string) ([]string, error)
}

type RoleMiddleware struct {
	roles RoleLister
}

func NewRoleMiddleware(roles RoleLister) *RoleMiddleware {
	return &RoleMiddleware{roles: roles}
}

// RequireRole passes when the user holds at least one of the given roles in
// the tenant resolved by the access gate. MUST run after Auth and Gate.
func (m *RoleMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := MustGetUserID(c)
		tenantID, ok := GetTenantID(c)
		if !ok {
			response.Forbidden(c, "no tenant resolved for this request")
			return
		}

		held, err := m.roles.ListUserRoles(c.Request.Context(), userID, tenantID)
		if err != nil {
			response.Error(c, http.StatusInternalServerError, "failed to load roles", err)
			return
		}

		for _, h := range held {
			for _, r := range roles {
				if h == r {
					c.Set("roles", held)
					c.Next()
					return
				}
			}
		}

		response.Denied(c, http.StatusForbidden, "insufficient permissions", "MISSING_ROLE",
			gin.H{"required_roles": roles})
	}
}
