// internal/middleware/access_middleware.go
package middleware

import (
	"context"
	"net/http"

	"qg-chatting-service/internal/pkg/response"
	"qg-chatting-service/internal/pkg/subdomain"
	"qg-chatting-service/internal/service/access"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AccessEvaluator interface {
	Evaluate(ctx context.Context, userID, sub string, opts access.Options) (*access.Decision, error)
}

// AccessGate enforces tenant access on subdomain-scoped routes. The denial
// reason goes back to the client so the frontend can route to the right
// screen (renewal, join request, 404).
type AccessGate struct {
	evaluator  AccessEvaluator
	rootDomain string
	logger     *zap.Logger
}

func NewAccessGate(evaluator AccessEvaluator, rootDomain string, logger *zap.Logger) *AccessGate {
	return &AccessGate{evaluator: evaluator, rootDomain: rootDomain, logger: logger}
}

// Gate resolves the tenant from the Host header and evaluates membership and
// payment state. MUST run after Auth.
func (g *AccessGate) Gate(opts access.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := MustGetUserID(c)

		label, ok := subdomain.FromHost(c.Request.Host, g.rootDomain)
		if !ok {
			response.NotFound(c, "no workspace at this address")
			return
		}

		decision, err := g.evaluator.Evaluate(c.Request.Context(), userID, label, opts)
		if err != nil {
			g.logger.Error("access evaluation failed",
				zap.String("subdomain", label),
				zap.Error(err),
			)
			response.Error(c, http.StatusInternalServerError, "failed to evaluate access", err)
			return
		}

		if !decision.Allowed {
			status := http.StatusForbidden
			if decision.Reason == access.ReasonTenantNotFound {
				status = http.StatusNotFound
			}
			response.Denied(c, status, "access denied", string(decision.Reason), nil)
			return
		}

		c.Set("tenant_id", decision.Tenant.ID)
		c.Set("access_decision", decision)
		c.Next()
	}
}
