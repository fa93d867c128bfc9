// internal/handlers/agency/agency_handler.go
package agency

import (
	"errors"
	"net/http"

	"qg-chatting-service/internal/domain/tenant"
	"qg-chatting-service/internal/middleware"
	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/pkg/response"
	"qg-chatting-service/internal/pkg/subdomain"
	"qg-chatting-service/internal/service/access"
	"qg-chatting-service/internal/service/health"

	"github.com/gin-gonic/gin"
)

type AgencyHandler struct {
	accessService *access.Service
	healthService *health.Service
	rootDomain    string
}

func NewAgencyHandler(accessService *access.Service, healthService *health.Service, rootDomain string) *AgencyHandler {
	return &AgencyHandler{
		accessService: accessService,
		healthService: healthService,
		rootDomain:    rootDomain,
	}
}

// Status reports provisioning readiness and payment state for an agency.
// The subdomain comes from the query when the onboarding UI polls from the
// apex domain, else from the Host header. The bearer token is optional: an
// anonymous poll gets only the readiness view, an authenticated one also
// gets the access decision. is_accessible comes only from that decision; the
// probe results are informational.
func (h *AgencyHandler) Status(c *gin.Context) {
	label := c.Query("subdomain")
	if label == "" {
		var ok bool
		label, ok = subdomain.FromHost(c.Request.Host, h.rootDomain)
		if !ok {
			response.ValidationError(c, "subdomain required", nil)
			return
		}
	}

	userID, authed := middleware.GetUserID(c)
	if !authed {
		t, err := h.accessService.LookupTenant(c.Request.Context(), label)
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				response.NotFound(c, "agency not found")
				return
			}
			response.Error(c, http.StatusInternalServerError, "failed to evaluate status", err)
			return
		}
		ready, status := h.readiness(c, label, t)
		response.Success(c, http.StatusOK, "agency status", tenant.AgencyStatusPublicResponse{
			Ready:  ready,
			Status: status,
		})
		return
	}

	decision, err := h.accessService.Evaluate(c.Request.Context(), userID, label, access.Options{})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to evaluate status", err)
		return
	}
	if decision.Reason == access.ReasonTenantNotFound {
		response.NotFound(c, "agency not found")
		return
	}
	if decision.Reason == access.ReasonNotMember {
		response.Forbidden(c, "not a member of this agency")
		return
	}

	ready, status := h.readiness(c, label, decision.Tenant)
	response.Success(c, http.StatusOK, "agency status", tenant.AgencyStatusResponse{
		Ready:         ready,
		IsPaid:        decision.Reason == access.ReasonPaid,
		IsAccessible:  decision.Allowed,
		PaymentStatus: decision.PaymentStatus(),
		Subscription:  decision.Subscription,
		Status:        status,
	})
}

func (h *AgencyHandler) readiness(c *gin.Context, label string, t *tenant.Tenant) (bool, map[string]interface{}) {
	status := map[string]interface{}{
		"domain_confirmed": t.DomainConfirmed,
	}
	ready := t.DomainConfirmed
	if ready {
		probe := h.healthService.ProbeDomain(c.Request.Context(), subdomain.FQDN(label, h.rootDomain))
		status["dns"] = probe.DNS
		status["tls"] = probe.TLS
		status["http"] = probe.HTTP
		ready = probe.Ready
	}
	return ready, status
}
