// internal/handlers/tenantdomain/domain_handler.go
package tenantdomain

import (
	"errors"
	"net/http"

	"qg-chatting-service/internal/domain/tenant"
	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/pkg/response"
	"qg-chatting-service/internal/service/provisioning"

	"github.com/gin-gonic/gin"
)

// DomainHandler exposes the domain repair entrypoint for internal callers.
// It re-runs only the DNS and edge registration step of provisioning; the
// tenant must already exist.
type DomainHandler struct {
	provisioningService *provisioning.Service
}

func NewDomainHandler(provisioningService *provisioning.Service) *DomainHandler {
	return &DomainHandler{provisioningService: provisioningService}
}

func (h *DomainHandler) ProvisionDomain(c *gin.Context) {
	var req tenant.ProvisionDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.provisioningService.ProvisionDomain(c.Request.Context(), req.Subdomain)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "no tenant for that subdomain")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "invalid subdomain", err)
		default:
			if pe, ok := xerrors.AsProvisionError(err); ok {
				response.StepFailure(c, http.StatusBadGateway, "domain provisioning failed", pe.Code, pe.Step, pe)
				return
			}
			response.Error(c, http.StatusInternalServerError, "domain provisioning failed", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "domain provisioned", tenant.OnboardOwnerResponse{
		TenantID:    result.TenantID,
		FQDN:        result.FQDN,
		RedirectURL: result.RedirectURL,
	})
}
