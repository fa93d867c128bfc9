// internal/handlers/onboarding/onboarding_handler.go
package onboarding

import (
	"errors"
	"net/http"

	"qg-chatting-service/internal/domain/tenant"
	"qg-chatting-service/internal/middleware"
	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/pkg/response"
	"qg-chatting-service/internal/pkg/subdomain"
	"qg-chatting-service/internal/service/provisioning"

	"github.com/gin-gonic/gin"
)

type OnboardingHandler struct {
	provisioningService *provisioning.Service
	tracker             provisioning.StatusTracker
}

func NewOnboardingHandler(provisioningService *provisioning.Service, tracker provisioning.StatusTracker) *OnboardingHandler {
	return &OnboardingHandler{provisioningService: provisioningService, tracker: tracker}
}

// OnboardOwner provisions an agency: tenant row, owner membership and role,
// subdomain and edge registration. The owner defaults to the authenticated
// caller; the request may instead name an explicit user id or an owner email,
// which is invited on the identity provider first. Safe to retry; a replay
// converges on the same tenant.
func (h *OnboardingHandler) OnboardOwner(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	var req tenant.OnboardOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	in := provisioning.Input{
		AgencyName: req.Name,
		Subdomain:  req.Subdomain,
		Locale:     req.Locale,
	}
	switch {
	case req.OwnerEmail != "":
		in.OwnerEmail = req.OwnerEmail
	case req.UserID != "":
		in.OwnerUserID = req.UserID
	default:
		in.OwnerUserID = userID
	}

	result, err := h.provisioningService.ProvisionTenant(c.Request.Context(), in)
	if err != nil {
		writeProvisionError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "agency provisioned", tenant.OnboardOwnerResponse{
		TenantID:    result.TenantID,
		FQDN:        result.FQDN,
		RedirectURL: result.RedirectURL,
	})
}

// Status returns the last recorded provisioning snapshot for a subdomain.
// The onboarding UI polls this while the pipeline runs.
func (h *OnboardingHandler) Status(c *gin.Context) {
	label, err := subdomain.Normalize(c.Query("subdomain"))
	if err != nil {
		response.ValidationError(c, "invalid subdomain", err)
		return
	}

	st, err := h.tracker.Snapshot(c.Request.Context(), label)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "no provisioning in progress", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to read provisioning status", err)
		return
	}
	response.Success(c, http.StatusOK, "provisioning status", st)
}

// writeProvisionError maps a provisioning failure onto a step-tagged error
// body so the frontend can resume from the failed step on resubmission.
func writeProvisionError(c *gin.Context, err error) {
	if errors.Is(err, xerrors.ErrInvalidInput) {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if pe, ok := xerrors.AsProvisionError(err); ok {
		status := http.StatusBadGateway
		if pe.Code == xerrors.CodeSubdomainTaken {
			status = http.StatusConflict
		}
		response.StepFailure(c, status, "provisioning failed", pe.Code, pe.Step, pe)
		return
	}

	response.StepFailure(c, http.StatusInternalServerError, "provisioning failed", xerrors.CodeProvisioningFailed, "", err)
}
