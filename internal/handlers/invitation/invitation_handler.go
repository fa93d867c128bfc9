// internal/handlers/invitation/invitation_handler.go
package invitation

import (
	"errors"
	"net/http"

	inv "qg-chatting-service/internal/domain/invitation"
	"qg-chatting-service/internal/middleware"
	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/pkg/response"
	"qg-chatting-service/internal/pkg/session"
	"qg-chatting-service/internal/service/invitation"

	"github.com/gin-gonic/gin"
)

type InvitationHandler struct {
	invitationService *invitation.Service
	rateLimiter       *session.RateLimiter
}

func NewInvitationHandler(invitationService *invitation.Service, rateLimiter *session.RateLimiter) *InvitationHandler {
	return &InvitationHandler{
		invitationService: invitationService,
		rateLimiter:       rateLimiter,
	}
}

// Create issues a single-use invitation for the gated tenant. Runs behind the
// access gate with an owner/admin role check, so tenant_id comes from context.
func (h *InvitationHandler) Create(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.Forbidden(c, "no tenant resolved for this request")
		return
	}

	var req inv.CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	created, token, err := h.invitationService.Create(c.Request.Context(), tenantID, req.Email, req.Role, userID)
	if err != nil {
		if errors.Is(err, xerrors.ErrInvalidInput) {
			response.ValidationError(c, "invalid invitation", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to create invitation", err)
		return
	}

	response.Success(c, http.StatusCreated, "invitation created", inv.CreateInvitationResponse{
		Invitation: created,
		Token:      token,
	})
}

// Accept redeems an invitation token for the authenticated user.
func (h *InvitationHandler) Accept(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	if allowed, err := h.rateLimiter.CheckInviteAttempt(c.Request.Context(), c.ClientIP()); err == nil && !allowed {
		response.Error(c, http.StatusTooManyRequests, "too many attempts, try again later", nil)
		return
	}

	var req inv.AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	t, roleKey, err := h.invitationService.Accept(c.Request.Context(), req.Token, userID)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrExpired):
			response.Error(c, http.StatusGone, "invitation expired", err)
		case errors.Is(err, xerrors.ErrAlreadyAccepted):
			response.Error(c, http.StatusConflict, "invitation already used", err)
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "invitation not found")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "invalid invitation token", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to accept invitation", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "invitation accepted", inv.AcceptInvitationResponse{
		TenantID:  t.ID,
		Subdomain: t.Subdomain,
		RoleKey:   roleKey,
	})
}

// Revoke withdraws a pending invitation. The id is only honored within the
// gated tenant; another tenant's invitation reads as not found.
func (h *InvitationHandler) Revoke(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.Forbidden(c, "no tenant resolved for this request")
		return
	}

	id := c.Param("id")
	if err := h.invitationService.Revoke(c.Request.Context(), tenantID, id); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "invitation not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to revoke invitation", err)
		return
	}
	response.Success(c, http.StatusOK, "invitation revoked", nil)
}

// Resend replaces a pending invitation with a fresh token, scoped to the
// gated tenant like Revoke.
func (h *InvitationHandler) Resend(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.Forbidden(c, "no tenant resolved for this request")
		return
	}

	id := c.Param("id")
	fresh, token, err := h.invitationService.Resend(c.Request.Context(), tenantID, id)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "invitation not found")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "invitation cannot be resent", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to resend invitation", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "invitation resent", inv.CreateInvitationResponse{
		Invitation: fresh,
		Token:      token,
	})
}
