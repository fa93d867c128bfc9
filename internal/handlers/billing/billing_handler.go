// internal/handlers/billing/billing_handler.go
package billing

import (
	"errors"
	"io"
	"net/http"

	"qg-chatting-service/internal/domain/billing"
	"qg-chatting-service/internal/middleware"
	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/pkg/response"
	billingsvc "qg-chatting-service/internal/service/billing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type BillingHandler struct {
	billingService *billingsvc.Service
	logger         *zap.Logger
}

func NewBillingHandler(billingService *billingsvc.Service, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{billingService: billingService, logger: logger}
}

// Checkout opens a gateway invoice for the gated tenant. Owner-only; the
// access gate has already resolved the tenant from the Host header.
func (h *BillingHandler) Checkout(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.Forbidden(c, "no tenant resolved for this request")
		return
	}

	var req billing.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	result, err := h.billingService.StartCheckout(c.Request.Context(), tenantID, req.PlanCode)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "invalid plan", err)
		case errors.Is(err, xerrors.ErrUpstream), errors.Is(err, xerrors.ErrUpstreamTimeout):
			response.Error(c, http.StatusBadGateway, "payment gateway unavailable", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to start checkout", err)
		}
		return
	}

	response.Success(c, http.StatusCreated, "checkout created", result)
}

// Webhook receives gateway settlement callbacks. The signature covers the
// raw body, so it is read before any JSON binding. Unknown events and
// replays get 200 so the gateway stops retrying.
func (h *BillingHandler) Webhook(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "failed to read payload", err)
		return
	}

	err = h.billingService.HandleWebhook(c.Request.Context(), raw, c.GetHeader("X-Gateway-Signature"))
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrUnauthorized):
			response.Unauthorized(c, "invalid webhook signature")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "invalid webhook payload", err)
		default:
			h.logger.Error("webhook processing failed", zap.Error(err))
			// 5xx so the gateway redelivers; settlement is idempotent.
			response.Error(c, http.StatusInternalServerError, "failed to process webhook", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "ok", nil)
}
