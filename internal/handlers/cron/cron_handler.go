// internal/handlers/cron/cron_handler.go
package cron

import (
	"net/http"

	"qg-chatting-service/internal/pkg/response"
	"qg-chatting-service/internal/service/lifecycle"

	"github.com/gin-gonic/gin"
)

// CronHandler exposes the lifecycle sweeps to the external scheduler. All
// routes sit behind the shared cron secret.
type CronHandler struct {
	lifecycleService *lifecycle.Service
}

func NewCronHandler(lifecycleService *lifecycle.Service) *CronHandler {
	return &CronHandler{lifecycleService: lifecycleService}
}

func (h *CronHandler) NotifyExpiring(c *gin.Context) {
	result, err := h.lifecycleService.NotifyExpiringSubscriptions(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "sweep failed", err)
		return
	}
	response.Success(c, http.StatusOK, "expiring subscriptions notified", result)
}

func (h *CronHandler) CheckExpired(c *gin.Context) {
	n, err := h.lifecycleService.CheckExpiredSubscriptions(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "sweep failed", err)
		return
	}
	response.Success(c, http.StatusOK, "expired subscriptions reconciled", gin.H{"expired": n})
}

func (h *CronHandler) CleanupUnpaid(c *gin.Context) {
	result, err := h.lifecycleService.CleanupUnpaidAgencies(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "sweep failed", err)
		return
	}
	response.Success(c, http.StatusOK, "unpaid agencies cleaned up", result)
}
