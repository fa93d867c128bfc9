// internal/handlers/plans/plan_handler.go
package plans

import (
	"net/http"

	"qg-chatting-service/internal/pkg/response"
	"qg-chatting-service/internal/repository/postgres"

	"github.com/gin-gonic/gin"
)

type PlanHandler struct {
	plans *postgres.PlanRepository
}

func NewPlanHandler(plans *postgres.PlanRepository) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// ListPublic returns the purchasable plans. Unauthenticated; the pricing page
// renders from this.
func (h *PlanHandler) ListPublic(c *gin.Context) {
	list, err := h.plans.ListPublic(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load plans", err)
		return
	}
	response.Success(c, http.StatusOK, "plans", list)
}
