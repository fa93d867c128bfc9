// internal/handlers/notification/notification_handler.go
package notification

import (
	"errors"
	"net/http"
	"strconv"

	"qg-chatting-service/internal/middleware"
	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/pkg/response"
	"qg-chatting-service/internal/repository/postgres"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifications *postgres.NotificationRepository
}

func NewNotificationHandler(notifications *postgres.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	list, err := h.notifications.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load notifications", err)
		return
	}
	response.Success(c, http.StatusOK, "notifications", list)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	id := c.Param("id")

	if err := h.notifications.MarkRead(c.Request.Context(), userID, id); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "notification not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to mark notification read", err)
		return
	}
	response.Success(c, http.StatusOK, "notification marked read", nil)
}
