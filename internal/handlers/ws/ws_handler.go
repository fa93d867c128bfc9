// internal/handlers/ws/ws_handler.go
package ws

import (
	"qg-chatting-service/internal/middleware"
	"qg-chatting-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WSHandler upgrades authenticated requests onto the notification hub.
type WSHandler struct {
	hub    *websocket.Hub
	logger *zap.Logger
}

func NewWSHandler(hub *websocket.Hub, logger *zap.Logger) *WSHandler {
	return &WSHandler{hub: hub, logger: logger}
}

// Connect runs behind Auth; browsers pass the bearer via the token query
// param since websocket upgrades cannot carry headers.
func (h *WSHandler) Connect(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	if err := h.hub.Serve(c.Writer, c.Request, userID); err != nil {
		h.logger.Warn("websocket upgrade failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}
