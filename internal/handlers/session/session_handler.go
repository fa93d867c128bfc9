// internal/handlers/session/session_handler.go
package session

import (
	"errors"
	"net/http"

	"qg-chatting-service/internal/middleware"
	xerrors "qg-chatting-service/internal/pkg/errors"
	"qg-chatting-service/internal/pkg/response"
	"qg-chatting-service/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

const bridgeCookie = "qg_bridge"

type SessionHandler struct {
	bridge      *session.Bridge
	rateLimiter *session.RateLimiter
	rootDomain  string
	secure      bool
}

func NewSessionHandler(bridge *session.Bridge, rateLimiter *session.RateLimiter, rootDomain string, secure bool) *SessionHandler {
	return &SessionHandler{
		bridge:      bridge,
		rateLimiter: rateLimiter,
		rootDomain:  rootDomain,
		secure:      secure,
	}
}

type syncRequest struct {
	TenantID string `json:"tenant_id"`
	RoleKey  string `json:"role_key"`
}

// Sync persists the caller's session in the bridge and sets the apex-wide
// cookie, so the tenant subdomain can restore it after the redirect.
func (h *SessionHandler) Sync(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	email, _ := middleware.GetEmail(c)

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	token, err := h.bridge.Persist(c.Request.Context(), &session.BridgeData{
		UserID:   userID,
		Email:    email,
		TenantID: req.TenantID,
		RoleKey:  req.RoleKey,
	})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to persist session", err)
		return
	}

	h.setCookie(c, token, 24*60*60)
	response.Success(c, http.StatusOK, "session synced", gin.H{"bridge_token": token})
}

// Restore resolves the bridge cookie (or an explicit token) back into the
// session it carries. A sign-out issued after the token was minted refuses
// the restore even if the token has not expired.
func (h *SessionHandler) Restore(c *gin.Context) {
	if allowed, err := h.rateLimiter.CheckRestoreAttempt(c.Request.Context(), c.ClientIP()); err == nil && !allowed {
		response.Error(c, http.StatusTooManyRequests, "too many attempts, try again later", nil)
		return
	}

	token := c.Query("token")
	if token == "" {
		token, _ = c.Cookie(bridgeCookie)
	}
	if token == "" {
		response.Unauthorized(c, "no session to restore")
		return
	}

	data, err := h.bridge.Restore(c.Request.Context(), token)
	if err != nil {
		if errors.Is(err, xerrors.ErrUnauthorized) {
			h.setCookie(c, "", -1)
			response.Unauthorized(c, "session not found or signed out")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to restore session", err)
		return
	}

	response.Success(c, http.StatusOK, "session restored", data)
}

// Clear signs the user out across every subdomain: the cookie is dropped and
// a tombstone invalidates all outstanding bridge tokens.
func (h *SessionHandler) Clear(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	token, _ := c.Cookie(bridgeCookie)
	if err := h.bridge.Clear(c.Request.Context(), userID, token); err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to clear session", err)
		return
	}

	h.setCookie(c, "", -1)
	response.Success(c, http.StatusOK, "session cleared", nil)
}

func (h *SessionHandler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(bridgeCookie, value, maxAge, "/", "."+h.rootDomain, h.secure, true)
}
