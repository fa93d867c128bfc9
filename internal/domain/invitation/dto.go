// internal/domain/invitation/dto.go
package invitation

type CreateInvitationRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Role     string `json:"role" binding:"required"`
	TenantID string `json:"tenant_id" binding:"required"`
}

type CreateInvitationResponse struct {
	Invitation *Invitation `json:"invitation"`
	// Token is returned exactly once, at creation time.
	Token string `json:"token"`
}

type AcceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

type AcceptInvitationResponse struct {
	TenantID  string `json:"tenant_id"`
	Subdomain string `json:"subdomain"`
	RoleKey   string `json:"role_key"`
}
