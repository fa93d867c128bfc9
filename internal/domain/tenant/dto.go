// internal/domain/tenant/dto.go
package tenant

type OnboardOwnerRequest struct {
	Name       string `json:"name" binding:"required,max=255"`
	Subdomain  string `json:"subdomain" binding:"required,max=63"`
	Locale     string `json:"locale" binding:"omitempty,max=10"`
	UserID     string `json:"user_id"`
	OwnerEmail string `json:"owner_email" binding:"omitempty,email"`
}

type OnboardOwnerResponse struct {
	TenantID    string `json:"tenant_id"`
	FQDN        string `json:"fqdn"`
	RedirectURL string `json:"redirect_url"`
}

type ProvisionDomainRequest struct {
	Subdomain string `json:"subdomain" binding:"required,max=63"`
}

// AgencyStatusResponse composes the access decision with best-effort technical
// probes for the onboarding progress UI. The probes never influence the
// is_accessible decision.
type AgencyStatusResponse struct {
	Ready         bool                   `json:"ready"`
	IsPaid        bool                   `json:"is_paid"`
	IsAccessible  bool                   `json:"is_accessible"`
	PaymentStatus string                 `json:"payment_status"`
	Subscription  interface{}            `json:"subscription,omitempty"`
	Status        map[string]interface{} `json:"status"`
}

// AgencyStatusPublicResponse is the limited view served to unauthenticated
// status polls: provisioning readiness only, no membership or payment state.
type AgencyStatusPublicResponse struct {
	Ready  bool                   `json:"ready"`
	Status map[string]interface{} `json:"status"`
}
