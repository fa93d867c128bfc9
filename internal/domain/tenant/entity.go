// internal/domain/tenant/entity.go
package tenant

import (
	"database/sql"
	"time"
)

// Role keys scoped per tenant. Owner is assigned atomically with the founding
// membership and is required for billing/renewal actions.
const (
	RoleOwner     = "owner"
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleEmployee  = "employee"
	RoleMarketing = "marketing"
)

type Tenant struct {
	ID        string                 `json:"id" db:"id"`
	Name      string                 `json:"name" db:"name"`
	Subdomain string                 `json:"subdomain" db:"subdomain"`
	Locale    string                 `json:"locale" db:"locale"`
	Theme     map[string]interface{} `json:"theme,omitempty" db:"theme"`

	// DomainConfirmed is set once the CNAME record has been created; the
	// subdomain is immutable from that point on.
	DomainConfirmed bool           `json:"domain_confirmed" db:"domain_confirmed"`
	DomainTarget    sql.NullString `json:"domain_target,omitempty" db:"domain_target"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Membership struct {
	UserID    string    `json:"user_id" db:"user_id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	IsOwner   bool      `json:"is_owner" db:"is_owner"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Role struct {
	ID  int64  `json:"id" db:"id"`
	Key string `json:"key" db:"key"`
}

type RoleAssignment struct {
	UserID    string    `json:"user_id" db:"user_id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	RoleID    int64     `json:"role_id" db:"role_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
