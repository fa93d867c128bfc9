// internal/domain/invitation/entity.go
package invitation

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRevoked  Status = "revoked"
)

type Invitation struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`
	Email    string `json:"email" db:"email"`
	RoleKey  string `json:"role_key" db:"role_key"`

	// TokenLookup is the public half of the single-use token; TokenHash is the
	// bcrypt hash of the secret half. The full token never touches the database.
	TokenLookup string `json:"-" db:"token_lookup"`
	TokenHash   string `json:"-" db:"token_hash"`

	Status     Status       `json:"status" db:"status"`
	ExpiresAt  time.Time    `json:"expires_at" db:"expires_at"`
	AcceptedAt sql.NullTime `json:"accepted_at,omitempty" db:"accepted_at"`
	CreatedBy  string       `json:"created_by" db:"created_by"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// Expired reports whether the invitation is past its validity window.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
