// internal/domain/notification/entity.go
package notification

import (
	"database/sql"
	"time"
)

type Type string

const (
	TypeSubscriptionExpiring Type = "subscription_expiring"
	TypeSubscriptionExpired  Type = "subscription_expired"
	TypeProvisioningComplete Type = "provisioning_complete"
	TypeInvitationAccepted   Type = "invitation_accepted"
)

type Notification struct {
	ID        string       `json:"id" db:"id"`
	UserID    string       `json:"user_id" db:"user_id"`
	TenantID  string       `json:"tenant_id" db:"tenant_id"`
	Type      Type         `json:"type" db:"type"`
	Title     string       `json:"title" db:"title"`
	Body      string       `json:"body" db:"body"`
	ReadAt    sql.NullTime `json:"read_at,omitempty" db:"read_at"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
