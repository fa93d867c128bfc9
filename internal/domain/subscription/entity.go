// internal/domain/subscription/entity.go
package subscription

import (
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// ExpiringSoonWindow is how far ahead of current_period_end a subscription is
// considered expiring, for both the derived flag and the notification sweep.
const ExpiringSoonWindow = 3 * 24 * time.Hour

type Plan struct {
	ID           int64     `json:"id" db:"id"`
	Code         string    `json:"code" db:"code"`
	Name         string    `json:"name" db:"name"`
	PriceUSD     float64   `json:"price_usd" db:"price_usd"`
	Features     []string  `json:"features" db:"features"`
	MaxEmployees int       `json:"max_employees" db:"max_employees"`
	IsPublic     bool      `json:"is_public" db:"is_public"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Subscription struct {
	ID                 string    `json:"id" db:"id"`
	TenantID           string    `json:"tenant_id" db:"tenant_id"`
	PlanID             int64     `json:"plan_id" db:"plan_id"`
	Status             Status    `json:"status" db:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end" db:"current_period_end"`
	PriceLockedUSD     float64   `json:"price_locked_usd" db:"price_locked_usd"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// IsExpired reports whether the billing period has lapsed. Derived on read,
// never stored.
func (s *Subscription) IsExpired(now time.Time) bool {
	return now.After(s.CurrentPeriodEnd)
}

// IsExpiringSoon reports whether the period ends within the notification window.
func (s *Subscription) IsExpiringSoon(now time.Time) bool {
	remaining := s.CurrentPeriodEnd.Sub(now)
	return remaining > 0 && remaining <= ExpiringSoonWindow
}

// DaysRemaining returns whole days until period end, never negative.
func (s *Subscription) DaysRemaining(now time.Time) int {
	if now.After(s.CurrentPeriodEnd) {
		return 0
	}
	return int(s.CurrentPeriodEnd.Sub(now).Hours() / 24)
}

// View is the wire shape of a subscription with its derived facts resolved
// against a single clock reading.
type View struct {
	Subscription
	IsExpiredNow    bool `json:"is_expired"`
	IsExpiringSoonF bool `json:"is_expiring_soon"`
	DaysLeft        int  `json:"days_remaining"`
}

func (s *Subscription) ViewAt(now time.Time) *View {
	return &View{
		Subscription:    *s,
		IsExpiredNow:    s.IsExpired(now),
		IsExpiringSoonF: s.IsExpiringSoon(now),
		DaysLeft:        s.DaysRemaining(now),
	}
}
