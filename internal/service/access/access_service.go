// internal/service/access/access_service.go
package access

import (
	"context"
	"errors"
	"time"

	"qg-chatting-service/internal/domain/subscription"
	"qg-chatting-service/internal/domain/tenant"
	xerrors "qg-chatting-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// GracePeriod is the window after tenant creation during which access is
// allowed without a paid subscription. The boundary is strict in both
// directions: allowed while elapsed < 7d, denied at exactly 7d and beyond.
const GracePeriod = 7 * 24 * time.Hour

type Reason string

const (
	ReasonPaid           Reason = "PAID"
	ReasonGracePeriod    Reason = "GRACE_PERIOD"
	ReasonUnpaid         Reason = "UNPAID"
	ReasonExpired        Reason = "EXPIRED"
	ReasonNotMember      Reason = "NOT_MEMBER"
	ReasonNotOwner       Reason = "NOT_OWNER"
	ReasonTenantNotFound Reason = "TENANT_NOT_FOUND"
)

// Decision is the access gate's answer for a (user, subdomain) pair. It is a
// pure read; technical health probes live elsewhere and never gate access.
type Decision struct {
	Allowed      bool               `json:"allowed"`
	Reason       Reason             `json:"reason"`
	Tenant       *tenant.Tenant     `json:"-"`
	Subscription *subscription.View `json:"subscription,omitempty"`
}

type TenantStore interface {
	FindBySubdomain(ctx context.Context, sub string) (*tenant.Tenant, error)
}

type MembershipStore interface {
	Find(ctx context.Context, userID, tenantID string) (*tenant.Membership, error)
}

type SubscriptionStore interface {
	FindActiveByTenant(ctx context.Context, tenantID string) (*subscription.Subscription, error)
}

type Options struct {
	// RequireOwner demands the owner role regardless of subscription state,
	// for billing and renewal surfaces.
	RequireOwner bool
}

type Service struct {
	tenants       TenantStore
	memberships   MembershipStore
	subscriptions SubscriptionStore
	logger        *zap.Logger

	now func() time.Time
}

func NewService(tenants TenantStore, memberships MembershipStore, subscriptions SubscriptionStore, logger *zap.Logger) *Service {
	return &Service{
		tenants:       tenants,
		memberships:   memberships,
		subscriptions: subscriptions,
		logger:        logger,
		now:           time.Now,
	}
}

// WithClock overrides the time source. Tests use it to pin boundaries.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// LookupTenant resolves a subdomain to its tenant with no membership or
// subscription check. The unauthenticated status poll uses it.
func (s *Service) LookupTenant(ctx context.Context, sub string) (*tenant.Tenant, error) {
	return s.tenants.FindBySubdomain(ctx, sub)
}

// Evaluate answers whether user may access the tenant behind subdomain.
func (s *Service) Evaluate(ctx context.Context, userID, sub string, opts Options) (*Decision, error) {
	t, err := s.tenants.FindBySubdomain(ctx, sub)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return &Decision{Allowed: false, Reason: ReasonTenantNotFound}, nil
		}
		return nil, err
	}

	m, err := s.memberships.Find(ctx, userID, t.ID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return &Decision{Allowed: false, Reason: ReasonNotMember, Tenant: t}, nil
		}
		return nil, err
	}

	if opts.RequireOwner && !m.IsOwner {
		return &Decision{Allowed: false, Reason: ReasonNotOwner, Tenant: t}, nil
	}

	now := s.now()

	active, err := s.subscriptions.FindActiveByTenant(ctx, t.ID)
	if err != nil && !errors.Is(err, xerrors.ErrNotFound) {
		return nil, err
	}

	if active != nil && !active.IsExpired(now) {
		return &Decision{Allowed: true, Reason: ReasonPaid, Tenant: t, Subscription: active.ViewAt(now)}, nil
	}

	if now.Sub(t.CreatedAt) < GracePeriod {
		var view *subscription.View
		if active != nil {
			view = active.ViewAt(now)
		}
		return &Decision{Allowed: true, Reason: ReasonGracePeriod, Tenant: t, Subscription: view}, nil
	}

	if active != nil && active.IsExpired(now) {
		return &Decision{Allowed: false, Reason: ReasonExpired, Tenant: t, Subscription: active.ViewAt(now)}, nil
	}
	return &Decision{Allowed: false, Reason: ReasonUnpaid, Tenant: t}, nil
}

// PaymentStatus maps a decision onto the status string the onboarding UI
// branches on.
func (d *Decision) PaymentStatus() string {
	switch d.Reason {
	case ReasonPaid:
		return "paid"
	case ReasonGracePeriod:
		return "grace_period"
	case ReasonExpired:
		return "expired"
	default:
		return "unpaid"
	}
}
