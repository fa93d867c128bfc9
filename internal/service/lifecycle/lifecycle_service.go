// internal/service/lifecycle/lifecycle_service.go
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"qg-chatting-service/internal/domain/notification"
	"qg-chatting-service/internal/domain/subscription"
	"qg-chatting-service/internal/domain/tenant"
	"qg-chatting-service/internal/pkg/id"
	"qg-chatting-service/internal/service/access"

	"go.uber.org/zap"
)

type SubscriptionStore interface {
	ListExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]subscription.Subscription, error)
	MarkExpiredBefore(ctx context.Context, now time.Time) (int64, error)
}

type TenantStore interface {
	FindByID(ctx context.Context, id string) (*tenant.Tenant, error)
	ListUnpaidOlderThan(ctx context.Context, cutoff time.Time) ([]tenant.Tenant, error)
	Delete(ctx context.Context, id string) error
}

type MembershipStore interface {
	ListOwners(ctx context.Context, tenantID string) ([]string, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *notification.Notification) error
}

// Broadcaster pushes a notification to any live connections for the user.
// Delivery is best effort; the stored row is the durable copy.
type Broadcaster interface {
	Push(userID string, n *notification.Notification)
}

// SweepResult reports what a single cron pass touched.
type SweepResult struct {
	Scanned  int `json:"scanned"`
	Notified int `json:"notified,omitempty"`
	Deleted  int `json:"deleted,omitempty"`
	Failed   int `json:"failed"`
}

type Service struct {
	subscriptions SubscriptionStore
	tenants       TenantStore
	memberships   MembershipStore
	notifications NotificationStore
	broadcaster   Broadcaster
	logger        *zap.Logger

	now func() time.Time
}

func NewService(
	subscriptions SubscriptionStore,
	tenants TenantStore,
	memberships MembershipStore,
	notifications NotificationStore,
	broadcaster Broadcaster,
	logger *zap.Logger,
) *Service {
	return &Service{
		subscriptions: subscriptions,
		tenants:       tenants,
		memberships:   memberships,
		notifications: notifications,
		broadcaster:   broadcaster,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NotifyExpiringSubscriptions warns every owner of a tenant whose active
// subscription ends within the notice window. The sweep keeps no per-run
// bookmark, so a subscription inside the window on consecutive runs produces
// a notification each run; owners tolerate the repeat, a missed warning is
// the costly failure.
func (s *Service) NotifyExpiringSubscriptions(ctx context.Context) (*SweepResult, error) {
	now := s.now()
	subs, err := s.subscriptions.ListExpiringWithin(ctx, now, subscription.ExpiringSoonWindow)
	if err != nil {
		return nil, err
	}

	res := &SweepResult{Scanned: len(subs)}
	for _, sub := range subs {
		t, err := s.tenants.FindByID(ctx, sub.TenantID)
		if err != nil {
			s.logger.Error("expiry sweep: tenant lookup failed",
				zap.String("tenant_id", sub.TenantID), zap.Error(err))
			res.Failed++
			continue
		}
		owners, err := s.memberships.ListOwners(ctx, sub.TenantID)
		if err != nil {
			s.logger.Error("expiry sweep: owner lookup failed",
				zap.String("tenant_id", sub.TenantID), zap.Error(err))
			res.Failed++
			continue
		}

		days := sub.DaysRemaining(now)
		for _, ownerID := range owners {
			n := &notification.Notification{
				ID:       id.New(),
				UserID:   ownerID,
				TenantID: sub.TenantID,
				Type:     notification.TypeSubscriptionExpiring,
				Title:    "Subscription expiring soon",
				Body:     fmt.Sprintf("The subscription for %s expires in %d day(s). Renew to keep access.", t.Name, days),
			}
			if err := s.notifications.Create(ctx, n); err != nil {
				s.logger.Error("expiry sweep: failed to store notification",
					zap.String("user_id", ownerID), zap.Error(err))
				res.Failed++
				continue
			}
			if s.broadcaster != nil {
				s.broadcaster.Push(ownerID, n)
			}
			res.Notified++
		}
	}

	s.logger.Info("expiring subscription sweep done",
		zap.Int("scanned", res.Scanned),
		zap.Int("notified", res.Notified),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// CheckExpiredSubscriptions flips lapsed active subscriptions to expired.
// Access decisions already derive expiry from current_period_end, so this is
// reconciliation for reporting, not the enforcement point.
func (s *Service) CheckExpiredSubscriptions(ctx context.Context) (int64, error) {
	n, err := s.subscriptions.MarkExpiredBefore(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("marked lapsed subscriptions expired", zap.Int64("count", n))
	}
	return n, nil
}

// CleanupUnpaidAgencies deletes tenants that finished the grace period
// without ever holding a subscription. Deletes cascade through memberships,
// invitations, and notifications.
func (s *Service) CleanupUnpaidAgencies(ctx context.Context) (*SweepResult, error) {
	cutoff := s.now().Add(-access.GracePeriod)
	tenants, err := s.tenants.ListUnpaidOlderThan(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	res := &SweepResult{Scanned: len(tenants)}
	for _, t := range tenants {
		if err := s.tenants.Delete(ctx, t.ID); err != nil {
			s.logger.Error("unpaid cleanup: delete failed",
				zap.String("tenant_id", t.ID),
				zap.String("subdomain", t.Subdomain),
				zap.Error(err),
			)
			res.Failed++
			continue
		}
		s.logger.Info("removed unpaid agency",
			zap.String("tenant_id", t.ID),
			zap.String("subdomain", t.Subdomain),
		)
		res.Deleted++
	}
	return res, nil
}
