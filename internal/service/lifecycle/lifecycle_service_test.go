package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"qg-chatting-service/internal/domain/notification"
	"qg-chatting-service/internal/domain/subscription"
	"qg-chatting-service/internal/domain/tenant"
	xerrors "qg-chatting-service/internal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeSubscriptionStore struct {
	expiring    []subscription.Subscription
	expiredN    int64
	listErr     error
	markedAt    time.Time
	windowAsked time.Duration
}

func (s *fakeSubscriptionStore) ListExpiringWithin(_ context.Context, _ time.Time, window time.Duration) ([]subscription.Subscription, error) {
	s.windowAsked = window
	return s.expiring, s.listErr
}

func (s *fakeSubscriptionStore) MarkExpiredBefore(_ context.Context, now time.Time) (int64, error) {
	s.markedAt = now
	return s.expiredN, nil
}

type fakeTenantStore struct {
	byID    map[string]*tenant.Tenant
	unpaid  []tenant.Tenant
	deleted []string
	failOn  map[string]error
}

func (s *fakeTenantStore) FindByID(_ context.Context, id string) (*tenant.Tenant, error) {
	if t, ok := s.byID[id]; ok {
		return t, nil
	}
	return nil, xerrors.ErrNotFound
}

func (s *fakeTenantStore) ListUnpaidOlderThan(_ context.Context, _ time.Time) ([]tenant.Tenant, error) {
	return s.unpaid, nil
}

func (s *fakeTenantStore) Delete(_ context.Context, id string) error {
	if err := s.failOn[id]; err != nil {
		return err
	}
	s.deleted = append(s.deleted, id)
	return nil
}

type fakeMembershipStore struct {
	owners map[string][]string
}

func (s *fakeMembershipStore) ListOwners(_ context.Context, tenantID string) ([]string, error) {
	return s.owners[tenantID], nil
}

type fakeNotificationStore struct {
	created   []*notification.Notification
	createErr error
}

func (s *fakeNotificationStore) Create(_ context.Context, n *notification.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, n)
	return nil
}

type fakeBroadcaster struct {
	pushed map[string]int
}

func (b *fakeBroadcaster) Push(userID string, _ *notification.Notification) {
	if b.pushed == nil {
		b.pushed = map[string]int{}
	}
	b.pushed[userID]++
}

type fixture struct {
	subs    *fakeSubscriptionStore
	tenants *fakeTenantStore
	members *fakeMembershipStore
	notifs  *fakeNotificationStore
	hub     *fakeBroadcaster
	svc     *Service
}

func newFixture() *fixture {
	f := &fixture{
		subs: &fakeSubscriptionStore{},
		tenants: &fakeTenantStore{
			byID:   map[string]*tenant.Tenant{},
			failOn: map[string]error{},
		},
		members: &fakeMembershipStore{owners: map[string][]string{}},
		notifs:  &fakeNotificationStore{},
		hub:     &fakeBroadcaster{},
	}
	f.svc = NewService(f.subs, f.tenants, f.members, f.notifs, f.hub, zap.NewNop()).
		WithClock(func() time.Time { return t0 })
	return f
}

func expiringSub(tenantID string, endsIn time.Duration) subscription.Subscription {
	return subscription.Subscription{
		ID:               "sub-" + tenantID,
		TenantID:         tenantID,
		Status:           subscription.StatusActive,
		CurrentPeriodEnd: t0.Add(endsIn),
	}
}

func TestNotifyExpiringSubscriptions(t *testing.T) {
	ctx := context.Background()

	t.Run("notifies every owner and pushes live", func(t *testing.T) {
		f := newFixture()
		f.subs.expiring = []subscription.Subscription{expiringSub("t-1", 48*time.Hour)}
		f.tenants.byID["t-1"] = &tenant.Tenant{ID: "t-1", Name: "Acme", Subdomain: "acme"}
		f.members.owners["t-1"] = []string{"u-1", "u-2"}

		res, err := f.svc.NotifyExpiringSubscriptions(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Scanned)
		assert.Equal(t, 2, res.Notified)
		assert.Equal(t, 0, res.Failed)
		assert.Equal(t, subscription.ExpiringSoonWindow, f.subs.windowAsked)

		require.Len(t, f.notifs.created, 2)
		n := f.notifs.created[0]
		assert.Equal(t, "u-1", n.UserID)
		assert.Equal(t, "t-1", n.TenantID)
		assert.Equal(t, notification.TypeSubscriptionExpiring, n.Type)
		assert.Contains(t, n.Body, "Acme")
		assert.Equal(t, 1, f.hub.pushed["u-1"])
		assert.Equal(t, 1, f.hub.pushed["u-2"])
	})

	t.Run("tenant lookup failure counted, sweep continues", func(t *testing.T) {
		f := newFixture()
		f.subs.expiring = []subscription.Subscription{
			expiringSub("t-gone", 24*time.Hour),
			expiringSub("t-2", 24*time.Hour),
		}
		f.tenants.byID["t-2"] = &tenant.Tenant{ID: "t-2", Name: "Beta", Subdomain: "beta"}
		f.members.owners["t-2"] = []string{"u-9"}

		res, err := f.svc.NotifyExpiringSubscriptions(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Scanned)
		assert.Equal(t, 1, res.Notified)
		assert.Equal(t, 1, res.Failed)
	})

	t.Run("store failure per owner counted", func(t *testing.T) {
		f := newFixture()
		f.subs.expiring = []subscription.Subscription{expiringSub("t-1", 24*time.Hour)}
		f.tenants.byID["t-1"] = &tenant.Tenant{ID: "t-1", Name: "Acme", Subdomain: "acme"}
		f.members.owners["t-1"] = []string{"u-1"}
		f.notifs.createErr = errors.New("insert failed")

		res, err := f.svc.NotifyExpiringSubscriptions(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Notified)
		assert.Equal(t, 1, res.Failed)
		assert.Empty(t, f.hub.pushed, "no live push when the durable copy was not stored")
	})
}

func TestCheckExpiredSubscriptions(t *testing.T) {
	f := newFixture()
	f.subs.expiredN = 3

	n, err := f.svc.CheckExpiredSubscriptions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, t0, f.subs.markedAt)
}

func TestCleanupUnpaidAgencies(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes aged unpaid tenants", func(t *testing.T) {
		f := newFixture()
		f.tenants.unpaid = []tenant.Tenant{
			{ID: "t-old", Subdomain: "old"},
			{ID: "t-older", Subdomain: "older"},
		}

		res, err := f.svc.CleanupUnpaidAgencies(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Scanned)
		assert.Equal(t, 2, res.Deleted)
		assert.ElementsMatch(t, []string{"t-old", "t-older"}, f.tenants.deleted)
	})

	t.Run("delete failure counted, rest proceeds", func(t *testing.T) {
		f := newFixture()
		f.tenants.unpaid = []tenant.Tenant{
			{ID: "t-stuck", Subdomain: "stuck"},
			{ID: "t-ok", Subdomain: "ok"},
		}
		f.tenants.failOn["t-stuck"] = errors.New("fk violation")

		res, err := f.svc.CleanupUnpaidAgencies(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Deleted)
		assert.Equal(t, 1, res.Failed)
		assert.Equal(t, []string{"t-ok"}, f.tenants.deleted)
	})
}
